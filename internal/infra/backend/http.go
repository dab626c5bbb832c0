package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"nepsum/internal/config"
	"nepsum/internal/domain/entity"
	"nepsum/internal/resilience/circuitbreaker"
	"nepsum/internal/resilience/retry"
	"nepsum/internal/usecase/summarize"
)

// maxResponseSize bounds the bytes read from an inference server reply.
const maxResponseSize = 4 * 1024 * 1024

// HTTPBackend calls an inference server that accepts
//
//	POST <endpoint>
//	{"inputs": "...", "parameters": {...}}
//
// and replies with [{"summary_text": "..."}], {"summary_text": "..."} or the
// same shapes keyed by "generated_text".
type HTTPBackend struct {
	id             entity.BackendID
	cfg            config.BackendConfig
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
}

type generateRequest struct {
	Inputs     string             `json:"inputs"`
	Model      string             `json:"model,omitempty"`
	Parameters generateParameters `json:"parameters"`
}

type generateParameters struct {
	MaxLength      int     `json:"max_length,omitempty"`
	NumBeams       int     `json:"num_beams,omitempty"`
	LengthPenalty  float64 `json:"length_penalty"`
	EarlyStopping  bool    `json:"early_stopping"`
	Truncation     bool    `json:"truncation"`
	MaxInputLength int     `json:"max_input_length,omitempty"`
}

type generateOutput struct {
	SummaryText   string `json:"summary_text"`
	GeneratedText string `json:"generated_text"`
	Error         string `json:"error"`
}

func (o generateOutput) text() string {
	if o.SummaryText != "" {
		return o.SummaryText
	}
	return o.GeneratedText
}

// NewHTTPBackend creates an HTTP backend. A nil client gets a default client
// without an overall timeout; per-call deadlines come from cfg.Timeout.
func NewHTTPBackend(id entity.BackendID, cfg config.BackendConfig, client *http.Client) *HTTPBackend {
	if client == nil {
		client = &http.Client{Transport: &http.Transport{
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		}}
	}
	return &HTTPBackend{
		id:             id,
		cfg:            cfg,
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.BackendConfig(string(id))),
	}
}

// Generate summarizes text with the given decoding settings.
func (b *HTTPBackend) Generate(ctx context.Context, text string, params summarize.GenerationParams) (string, error) {
	callerCtx := ctx
	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	result, err := b.circuitBreaker.Execute(callerCtx, func() (interface{}, error) {
		return b.doGenerate(ctx, text, params)
	})
	if err != nil {
		if circuitbreaker.IsOpenError(err) {
			slog.WarnContext(ctx, "backend circuit breaker open, request rejected",
				slog.String("backend", string(b.id)),
				slog.String("state", b.circuitBreaker.State().String()))
			return "", fmt.Errorf("%w: %w", entity.ErrBackendUnavailable, err)
		}
		return "", err
	}
	return result.(string), nil
}

func (b *HTTPBackend) doGenerate(ctx context.Context, text string, params summarize.GenerationParams) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Inputs: b.cfg.InputPrefix + text,
		Model:  b.cfg.Model,
		Parameters: generateParameters{
			MaxLength:      params.MaxLength,
			NumBeams:       params.NumBeams,
			LengthPenalty:  params.LengthPenalty,
			EarlyStopping:  params.EarlyStopping,
			Truncation:     true,
			MaxInputLength: params.InputMaxLength,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if b.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.Token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", entity.ErrBackendUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		httpErr := &retry.HTTPError{StatusCode: resp.StatusCode, Message: errorMessage(body, resp.Status)}
		if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusBadGateway {
			return "", fmt.Errorf("%w: %w", entity.ErrBackendUnavailable, httpErr)
		}
		return "", httpErr
	}

	summary, err := decodeSummary(body)
	if err != nil {
		return "", err
	}
	return summary, nil
}

// Health probes <endpoint><HealthPath>. Any 2xx answer counts as ready.
func (b *HTTPBackend) Health(ctx context.Context) error {
	if b.cfg.HealthPath == "" {
		return nil
	}
	url := strings.TrimSuffix(b.cfg.Endpoint, "/") + b.cfg.HealthPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrBackendUnavailable, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %w", entity.ErrBackendUnavailable,
			&retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status})
	}
	return nil
}

// Close releases idle connections.
func (b *HTTPBackend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

func decodeSummary(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", errors.New("empty response body")
	}

	var out generateOutput
	if trimmed[0] == '[' {
		var list []generateOutput
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		if len(list) == 0 {
			return "", errors.New("response contains no outputs")
		}
		out = list[0]
	} else if err := json.Unmarshal(trimmed, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if out.Error != "" {
		return "", fmt.Errorf("model error: %s", out.Error)
	}
	summary := strings.TrimSpace(out.text())
	if summary == "" {
		return "", errors.New("response contains an empty summary")
	}
	return summary, nil
}

func errorMessage(body []byte, fallback string) string {
	var out generateOutput
	if err := json.Unmarshal(body, &out); err == nil && out.Error != "" {
		return out.Error
	}
	return fallback
}
