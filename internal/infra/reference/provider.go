// Package reference obtains an independent reference summary of a text from
// a third-party generative model. The reference is only used to score the
// hypothesis produced by the summarization backends.
package reference

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"nepsum/internal/config"
	"nepsum/internal/domain/entity"
	"nepsum/internal/observability/metrics"
	"nepsum/internal/observability/tracing"
	"nepsum/internal/resilience/circuitbreaker"
	"nepsum/internal/utils/text"

	"go.opentelemetry.io/otel/attribute"
)

// Prompt is prepended to the text sent to the reference model. It asks, in
// Nepali, for a concise professional summary of the given text.
const Prompt = "तपाईं एक पेशेवर पाठ संक्षेपक हुनुहुन्छ। तपाईंलाई दिइएको पाठको संक्षिप्त सारांश प्रदान गर्नुहोस्।\n\n"

// Provider produces a reference summary for text.
type Provider interface {
	Reference(ctx context.Context, text string) (entity.ReferenceSummary, error)
	Name() string
	// Available reports an error while calls are being rejected locally.
	Available(ctx context.Context) error
}

// completer is the provider-specific model call.
type completer func(ctx context.Context, prompt string) (string, error)

// guarded wraps a completer with the behaviour every provider shares:
// deadline, circuit breaker, markdown stripping, typed errors and metrics.
type guarded struct {
	name           string
	model          string
	timeout        time.Duration
	circuitBreaker *circuitbreaker.CircuitBreaker
	complete       completer
}

func newGuarded(name, model string, timeout time.Duration, complete completer) *guarded {
	return &guarded{
		name:           name,
		model:          model,
		timeout:        timeout,
		circuitBreaker: circuitbreaker.New(circuitbreaker.ReferenceConfig(name)),
		complete:       complete,
	}
}

// Name returns the provider name.
func (g *guarded) Name() string { return g.name }

// Available does not call the provider; it only reflects the breaker.
func (g *guarded) Available(context.Context) error {
	if g.circuitBreaker.IsOpen() {
		return fmt.Errorf("reference provider %s: circuit breaker open", g.name)
	}
	return nil
}

// Reference asks the model for a summary of input. Any failure, including an
// empty reply, is returned as *entity.ReferenceProviderError.
func (g *guarded) Reference(ctx context.Context, input string) (entity.ReferenceSummary, error) {
	ctx, span := tracing.GetTracer().Start(ctx, "reference")
	span.SetAttributes(
		attribute.String("provider", g.name),
		attribute.String("model", g.model),
	)
	defer span.End()

	callerCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := g.circuitBreaker.Execute(callerCtx, func() (interface{}, error) {
		reply, err := g.complete(ctx, Prompt+input)
		if err != nil {
			return "", err
		}
		summary := PlainText(reply)
		if summary == "" {
			return "", fmt.Errorf("model %s returned an empty summary", g.model)
		}
		return summary, nil
	})
	duration := time.Since(start)
	metrics.RecordReference(g.name, err == nil)

	if err != nil {
		refErr := &entity.ReferenceProviderError{Provider: g.name, Err: err}
		tracing.RecordError(span, refErr)
		slog.WarnContext(ctx, "reference summary failed",
			slog.String("provider", g.name),
			slog.String("model", g.model),
			slog.Duration("duration", duration),
			slog.Any("error", err))
		return entity.ReferenceSummary{}, refErr
	}

	summary := result.(string)
	slog.InfoContext(ctx, "reference summary completed",
		slog.String("provider", g.name),
		slog.String("model", g.model),
		slog.Int("input_length", text.CountRunes(input)),
		slog.Int("summary_length", text.CountRunes(summary)),
		slog.Duration("duration", duration))

	return entity.ReferenceSummary{Text: summary, Provider: g.name}, nil
}

// New creates the provider selected by cfg.Provider.
func New(cfg config.ReferenceConfig) (Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("reference provider %s: API key is required", cfg.Provider)
	}
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGemini(cfg), nil
	case config.ProviderClaude:
		return NewClaude(cfg), nil
	case config.ProviderOpenAI:
		return NewOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported reference provider %q", cfg.Provider)
	}
}
