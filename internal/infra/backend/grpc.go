package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"nepsum/internal/config"
	"nepsum/internal/domain/entity"
	"nepsum/internal/resilience/circuitbreaker"
	"nepsum/internal/usecase/summarize"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Generator service exposed by gRPC inference servers. Requests and
// responses are google.protobuf.Struct messages:
//
//	request:  {"inputs": "...", "model": "...", "parameters": {...}}
//	response: {"summary_text": "..."}
const (
	GeneratorService = "nepsum.inference.v1.Generator"
	generateMethod   = "/" + GeneratorService + "/Generate"
)

// GRPCBackend calls a model served over gRPC.
type GRPCBackend struct {
	id             entity.BackendID
	cfg            config.BackendConfig
	conn           *grpc.ClientConn
	health         healthpb.HealthClient
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewGRPCBackend creates a client for cfg.Endpoint. The connection is
// established lazily; use Health to wait for the server.
func NewGRPCBackend(id entity.BackendID, cfg config.BackendConfig, opts ...grpc.DialOption) (*GRPCBackend, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	conn, err := grpc.NewClient(cfg.Endpoint, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	return &GRPCBackend{
		id:             id,
		cfg:            cfg,
		conn:           conn,
		health:         healthpb.NewHealthClient(conn),
		circuitBreaker: circuitbreaker.New(circuitbreaker.BackendConfig(string(id))),
	}, nil
}

// Generate summarizes text with the given decoding settings.
func (b *GRPCBackend) Generate(ctx context.Context, text string, params summarize.GenerationParams) (string, error) {
	callerCtx := ctx
	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}
	if b.cfg.Token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+b.cfg.Token)
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

func (b *GRPCBackend) doGenerate(ctx context.Context, text string, params summarize.GenerationParams) (string, error) {
	req, err := structpb.NewStruct(map[string]interface{}{
		"inputs": b.cfg.InputPrefix + text,
		"model":  b.cfg.Model,
		"parameters": map[string]interface{}{
			"max_length":       params.MaxLength,
			"num_beams":        params.NumBeams,
			"length_penalty":   params.LengthPenalty,
			"early_stopping":   params.EarlyStopping,
			"truncation":       true,
			"max_input_length": params.InputMaxLength,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := b.conn.Invoke(ctx, generateMethod, req, resp); err != nil {
		return "", mapGRPCError(err)
	}

	fields := resp.GetFields()
	summary := strings.TrimSpace(fields["summary_text"].GetStringValue())
	if summary == "" {
		summary = strings.TrimSpace(fields["generated_text"].GetStringValue())
	}
	if summary == "" {
		return "", errors.New("response contains an empty summary")
	}
	return summary, nil
}

// Health performs a standard grpc.health.v1 check for the generator service.
func (b *GRPCBackend) Health(ctx context.Context) error {
	resp, err := b.health.Check(ctx, &healthpb.HealthCheckRequest{Service: GeneratorService})
	if err != nil {
		return mapGRPCError(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: health status %s", entity.ErrBackendUnavailable, resp.GetStatus())
	}
	return nil
}

// Close closes the underlying connection.
func (b *GRPCBackend) Close() error {
	return b.conn.Close()
}

func mapGRPCError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", entity.ErrBackendUnavailable, err)
	}

	switch st.Code() {
	case codes.DeadlineExceeded:
		return fmt.Errorf("generation timed out: %w", context.DeadlineExceeded)
	case codes.Canceled:
		return context.Canceled
	case codes.Unavailable, codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", entity.ErrBackendUnavailable, st.Message())
	default:
		return fmt.Errorf("backend error (%s): %s", st.Code(), st.Message())
	}
}
