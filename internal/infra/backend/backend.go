// Package backend provides clients for the text-to-text summarization models.
// A model is served either over HTTP (JSON in, JSON out) or over gRPC; both
// clients implement summarize.Backend and expose a readiness probe.
package backend

import (
	"context"
	"fmt"

	"nepsum/internal/config"
	"nepsum/internal/domain/entity"
	"nepsum/internal/usecase/summarize"
)

// Client is a summarization backend that can be probed and closed.
type Client interface {
	summarize.Backend
	// Health returns nil when the model is loaded and accepting requests.
	Health(ctx context.Context) error
	Close() error
}

// New creates the client selected by cfg.Transport.
func New(id entity.BackendID, cfg config.BackendConfig) (Client, error) {
	switch cfg.Transport {
	case config.TransportHTTP:
		return NewHTTPBackend(id, cfg, nil), nil
	case config.TransportGRPC:
		return NewGRPCBackend(id, cfg)
	default:
		return nil, fmt.Errorf("backend %s: unsupported transport %q", id, cfg.Transport)
	}
}

// Spec registers client with the dispatcher using the decoding settings of cfg.
func Spec(client Client, cfg config.BackendConfig) summarize.BackendSpec {
	return summarize.BackendSpec{
		Backend:        client,
		Short:          params(cfg.Short),
		Long:           params(cfg.Long),
		MaxConcurrency: cfg.MaxConcurrency,
	}
}

func params(g config.GenerationConfig) summarize.GenerationParams {
	return summarize.GenerationParams{
		MaxLength:      g.MaxLength,
		NumBeams:       g.NumBeams,
		LengthPenalty:  g.LengthPenalty,
		EarlyStopping:  g.EarlyStopping,
		InputMaxLength: g.InputMaxLength,
	}
}
