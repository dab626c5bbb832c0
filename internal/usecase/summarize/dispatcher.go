package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"nepsum/internal/domain/entity"
	"nepsum/internal/observability/metrics"
	"nepsum/internal/observability/tracing"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// GenerationParams are the per-call decoding settings sent to a backend.
type GenerationParams struct {
	MaxLength      int
	NumBeams       int
	LengthPenalty  float64
	EarlyStopping  bool
	InputMaxLength int
}

// ShortParams are the decoding settings for whole-text summaries.
func ShortParams() GenerationParams {
	return GenerationParams{MaxLength: 512, NumBeams: 5, LengthPenalty: 0.1, EarlyStopping: true, InputMaxLength: 512}
}

// LongParams are the decoding settings for per-chunk summaries.
func LongParams() GenerationParams {
	return GenerationParams{MaxLength: 512, NumBeams: 4, LengthPenalty: 0.1, EarlyStopping: true, InputMaxLength: 1024}
}

// Backend is an opaque text-to-text summarization model.
type Backend interface {
	Generate(ctx context.Context, text string, params GenerationParams) (string, error)
}

// BackendSpec registers a backend together with its fixed decoding settings.
type BackendSpec struct {
	Backend Backend
	Short   GenerationParams
	Long    GenerationParams
	// MaxConcurrency caps in-flight calls to this backend.
	// Zero or one serializes calls.
	MaxConcurrency int64
}

// Config controls chunking for Long mode.
type Config struct {
	MinWords  int
	MaxWords  int
	Delimiter string
	// Parallelism is the number of chunks summarized at once. Results are
	// always joined in chunk order. Zero or one means sequential.
	Parallelism int
}

// DefaultConfig returns bounds of 100..150 words split on the danda, sequential.
func DefaultConfig() Config {
	return Config{
		MinWords:    DefaultMinWords,
		MaxWords:    DefaultMaxWords,
		Delimiter:   DefaultDelimiter,
		Parallelism: 1,
	}
}

type registered struct {
	spec BackendSpec
	sem  *semaphore.Weighted
}

// Dispatcher routes a text to one backend in Short or Long mode.
// It is safe for concurrent use.
type Dispatcher struct {
	chunker     *Chunker
	backends    map[entity.BackendID]*registered
	parallelism int
}

// NewDispatcher builds a dispatcher over the given backend table. Backends
// missing from the table are rejected at call time with InvalidSelectionError.
func NewDispatcher(cfg Config, backends map[entity.BackendID]BackendSpec) (*Dispatcher, error) {
	chunker, err := NewChunker(cfg.MinWords, cfg.MaxWords, cfg.Delimiter)
	if err != nil {
		return nil, err
	}

	table := make(map[entity.BackendID]*registered, len(backends))
	for id, spec := range backends {
		if !id.Valid() {
			return nil, fmt.Errorf("dispatcher: unknown backend id %q", id)
		}
		if spec.Backend == nil {
			return nil, fmt.Errorf("dispatcher: backend %s has no implementation", id)
		}
		weight := spec.MaxConcurrency
		if weight < 1 {
			weight = 1
		}
		table[id] = &registered{spec: spec, sem: semaphore.NewWeighted(weight)}
	}

	parallelism := cfg.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	return &Dispatcher{chunker: chunker, backends: table, parallelism: parallelism}, nil
}

// Chunker returns the chunker used for Long mode.
func (d *Dispatcher) Chunker() *Chunker {
	return d.chunker
}

// Has reports whether id is registered.
func (d *Dispatcher) Has(id entity.BackendID) bool {
	_, ok := d.backends[id]
	return ok
}

// Backend returns the implementation registered for id, or nil.
func (d *Dispatcher) Backend(id entity.BackendID) Backend {
	if r, ok := d.backends[id]; ok {
		return r.spec.Backend
	}
	return nil
}

// Validate checks a backend and length mode without calling anything.
func (d *Dispatcher) Validate(id entity.BackendID, mode entity.LengthMode) error {
	if !mode.Valid() {
		return &entity.InvalidSelectionError{Field: "selectedLength", Value: string(mode)}
	}
	if !d.Has(id) {
		return &entity.InvalidSelectionError{Field: "selectedModel", Value: string(id)}
	}
	return nil
}

// Summarize produces the hypothesis summary for text.
//
// Short mode sends the whole text in one call. Long mode chunks the text and
// joins the per-chunk summaries with a single space in chunk order. A failed
// chunk aborts the request with a BackendError naming its index; nothing is
// retried.
func (d *Dispatcher) Summarize(ctx context.Context, text string, id entity.BackendID, mode entity.LengthMode) (entity.SummaryResult, error) {
	if err := d.Validate(id, mode); err != nil {
		return entity.SummaryResult{}, err
	}
	reg := d.backends[id]

	ctx, span := tracing.GetTracer().Start(ctx, "summarize")
	span.SetAttributes(
		attribute.String("backend", string(id)),
		attribute.String("length_mode", string(mode)),
	)
	defer span.End()

	if mode == entity.Short {
		out, err := d.call(ctx, reg, id, entity.ShortModeChunk, text, reg.spec.Short)
		if err != nil {
			tracing.RecordError(span, err)
			return entity.SummaryResult{}, err
		}
		return entity.SummaryResult{Text: out, SourceBackend: id, LengthMode: mode, ChunkCount: 1}, nil
	}

	chunks := d.chunker.Split(text)
	span.SetAttributes(attribute.Int("chunks", len(chunks)))
	metrics.RecordChunks(len(chunks))

	outs := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.parallelism)
	for _, ch := range chunks {
		g.Go(func() error {
			out, err := d.call(gctx, reg, id, ch.Index, ch.Text, reg.spec.Long)
			if err != nil {
				return err
			}
			outs[ch.Index] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		tracing.RecordError(span, err)
		return entity.SummaryResult{}, err
	}

	return entity.SummaryResult{
		Text:          strings.Join(outs, " "),
		SourceBackend: id,
		LengthMode:    mode,
		ChunkCount:    len(chunks),
	}, nil
}

// call runs one generation under the backend's concurrency limit.
func (d *Dispatcher) call(ctx context.Context, reg *registered, id entity.BackendID, index int, text string, params GenerationParams) (string, error) {
	if err := reg.sem.Acquire(ctx, 1); err != nil {
		return "", &entity.BackendError{Backend: id, Chunk: index, Err: err}
	}
	defer reg.sem.Release(1)

	ctx, span := tracing.GetTracer().Start(ctx, "summarize.chunk")
	span.SetAttributes(attribute.Int("chunk", index))
	defer span.End()

	start := time.Now()
	out, err := reg.spec.Backend.Generate(ctx, text, params)
	duration := time.Since(start)
	metrics.RecordBackendCall(string(id), err == nil, duration)

	if err != nil {
		err = &entity.BackendError{Backend: id, Chunk: index, Err: err}
		tracing.RecordError(span, err)
		slog.Warn("backend call failed",
			slog.String("backend", string(id)),
			slog.Int("chunk", index),
			slog.Duration("duration", duration),
			slog.Any("error", err))
		return "", err
	}

	slog.Debug("backend call finished",
		slog.String("backend", string(id)),
		slog.Int("chunk", index),
		slog.Int("input_runes", utf8.RuneCountInString(text)),
		slog.Duration("duration", duration))
	return out, nil
}
