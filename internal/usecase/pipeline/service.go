// Package pipeline runs one summarization request end to end: acquire the
// source text, normalize it, summarize it with the selected backend and,
// when evaluation is on, score the summary against an independent reference.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"nepsum/internal/domain/entity"
	"nepsum/internal/observability/metrics"
	"nepsum/internal/observability/tracing"
	"nepsum/internal/utils/text"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Acquirer turns an article URL into raw text.
type Acquirer interface {
	Acquire(ctx context.Context, url string) (entity.RawSource, error)
}

// Summarizer produces the hypothesis summary.
type Summarizer interface {
	Validate(id entity.BackendID, mode entity.LengthMode) error
	Summarize(ctx context.Context, text string, id entity.BackendID, mode entity.LengthMode) (entity.SummaryResult, error)
}

// ReferenceProvider produces the reference summary used for scoring.
type ReferenceProvider interface {
	Reference(ctx context.Context, text string) (entity.ReferenceSummary, error)
	Name() string
}

// Scorer compares a hypothesis with a reference.
type Scorer interface {
	Score(hypothesis, reference string) entity.OverlapScore
}

// Request is one summarization request. URL, when set, supersedes Text.
type Request struct {
	Text     string
	URL      string
	Length   entity.LengthMode
	Backend  entity.BackendID
	Evaluate bool
}

// Result is the outcome of a successful run. Reference and Scores are nil
// when evaluation was not performed.
type Result struct {
	Source        entity.RawSource
	FormattedText string
	Summary       entity.SummaryResult
	Reference     *entity.ReferenceSummary
	Scores        *entity.OverlapScore
}

// Service wires the pipeline stages together. It holds no per-request state
// and is safe for concurrent use.
type Service struct {
	acquirer   Acquirer
	summarizer Summarizer
	reference  ReferenceProvider
	scorer     Scorer
}

// NewService creates a pipeline. reference may be nil, which disables
// evaluation regardless of Request.Evaluate.
func NewService(acquirer Acquirer, summarizer Summarizer, reference ReferenceProvider, scorer Scorer) *Service {
	return &Service{
		acquirer:   acquirer,
		summarizer: summarizer,
		reference:  reference,
		scorer:     scorer,
	}
}

// EvaluationEnabled reports whether a reference provider is configured.
func (s *Service) EvaluationEnabled() bool {
	return s.reference != nil
}

// ReferenceName returns the configured reference provider, or "".
func (s *Service) ReferenceName() string {
	if s.reference == nil {
		return ""
	}
	return s.reference.Name()
}

// Run executes the pipeline. Errors are typed (see package entity) and no
// stage runs after a failed one.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	ctx, span := tracing.GetTracer().Start(ctx, "pipeline")
	span.SetAttributes(
		attribute.String("backend", string(req.Backend)),
		attribute.String("length_mode", string(req.Length)),
		attribute.Bool("evaluate", req.Evaluate),
	)
	defer span.End()

	start := time.Now()
	result, err := s.run(ctx, req)
	duration := time.Since(start)

	if err != nil {
		tracing.RecordError(span, err)
		var selErr *entity.InvalidSelectionError
		var valErr *entity.ValidationError
		if !errors.As(err, &selErr) && !errors.As(err, &valErr) {
			metrics.RecordSummary(string(req.Backend), string(req.Length), false, duration)
		}
		return nil, err
	}

	metrics.RecordSummary(string(req.Backend), string(req.Length), true, duration)
	slog.InfoContext(ctx, "pipeline completed",
		slog.String("backend", string(result.Summary.SourceBackend)),
		slog.String("length_mode", string(result.Summary.LengthMode)),
		slog.String("origin", string(result.Source.Origin)),
		slog.String("portal", result.Source.Portal),
		slog.Int("chunk_count", result.Summary.ChunkCount),
		slog.Bool("evaluated", result.Scores != nil),
		slog.Duration("duration", duration))

	return result, nil
}

func (s *Service) run(ctx context.Context, req Request) (*Result, error) {
	if err := s.summarizer.Validate(req.Backend, req.Length); err != nil {
		return nil, err
	}

	source, err := s.source(ctx, req)
	if err != nil {
		return nil, err
	}
	// an acquirer may return after the request has ended
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	formatted := s.normalize(ctx, source.Text)
	if formatted == "" {
		return nil, &entity.ValidationError{Field: "text", Message: "no summarizable text after normalization"}
	}

	evaluate := req.Evaluate && s.reference != nil
	result := &Result{Source: source, FormattedText: formatted}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.summarizer.Summarize(gctx, formatted, req.Backend, req.Length)
		if err != nil {
			return err
		}
		result.Summary = summary
		return nil
	})
	if evaluate {
		g.Go(func() error {
			ref, err := s.reference.Reference(gctx, formatted)
			if err != nil {
				return err
			}
			result.Reference = &ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if evaluate {
		scores := s.score(ctx, result.Summary.Text, result.Reference.Text)
		result.Scores = &scores
	}

	return result, nil
}

func (s *Service) source(ctx context.Context, req Request) (entity.RawSource, error) {
	if u := strings.TrimSpace(req.URL); u != "" {
		if err := entity.ValidateSourceURL(u); err != nil {
			return entity.RawSource{}, err
		}
		if s.acquirer == nil {
			return entity.RawSource{}, &entity.AcquisitionError{URL: u, Err: entity.ErrUnsupportedPortal}
		}
		return s.acquirer.Acquire(ctx, u)
	}

	if strings.TrimSpace(req.Text) == "" {
		return entity.RawSource{}, &entity.ValidationError{Field: "text", Message: "either text or url is required"}
	}
	if err := entity.ValidateInlineText(req.Text); err != nil {
		return entity.RawSource{}, err
	}
	return entity.RawSource{Origin: entity.OriginInline, Text: req.Text}, nil
}

func (s *Service) normalize(ctx context.Context, raw string) string {
	_, span := tracing.GetTracer().Start(ctx, "normalize")
	defer span.End()

	out := text.Normalize(raw)
	span.SetAttributes(
		attribute.Int("input_runes", text.CountRunes(raw)),
		attribute.Int("output_words", text.CountWords(out)),
	)
	slog.DebugContext(ctx, "text normalized",
		slog.Int("input_runes", text.CountRunes(raw)),
		slog.Int("output_words", text.CountWords(out)))
	return out
}

func (s *Service) score(ctx context.Context, hypothesis, reference string) entity.OverlapScore {
	_, span := tracing.GetTracer().Start(ctx, "score")
	defer span.End()

	scores := s.scorer.Score(hypothesis, reference)
	metrics.RecordRouge(scores.Rouge1.FMeasure, scores.Rouge2.FMeasure, scores.RougeL.FMeasure)
	span.SetAttributes(
		attribute.Float64("rouge1_f", scores.Rouge1.FMeasure),
		attribute.Float64("rouge2_f", scores.Rouge2.FMeasure),
		attribute.Float64("rougeL_f", scores.RougeL.FMeasure),
	)
	return scores
}
