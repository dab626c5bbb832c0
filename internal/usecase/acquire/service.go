// Package acquire turns an article URL into raw article text using a
// dedicated extractor for known news portals and a generic fallback for
// everything else.
package acquire

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"nepsum/internal/domain/entity"
	"nepsum/internal/observability/metrics"
	"nepsum/internal/observability/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// Source labels used in AcquisitionError, metrics and logs.
const (
	SourcePortal   = "portal"
	SourceFallback = "fallback"
)

// Service acquires article text from URLs.
type Service struct {
	extractors map[string]PageExtractor
	fallback   ContentFetcher
	// FallbackName labels the fallback in errors and metrics.
	FallbackName string
}

// NewService creates an acquirer. extractors is keyed by portal identifier
// as returned by IdentifyPortal. fallback may be nil, in which case URLs of
// other portals fail with ErrUnsupportedPortal.
func NewService(extractors map[string]PageExtractor, fallback ContentFetcher) *Service {
	if extractors == nil {
		extractors = map[string]PageExtractor{}
	}
	return &Service{extractors: extractors, fallback: fallback, FallbackName: SourceFallback}
}

// Portals lists portals with a dedicated extractor, sorted.
func (s *Service) Portals() []string {
	out := make([]string, 0, len(s.extractors))
	for p := range s.extractors {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Acquire returns the article text behind url. Any failure is an
// *entity.AcquisitionError; the caller must not continue with the pipeline.
func (s *Service) Acquire(ctx context.Context, url string) (entity.RawSource, error) {
	portal := IdentifyPortal(url)

	ctx, span := tracing.GetTracer().Start(ctx, "acquire")
	span.SetAttributes(attribute.String("portal", portal))
	defer span.End()

	start := time.Now()
	content, source, err := s.extract(ctx, portal, url)
	if err == nil && strings.TrimSpace(content) == "" {
		err = entity.ErrEmptyContent
	}
	duration := time.Since(start)
	metrics.RecordAcquisition(portal, source, err == nil, duration)

	if err != nil {
		acqErr := &entity.AcquisitionError{URL: url, Portal: portal, Source: source, Err: err}
		tracing.RecordError(span, acqErr)
		slog.Warn("article acquisition failed",
			slog.String("url", url),
			slog.String("portal", portal),
			slog.String("source", source),
			slog.Duration("duration", duration),
			slog.Any("error", err))
		return entity.RawSource{}, acqErr
	}

	slog.Info("article acquired",
		slog.String("url", url),
		slog.String("portal", portal),
		slog.String("source", source),
		slog.Int("length", len(content)),
		slog.Duration("duration", duration))

	return entity.RawSource{Origin: entity.OriginURL, URL: url, Portal: portal, Text: content}, nil
}

func (s *Service) extract(ctx context.Context, portal, url string) (string, string, error) {
	if ex, ok := s.extractors[portal]; ok {
		article, err := ex.Extract(ctx, url)
		if err != nil {
			return "", SourcePortal, err
		}
		if article == nil {
			return "", SourcePortal, entity.ErrEmptyContent
		}
		return article.NewsContent, SourcePortal, nil
	}

	if s.fallback == nil {
		return "", s.FallbackName, entity.ErrUnsupportedPortal
	}
	content, err := s.fallback.FetchContent(ctx, url)
	return content, s.FallbackName, err
}
