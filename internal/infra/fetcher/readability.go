package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"nepsum/internal/resilience/circuitbreaker"
	"nepsum/internal/usecase/acquire"

	"github.com/go-shiori/go-readability"
)

// ReadabilityFetcher implements acquire.ContentFetcher using the Mozilla
// Readability algorithm. It is the fallback for portals without a dedicated
// extractor when no extractor API key is configured.
//
// Thread safety: ReadabilityFetcher is safe for concurrent use.
type ReadabilityFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	config         ContentFetchConfig
}

// NewReadabilityFetcher creates a ReadabilityFetcher with its own
// redirect-validating client and circuit breaker.
func NewReadabilityFetcher(config ContentFetchConfig) *ReadabilityFetcher {
	return &ReadabilityFetcher{
		client:         NewHTTPClient(config),
		circuitBreaker: circuitbreaker.New(circuitbreaker.DefaultConfig("readability")),
		config:         config,
	}
}

// FetchContent fetches urlStr and returns the readable text of the page.
func (f *ReadabilityFetcher) FetchContent(ctx context.Context, urlStr string) (string, error) {
	if err := ValidateURL(ctx, urlStr, f.config.DenyPrivateIPs); err != nil {
		return "", err
	}

	result, err := f.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return f.doFetch(ctx, urlStr)
	})
	if err != nil {
		return "", err
	}

	return result.(string), nil
}

func (f *ReadabilityFetcher) doFetch(ctx context.Context, urlStr string) (interface{}, error) {
	body, finalURL, err := Get(ctx, f.client, f.config, urlStr, nil)
	if err != nil {
		return "", err
	}

	article, err := readability.FromReader(bytes.NewReader(body), finalURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", acquire.ErrExtractionFailed, err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", fmt.Errorf("%w: no readable content found", acquire.ErrExtractionFailed)
	}

	slog.Debug("readability extraction succeeded",
		slog.String("url", urlStr),
		slog.String("title", article.Title),
		slog.Int("length", len(text)))

	return text, nil
}
