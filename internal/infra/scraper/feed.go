package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"nepsum/internal/resilience/circuitbreaker"
	"nepsum/internal/resilience/retry"

	"github.com/mmcdole/gofeed"
)

// FeedItem is one entry of a portal's RSS/Atom feed.
type FeedItem struct {
	Title       string
	URL         string
	Content     string
	PublishedAt time.Time
}

// FeedReader fetches RSS/Atom feeds with retry and a circuit breaker. It is
// used to pick article URLs for batch summarization.
type FeedReader struct {
	client         *http.Client
	userAgent      string
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewFeedReader creates a FeedReader that issues requests through client.
func NewFeedReader(client *http.Client, userAgent string) *FeedReader {
	return &FeedReader{
		client:         client,
		userAgent:      userAgent,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.FeedFetchConfig(),
	}
}

// Fetch retrieves and parses the feed at feedURL. Items without a link are
// dropped.
func (f *FeedReader) Fetch(ctx context.Context, feedURL string) ([]FeedItem, error) {
	var items []FeedItem

	err := retry.WithBackoff(ctx, f.retryConfig, func() error {
		result, err := f.circuitBreaker.Execute(ctx, func() (interface{}, error) {
			return f.doFetch(ctx, feedURL)
		})
		if err != nil {
			if circuitbreaker.IsOpenError(err) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("url", feedURL),
					slog.String("state", f.circuitBreaker.State().String()))
			}
			return err
		}
		items = result.([]FeedItem)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}

func (f *FeedReader) doFetch(ctx context.Context, feedURL string) ([]FeedItem, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = f.userAgent
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		var statusErr gofeed.HTTPError
		if errors.As(err, &statusErr) {
			return nil, &retry.HTTPError{StatusCode: statusErr.StatusCode, Message: statusErr.Status}
		}
		return nil, err
	}

	items := make([]FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		link := strings.TrimSpace(it.Link)
		if link == "" {
			continue
		}

		pubAt := time.Now()
		if it.PublishedParsed != nil {
			pubAt = *it.PublishedParsed
		}

		content := it.Content
		if content == "" {
			content = it.Description
		}

		items = append(items, FeedItem{
			Title:       strings.TrimSpace(it.Title),
			URL:         link,
			Content:     content,
			PublishedAt: pubAt,
		})
	}

	return items, nil
}
