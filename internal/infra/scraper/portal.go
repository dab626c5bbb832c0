// Package scraper reads news articles from the web: one CSS-selector driven
// page extractor per known Nepali news portal, and an RSS/Atom reader used to
// discover article URLs.
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"nepsum/internal/config"
	"nepsum/internal/infra/fetcher"
	"nepsum/internal/resilience/circuitbreaker"
	"nepsum/internal/usecase/acquire"

	"github.com/PuerkitoBio/goquery"
)

// PortalScraper implements acquire.PageExtractor for one news portal using
// the portal's CSS selectors.
type PortalScraper struct {
	portal         config.PortalConfig
	client         *http.Client
	fetchConfig    fetcher.ContentFetchConfig
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewPortalScraper creates a scraper for portal. client should come from
// fetcher.NewHTTPClient so that redirects are validated.
func NewPortalScraper(client *http.Client, fetchConfig fetcher.ContentFetchConfig, portal config.PortalConfig) *PortalScraper {
	return &PortalScraper{
		portal:         portal,
		client:         client,
		fetchConfig:    fetchConfig,
		circuitBreaker: circuitbreaker.New(circuitbreaker.PortalScraperConfig(portal.Name)),
	}
}

// Name returns the portal name.
func (s *PortalScraper) Name() string {
	return s.portal.Name
}

// Extract downloads the article page at pageURL and returns its title and
// body text. Paragraphs matched by the content selector are joined with
// newlines.
func (s *PortalScraper) Extract(ctx context.Context, pageURL string) (*acquire.Article, error) {
	if err := fetcher.ValidateURL(ctx, pageURL, s.fetchConfig.DenyPrivateIPs); err != nil {
		return nil, fmt.Errorf("URL validation failed: %w", err)
	}

	result, err := s.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return s.doExtract(ctx, pageURL)
	})
	if err != nil {
		if circuitbreaker.IsOpenError(err) {
			slog.Warn("portal scraper circuit breaker open, request rejected",
				slog.String("portal", s.portal.Name),
				slog.String("url", pageURL),
				slog.String("state", s.circuitBreaker.State().String()))
		}
		return nil, err
	}

	return result.(*acquire.Article), nil
}

func (s *PortalScraper) doExtract(ctx context.Context, pageURL string) (*acquire.Article, error) {
	body, _, err := fetcher.Get(ctx, s.client, s.fetchConfig, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch HTML failed: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	article := s.extractArticle(doc)
	if article.NewsContent == "" {
		return nil, fmt.Errorf("%w: no content found with selector: %s",
			acquire.ErrExtractionFailed, s.portal.ContentSelector)
	}

	slog.Debug("portal article extracted",
		slog.String("portal", s.portal.Name),
		slog.String("url", pageURL),
		slog.String("title", article.Title),
		slog.Int("length", len(article.NewsContent)))

	return article, nil
}

func (s *PortalScraper) extractArticle(doc *goquery.Document) *acquire.Article {
	for _, sel := range s.portal.RemoveSelectors {
		doc.Find(sel).Remove()
	}

	title := ""
	if s.portal.TitleSelector != "" {
		title = strings.TrimSpace(doc.Find(s.portal.TitleSelector).First().Text())
	}

	var paragraphs []string
	doc.Find(s.portal.ContentSelector).Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	return &acquire.Article{
		Title:       title,
		NewsContent: strings.Join(paragraphs, "\n"),
	}
}
