// Package bootstrap builds the summarization pipeline and its collaborators
// from a loaded Config. Both binaries share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"nepsum/internal/config"
	"nepsum/internal/domain/entity"
	"nepsum/internal/infra/backend"
	"nepsum/internal/infra/fetcher"
	"nepsum/internal/infra/reference"
	"nepsum/internal/infra/scraper"
	"nepsum/internal/resilience/retry"
	"nepsum/internal/usecase/acquire"
	"nepsum/internal/usecase/pipeline"
	"nepsum/internal/usecase/score"
	"nepsum/internal/usecase/summarize"
)

// Fallback extractor labels.
const (
	FallbackExtractorAPI = "extractor-api"
	FallbackReadability  = "readability"
)

// App holds the wired pipeline and everything that must be probed or closed.
type App struct {
	Config      *config.Config
	Pipeline    *pipeline.Service
	Acquirer    *acquire.Service
	Dispatcher  *summarize.Dispatcher
	Backends    map[entity.BackendID]backend.Client
	Reference   reference.Provider
	FetchConfig fetcher.ContentFetchConfig
	HTTPClient  *http.Client

	logger *slog.Logger
}

// Build wires the application. Clients are created lazily by their SDKs, so
// Build does not contact any remote service.
func Build(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fetchCfg := FetchConfig(cfg.Fetch)
	if err := fetchCfg.Validate(); err != nil {
		return nil, fmt.Errorf("fetch config: %w", err)
	}
	client := fetcher.NewHTTPClient(fetchCfg)

	portals, err := config.LoadPortals(cfg.PortalsPath)
	if err != nil {
		return nil, fmt.Errorf("load portals: %w", err)
	}

	acq := newAcquirer(cfg.Extractor, fetchCfg, client, portals)

	app := &App{
		Config:      cfg,
		Acquirer:    acq,
		Backends:    make(map[entity.BackendID]backend.Client),
		FetchConfig: fetchCfg,
		HTTPClient:  client,
		logger:      logger,
	}

	specs := make(map[entity.BackendID]summarize.BackendSpec)
	for _, b := range []struct {
		id  entity.BackendID
		cfg config.BackendConfig
	}{
		{entity.ModelA, cfg.ModelA},
		{entity.ModelB, cfg.ModelB},
	} {
		if !b.cfg.Enabled() {
			logger.Info("backend disabled", slog.String("backend", string(b.id)))
			continue
		}
		c, err := backend.New(b.id, b.cfg)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.Backends[b.id] = c
		specs[b.id] = backend.Spec(c, b.cfg)
		logger.Info("backend registered",
			slog.String("backend", string(b.id)),
			slog.String("transport", b.cfg.Transport),
			slog.String("endpoint", b.cfg.Endpoint),
			slog.Int64("max_concurrency", b.cfg.MaxConcurrency))
	}

	dispatcher, err := summarize.NewDispatcher(summarize.Config{
		MinWords:    cfg.Chunk.MinWords,
		MaxWords:    cfg.Chunk.MaxWords,
		Delimiter:   cfg.Chunk.Delimiter,
		Parallelism: cfg.Chunk.Parallelism,
	}, specs)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("dispatcher: %w", err)
	}
	app.Dispatcher = dispatcher

	// A nil interface value keeps evaluation disabled in the pipeline.
	var ref pipeline.ReferenceProvider
	if cfg.Reference.Enabled() {
		p, err := reference.New(cfg.Reference)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.Reference = p
		ref = p
		logger.Info("reference provider registered",
			slog.String("provider", p.Name()),
			slog.String("model", cfg.Reference.ModelName()))
	} else {
		logger.Info("reference provider disabled; evaluation is off")
	}

	app.Pipeline = pipeline.NewService(acq, dispatcher, ref, score.New(score.Tokenize))
	return app, nil
}

// FetchConfig converts the env-level fetch settings.
func FetchConfig(c config.FetchConfig) fetcher.ContentFetchConfig {
	return fetcher.ContentFetchConfig{
		Timeout:        c.Timeout,
		MaxBodySize:    c.MaxBodySize,
		MaxRedirects:   c.MaxRedirects,
		DenyPrivateIPs: c.DenyPrivateIPs,
		UserAgent:      c.UserAgent,
	}
}

func newAcquirer(ex config.ExtractorConfig, fetchCfg fetcher.ContentFetchConfig, client *http.Client, portals *config.PortalsConfig) *acquire.Service {
	extractors := scraper.NewPortalRegistry(client, fetchCfg, portals)

	var (
		fallback acquire.ContentFetcher
		name     string
	)
	if ex.APIKey != "" {
		fallback = fetcher.NewExtractorAPI(ex.Endpoint, ex.APIKey, ex.Timeout, fetchCfg)
		name = FallbackExtractorAPI
	} else {
		fallback = fetcher.NewReadabilityFetcher(fetchCfg)
		name = FallbackReadability
	}

	svc := acquire.NewService(extractors, fallback)
	svc.FallbackName = name
	return svc
}

// FeedReader returns a feed reader sharing the application's HTTP client.
func (a *App) FeedReader() *scraper.FeedReader {
	return scraper.NewFeedReader(a.HTTPClient, a.FetchConfig.UserAgent)
}

// Checks returns one readiness probe per backend plus the reference provider.
func (a *App) Checks() map[string]func(context.Context) error {
	checks := make(map[string]func(context.Context) error, len(a.Backends)+1)
	for id, c := range a.Backends {
		checks["backend:"+string(id)] = c.Health
	}
	if a.Reference != nil {
		checks["reference:"+a.Reference.Name()] = a.Reference.Available
	}
	return checks
}

// Info describes the wiring for /health.
func (a *App) Info() map[string]any {
	backends := make([]string, 0, len(a.Backends))
	for id := range a.Backends {
		backends = append(backends, string(id))
	}
	sort.Strings(backends)

	info := map[string]any{
		"backends":           backends,
		"portals":            len(a.Acquirer.Portals()),
		"fallback_extractor": a.Acquirer.FallbackName,
		"evaluation_enabled": a.Pipeline.EvaluationEnabled(),
	}
	if a.Reference != nil {
		info["reference_provider"] = a.Reference.Name()
	}
	return info
}

// WaitReady blocks until every backend answers its health probe, retrying
// with backoff. Inference servers can take minutes to load a model.
func (a *App) WaitReady(ctx context.Context, cfg retry.Config) error {
	ids := make([]string, 0, len(a.Backends))
	for id := range a.Backends {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	for _, id := range ids {
		c := a.Backends[entity.BackendID(id)]
		err := retry.WithBackoff(ctx, cfg, func() error {
			probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := c.Health(probeCtx); err != nil {
				// Not ready yet counts as a transient 503 for the retry policy.
				return &retry.HTTPError{StatusCode: http.StatusServiceUnavailable, Message: err.Error()}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("backend %s not ready: %w", id, err)
		}
		a.logger.Info("backend ready", slog.String("backend", id))
	}
	return nil
}

// Close releases backend connections.
func (a *App) Close() error {
	var errs []error
	for id, c := range a.Backends {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close backend %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
