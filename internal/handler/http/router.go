// Package http exposes the summarization pipeline over HTTP: the summarize
// endpoint, portal listing, health probes and Prometheus metrics, wrapped in
// request-ID, tracing, logging, CORS, rate-limit and auth middleware.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"nepsum/internal/handler/http/auth"
	"nepsum/internal/handler/http/requestid"
	"nepsum/internal/handler/http/respond"
	"nepsum/internal/observability/tracing"
)

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Runner  Runner
	Logger  *slog.Logger
	Version string

	// Portals lists identifiers with dedicated extractors.
	Portals func() []string
	// Checks are probed by /health and /ready.
	Checks map[string]CheckFunc
	// Info is reported verbatim by /health.
	Info map[string]any

	RequestTimeout time.Duration
	MaxBodyBytes   int64
	CORSOrigins    []string
	// RateLimiter guards the summarize routes when non-nil.
	RateLimiter *RateLimiter
	// JWTSecret enables bearer auth on non-public routes when non-empty.
	JWTSecret []byte
}

// NewRouter builds the service's root handler.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	summarize := []Middleware{InputValidation()}
	if cfg.RateLimiter != nil {
		summarize = append(summarize, cfg.RateLimiter.Limit)
	}
	if cfg.MaxBodyBytes > 0 {
		summarize = append(summarize, LimitRequestBody(cfg.MaxBodyBytes))
	}
	if cfg.RequestTimeout > 0 {
		summarize = append(summarize, Timeout(cfg.RequestTimeout))
	}
	summarizeHandler := Chain(NewSummarizeHandler(cfg.Runner, logger), summarize...)

	mux := http.NewServeMux()
	mux.Handle("/{$}", summarizeHandler)
	mux.Handle("/summarize", summarizeHandler)
	mux.Handle("/portals", &PortalsHandler{Portals: cfg.Portals})
	mux.Handle("/health", &HealthHandler{Version: cfg.Version, Checks: cfg.Checks, Info: cfg.Info})
	mux.Handle("/ready", &ReadyHandler{Checks: cfg.Checks})
	mux.Handle("/live", LiveHandler{})
	mux.Handle("/metrics", MetricsHandler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})

	var root http.Handler = mux
	if len(cfg.JWTSecret) > 0 {
		root = auth.Authz(cfg.JWTSecret)(root)
	}

	return Chain(root,
		Recover(logger),
		requestid.Middleware,
		tracing.Middleware(tracing.MiddlewareOptions{
			Route:     traceRoute,
			RequestID: requestid.FromContext,
		}),
		Logging(logger),
		MetricsMiddleware,
		CORS(cfg.CORSOrigins),
	)
}

// traceRoute names the server span. "/" serves summarize too, so both paths
// share one span name.
func traceRoute(r *http.Request) string {
	if r.URL.Path == "/" {
		return "/summarize"
	}
	return routeLabel(r.URL.Path)
}
