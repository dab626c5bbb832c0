// Command api serves the Nepali news summarization pipeline over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nepsum/internal/bootstrap"
	"nepsum/internal/config"
	hhttp "nepsum/internal/handler/http"
	"nepsum/internal/observability/logging"
	"nepsum/internal/observability/tracing"
	"nepsum/internal/resilience/retry"
)

const (
	serviceName          = "nepsum-api"
	rateLimitSweepPeriod = time.Minute
	rateLimitIdle        = 10 * time.Minute
	readinessTimeout     = 2 * time.Minute
)

func main() {
	logger := initLogger("info")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger = initLogger(cfg.Log.Level)

	shutdownTracing := tracing.Setup(serviceName, cfg.Tracing.SampleRatio)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("tracer shutdown failed", slog.Any("error", err))
		}
	}()

	app, err := bootstrap.Build(cfg, logger)
	if err != nil {
		logger.Error("failed to build application", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("close failed", slog.Any("error", err))
		}
	}()

	version := getVersion()
	logStartup(logger, cfg, app, version)
	waitForBackends(logger, app)

	// SERVER_RATE_LIMIT_RPS=0 disables rate limiting.
	var limiter *hhttp.RateLimiter
	if cfg.Server.RateLimitRPS > 0 {
		limiter = hhttp.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	}
	handler := setupServer(logger, cfg, app, limiter, version)
	runServer(logger, cfg.Server, handler, limiter)
}

func initLogger(level string) *slog.Logger {
	logger := logging.NewLogger(level)
	slog.SetDefault(logger)
	return logger
}

// getVersion returns the build version from VERSION, or "dev".
func getVersion() string {
	if v := os.Getenv("VERSION"); v != "" {
		return v
	}
	return "dev"
}

func logStartup(logger *slog.Logger, cfg *config.Config, app *bootstrap.App, version string) {
	attrs := []any{
		slog.String("version", version),
		slog.String("addr", cfg.Server.Addr),
		slog.Duration("request_timeout", cfg.Server.RequestTimeout),
		slog.Bool("auth_enabled", cfg.Auth.Enabled()),
		slog.Float64("rate_limit_rps", cfg.Server.RateLimitRPS),
		slog.Int("rate_limit_burst", cfg.Server.RateLimitBurst),
	}
	for k, v := range app.Info() {
		attrs = append(attrs, slog.Any(k, v))
	}
	logger.Info("starting api server", attrs...)
}

// waitForBackends probes the model backends until they answer. A backend
// that never becomes ready is logged but does not stop the server: /ready
// keeps reporting it until it recovers.
func waitForBackends(logger *slog.Logger, app *bootstrap.App) {
	ctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
	defer cancel()
	if err := app.WaitReady(ctx, retry.ReadinessConfig()); err != nil {
		logger.Warn("backends not ready at startup", slog.Any("error", err))
		return
	}
	logger.Info("backends ready")
}

func setupServer(logger *slog.Logger, cfg *config.Config, app *bootstrap.App, limiter *hhttp.RateLimiter, version string) http.Handler {
	checks := make(map[string]hhttp.CheckFunc)
	for name, fn := range app.Checks() {
		checks[name] = fn
	}

	var secret []byte
	if cfg.Auth.Enabled() {
		secret = []byte(cfg.Auth.JWTSecret)
	}

	return hhttp.NewRouter(hhttp.RouterConfig{
		Runner:         app.Pipeline,
		Logger:         logger,
		Version:        version,
		Portals:        app.Acquirer.Portals,
		Checks:         checks,
		Info:           app.Info(),
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RateLimiter:    limiter,
		JWTSecret:      secret,
	})
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(logger *slog.Logger, cfg config.ServerConfig, handler http.Handler, limiter *hhttp.RateLimiter) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if limiter != nil {
		go hhttp.StartRateLimitCleanup(ctx, limiter, rateLimitSweepPeriod, rateLimitIdle)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server failed", slog.Any("error", err))
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
