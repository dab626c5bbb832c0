package http

import (
	"context"
	"log/slog"
	"time"
)

// StartRateLimitCleanup sweeps idle visitors from limiter every interval
// until ctx is done. Run it in its own goroutine.
func StartRateLimitCleanup(ctx context.Context, limiter *RateLimiter, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("rate limit cleanup started",
		slog.Duration("interval", interval),
		slog.Duration("idle", idle))

	for {
		select {
		case <-ctx.Done():
			slog.Info("rate limit cleanup stopped")
			return
		case <-ticker.C:
			remaining := limiter.Sweep(idle)
			slog.Debug("rate limit cleanup completed", slog.Int("active_visitors", remaining))
		}
	}
}
