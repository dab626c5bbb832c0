// Package logging provides structured logging utilities with context propagation.
//
// Example usage:
//
//	logger := logging.NewLogger(cfg.Log.Level)
//	slog.SetDefault(logger)
//
//	func handle(ctx context.Context) {
//	    logger := logging.WithTrace(ctx, logging.WithRequestID(ctx, slog.Default()))
//	    logger.Info("processing request")
//	}
package logging
