// Package observability groups logging, Prometheus metrics and OpenTelemetry
// tracing for the summarization service.
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics registry and recorders
//   - tracing: OpenTelemetry tracer, provider setup and HTTP middleware
package observability
