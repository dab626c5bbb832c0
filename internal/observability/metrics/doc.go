// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - HTTP request metrics (duration, count, size)
//   - Pipeline metrics (summaries, chunks, backend calls)
//   - Acquisition and reference provider metrics
//   - ROUGE score distributions
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "nepsum/internal/observability/metrics"
//
//	start := time.Now()
//	summary, err := backend.Generate(ctx, chunk, params)
//	metrics.RecordBackendCall("ModelA", err == nil, time.Since(start))
package metrics
