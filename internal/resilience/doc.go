// Package resilience groups the fault tolerance helpers used around outbound
// calls.
//
// Subpackages:
//   - circuitbreaker: gobreaker wrappers with per-dependency presets (portal
//     scrapers, extractor API, model backends, reference providers, feeds)
//   - retry: exponential backoff with jitter, used outside the pipeline
//     stages only (backend readiness at startup, feed fetching)
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.BackendConfig("ModelA"))
//	result, err := cb.Execute(ctx, func() (interface{}, error) {
//	    return client.Generate(ctx, text, params)
//	})
//
//	err := retry.WithBackoff(ctx, retry.ReadinessConfig(), func() error {
//	    return client.Health(ctx)
//	})
package resilience
