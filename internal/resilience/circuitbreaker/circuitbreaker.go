// Package circuitbreaker provides circuit breaker implementations for external service calls.
// It uses the github.com/sony/gobreaker library to prevent cascading failures.
package circuitbreaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"nepsum/internal/observability/metrics"

	"github.com/sony/gobreaker"
)

// Config holds the configuration for a circuit breaker.
type Config struct {
	// Name is the circuit breaker name for logging and metrics
	Name string

	// MaxRequests is the maximum number of requests allowed in half-open state
	MaxRequests uint32

	// Interval is the cyclic period of the closed state to clear success/failure counts
	Interval time.Duration

	// Timeout is how long to wait in open state before trying again
	Timeout time.Duration

	// FailureThreshold is the failure ratio threshold to trip the circuit
	// For example, 0.6 means 60% failure rate
	FailureThreshold float64

	// MinRequests is the minimum number of requests before calculating failure ratio
	MinRequests uint32
}

// DefaultConfig returns a default configuration for circuit breakers.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// PortalScraperConfig returns configuration for one news portal's page
// extractor. Each portal gets its own breaker so that a layout change on one
// site does not block the others.
func PortalScraperConfig(portal string) Config {
	return Config{
		Name:             "portal-" + portal,
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          5 * time.Minute,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// ExtractorAPIConfig returns configuration for the generic extraction API.
func ExtractorAPIConfig() Config {
	return Config{
		Name:             "extractor-api",
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// BackendConfig returns configuration for a summarization backend.
// Inference servers fail hard when they run out of memory, so the breaker
// trips after fewer requests than the HTTP APIs.
func BackendConfig(backend string) Config {
	return Config{
		Name:             "backend-" + backend,
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

// ReferenceConfig returns configuration for a reference summary provider.
func ReferenceConfig(provider string) Config {
	return Config{
		Name:             "reference-" + provider,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// FeedFetchConfig returns configuration optimized for RSS feed fetching.
func FeedFetchConfig() Config {
	return Config{
		Name:             "feed-fetch",
		MaxRequests:      5,
		Interval:         60 * time.Second,
		Timeout:          120 * time.Second,
		FailureThreshold: 0.7,
		MinRequests:      10,
	}
}

// CircuitBreaker wraps gobreaker.CircuitBreaker with additional functionality.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New creates a new circuit breaker with the given configuration.
func New(cfg Config) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		IsSuccessful: func(err error) bool {
			var done *callerDone
			return err == nil || errors.As(err, &done)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			metrics.SetCircuitBreakerState(name, int(to))
		},
	}

	metrics.SetCircuitBreakerState(cfg.Name, int(gobreaker.StateClosed))

	return &CircuitBreaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		name:    cfg.Name,
	}
}

// callerDone marks an error returned after the caller's context ended. The
// dependency did not fail, so the breaker does not count it.
type callerDone struct{ err error }

func (e *callerDone) Error() string { return e.err.Error() }
func (e *callerDone) Unwrap() error { return e.err }

// Execute runs fn through the circuit breaker. If the circuit is open, it
// returns ErrOpenState immediately.
//
// ctx is the caller's context, not one carrying the dependency's own
// timeout: an error fn returns once ctx has ended (client gone, request
// deadline, sibling chunk failed) is passed through unchanged and not counted
// as a failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	result, err := cb.breaker.Execute(func() (interface{}, error) {
		res, err := fn()
		if err != nil && ctx.Err() != nil {
			return res, &callerDone{err: err}
		}
		return res, err
	})
	if done, ok := err.(*callerDone); ok {
		return result, done.err
	}
	return result, err
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}

// Name returns the name of the circuit breaker.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// IsOpen returns true if the circuit breaker is in the open state.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.breaker.State() == gobreaker.StateOpen
}

// IsOpenError reports whether err was returned because the breaker rejected
// the call (open, or half-open with its probe quota used up).
func IsOpenError(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
