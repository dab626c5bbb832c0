// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track HTTP request patterns and performance
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestSize measures HTTP request body size in bytes
	HTTPRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// HTTPResponseSize measures HTTP response body size in bytes
	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// ActiveConnections tracks the number of active HTTP connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)
)

// Pipeline metrics track summarization requests end to end
var (
	// SummariesTotal counts pipeline runs by backend, length mode and status
	SummariesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nepsum_summaries_total",
			Help: "Total number of summarization pipeline runs",
		},
		[]string{"backend", "length", "status"},
	)

	// PipelineDuration measures a full pipeline run including acquisition and scoring
	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nepsum_pipeline_duration_seconds",
			Help:    "Time taken by a full summarization pipeline run",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"length"},
	)

	// ChunksPerRequest observes how many chunks a Long-mode text produced
	ChunksPerRequest = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nepsum_chunks_per_request",
			Help:    "Number of chunks produced per long-mode request",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
		},
	)

	// BackendCallDuration measures single generation calls
	BackendCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nepsum_backend_call_duration_seconds",
			Help:    "Duration of a single backend generation call",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"backend", "status"},
	)

	// AcquisitionsTotal counts article acquisitions by portal and extractor
	AcquisitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nepsum_acquisitions_total",
			Help: "Total number of article acquisitions",
		},
		[]string{"portal", "source", "status"},
	)

	// AcquisitionDuration measures article acquisition time
	AcquisitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nepsum_acquisition_duration_seconds",
			Help:    "Time taken to acquire article text",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8},
		},
		[]string{"source"},
	)

	// ReferenceRequestsTotal counts reference summary calls by provider and status
	ReferenceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nepsum_reference_requests_total",
			Help: "Total number of reference summary requests",
		},
		[]string{"provider", "status"},
	)

	// RougeFMeasure observes the F-measure of every scored summary
	RougeFMeasure = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nepsum_rouge_fmeasure",
			Help:    "ROUGE F-measure of produced summaries against the reference",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		},
		[]string{"metric"},
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration, requestSize, responseSize int) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())

	if requestSize > 0 {
		HTTPRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	}
	if responseSize > 0 {
		HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
	}
}

// CircuitBreakerState exposes each breaker's state: 0 closed, 1 half-open, 2 open.
var CircuitBreakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "nepsum_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	},
	[]string{"name"},
)

// SetCircuitBreakerState records the state of the named breaker.
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
