package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	authRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_requests_total",
			Help: "Token checks on protected routes by result",
		},
		[]string{"result", "reason"},
	)

	authCheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auth_check_duration_seconds",
			Help:    "Token validation duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
	)
)

// RecordAuthRequest counts one token check. reason is empty on success.
func RecordAuthRequest(result, reason string) {
	authRequestsTotal.WithLabelValues(result, reason).Inc()
}

// RecordAuthCheckDuration observes how long a token check took.
func RecordAuthCheckDuration(seconds float64) {
	authCheckDuration.Observe(seconds)
}
