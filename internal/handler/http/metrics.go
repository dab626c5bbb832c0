package http

import (
	"net/http"
	"strconv"
	"time"

	"nepsum/internal/observability/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// knownRoutes bounds the path label; anything else is reported as "other".
var knownRoutes = map[string]bool{
	"/":          true,
	"/summarize": true,
	"/portals":   true,
	"/health":    true,
	"/ready":     true,
	"/live":      true,
	"/metrics":   true,
}

func routeLabel(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// MetricsMiddleware records request count, latency and sizes per route.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.ActiveConnections.Inc()
		defer metrics.ActiveConnections.Dec()

		rec := newStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(rec, r)

		metrics.RecordHTTPRequest(
			r.Method,
			routeLabel(r.URL.Path),
			strconv.Itoa(rec.status),
			time.Since(start),
			int(r.ContentLength),
			rec.bytes,
		)
	})
}

// MetricsHandler serves the Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
