package http

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"nepsum/internal/handler/http/respond"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// CheckFunc probes one dependency. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Version   string                 `json:"version"`
	Checks    map[string]CheckStatus `json:"checks"`
	Info      map[string]any         `json:"info,omitempty"`
}

// CheckStatus is the outcome of one CheckFunc.
type CheckStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// runChecks runs every check concurrently under timeout.
func runChecks(ctx context.Context, checks map[string]CheckFunc, timeout time.Duration) (map[string]CheckStatus, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]CheckStatus, len(checks))
		healthy = true
	)
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check CheckFunc) {
			defer wg.Done()
			start := time.Now()
			err := check(ctx)
			st := CheckStatus{Status: statusHealthy, LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				st.Status = statusUnhealthy
				st.Message = respond.SanitizeError(err)
			}

			mu.Lock()
			defer mu.Unlock()
			results[name] = st
			if err != nil {
				healthy = false
			}
		}(name, check)
	}
	wg.Wait()
	return results, healthy
}

// HealthHandler reports every dependency with details. It returns 503 when
// any check fails.
type HealthHandler struct {
	Version string
	Checks  map[string]CheckFunc
	Info    map[string]any
	Timeout time.Duration
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	checks, ok := runChecks(r.Context(), h.Checks, timeout)
	resp := HealthResponse{
		Status:    statusHealthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.Version,
		Checks:    checks,
		Info:      h.Info,
	}
	code := http.StatusOK
	if !ok {
		resp.Status = statusUnhealthy
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	respond.JSON(w, code, resp)
}

// ReadyHandler answers "ready" once every check passes, for load balancers.
type ReadyHandler struct {
	Checks  map[string]CheckFunc
	Timeout time.Duration
}

func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	checks, ok := runChecks(r.Context(), h.Checks, timeout)
	if !ok {
		failed := make([]string, 0, len(checks))
		for name, st := range checks {
			if st.Status != statusHealthy {
				failed = append(failed, name)
			}
		}
		sort.Strings(failed)
		respond.JSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"failed": failed,
		})
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ready")); err != nil {
		slog.Warn("ready: failed to write response", slog.Any("error", err))
	}
}

// LiveHandler always answers "alive".
type LiveHandler struct{}

func (LiveHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("alive")); err != nil {
		slog.Warn("alive: failed to write response", slog.Any("error", err))
	}
}

// PortalsHandler lists portal identifiers that have dedicated extractors.
type PortalsHandler struct {
	Portals func() []string
}

func (h *PortalsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		respond.JSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "This endpoint only supports GET requests."})
		return
	}
	var portals []string
	if h.Portals != nil {
		portals = h.Portals()
	}
	if portals == nil {
		portals = []string{}
	}
	respond.JSON(w, http.StatusOK, map[string][]string{"portals": portals})
}
