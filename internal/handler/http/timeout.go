package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"nepsum/internal/handler/http/respond"
)

// Timeout bounds each request to d. When the deadline passes before the
// handler has written anything, the client gets 504 and later writes from
// the handler are discarded. The handler's context is cancelled either way,
// which aborts in-flight backend and provider calls.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			tw := &timeoutWriter{w: w, h: make(http.Header)}
			done := make(chan struct{})
			panicked := make(chan any, 1)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				next.ServeHTTP(tw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case p := <-panicked:
				panic(p)
			case <-done:
				tw.mu.Lock()
				defer tw.mu.Unlock()
				tw.flush()
			case <-ctx.Done():
				tw.mu.Lock()
				defer tw.mu.Unlock()
				tw.timedOut = true
				respond.JSON(w, http.StatusGatewayTimeout, map[string]string{"error": "request timed out"})
			}
		})
	}
}

// timeoutWriter buffers the handler's response until it completes.
type timeoutWriter struct {
	w        http.ResponseWriter
	h        http.Header
	mu       sync.Mutex
	buf      []byte
	code     int
	timedOut bool
}

func (t *timeoutWriter) Header() http.Header { return t.h }

func (t *timeoutWriter) WriteHeader(code int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timedOut || t.code != 0 {
		return
	}
	t.code = code
}

func (t *timeoutWriter) Write(b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if t.code == 0 {
		t.code = http.StatusOK
	}
	t.buf = append(t.buf, b...)
	return len(b), nil
}

// flush copies the buffered response to the real writer. Caller holds mu.
func (t *timeoutWriter) flush() {
	dst := t.w.Header()
	for k, v := range t.h {
		dst[k] = v
	}
	if t.code == 0 {
		t.code = http.StatusOK
	}
	t.w.WriteHeader(t.code)
	_, _ = t.w.Write(t.buf)
}
