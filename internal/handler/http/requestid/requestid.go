// Package requestid tags each request with an ID that is echoed in the
// X-Request-ID header and attached to every log line for that request.
package requestid

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"

	RequestIDHeader = "X-Request-ID"
)

// Client-supplied IDs that do not match are replaced.
var validID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// FromContext returns the request ID, or "" when none is set.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// Attr returns the request ID as a log attribute.
func Attr(ctx context.Context) slog.Attr {
	return slog.String("request_id", FromContext(ctx))
}

// Middleware reuses a well-formed inbound X-Request-ID or generates a UUID.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validID.MatchString(id) {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}
