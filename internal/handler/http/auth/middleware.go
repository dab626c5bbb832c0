package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"nepsum/internal/handler/http/respond"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const ctxSubject ctxKey = "subject"

// SubjectFromContext returns the authenticated subject, or "".
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxSubject).(string)
	return s
}

// Authz requires a valid token on every non-public route.
func Authz(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || IsPublicEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sub, err := ValidateToken(r.Header.Get("Authorization"), secret)
			RecordAuthCheckDuration(time.Since(start).Seconds())
			if err != nil {
				RecordAuthRequest("failure", failureReason(err))
				respond.Fail(w, http.StatusUnauthorized, respond.NewAppError(http.StatusUnauthorized, "unauthorized", err))
				return
			}

			RecordAuthRequest("success", "")
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxSubject, sub)))
		})
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "missing"
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	default:
		return "invalid"
	}
}
