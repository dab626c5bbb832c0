package http

import (
	"mime"
	"net/http"

	"nepsum/internal/handler/http/respond"
)

const (
	maxAuthHeaderBytes = 8192
	maxPathBytes       = 2048
)

// InputValidation rejects oversized headers and paths, and POST bodies that
// declare a non-JSON content type. A missing Content-Type is accepted.
func InputValidation() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(r.Header.Get("Authorization")) > maxAuthHeaderBytes {
				respond.JSON(w, http.StatusBadRequest, map[string]string{"error": "authorization header too large"})
				return
			}

			if len(r.URL.Path) > maxPathBytes {
				respond.JSON(w, http.StatusRequestURITooLong, map[string]string{"error": "URI too long"})
				return
			}

			if r.Method == http.MethodPost {
				if ct := r.Header.Get("Content-Type"); ct != "" {
					mt, _, err := mime.ParseMediaType(ct)
					if err != nil || mt != "application/json" {
						respond.JSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": "unsupported content type, expected application/json"})
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
