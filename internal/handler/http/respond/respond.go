// Package respond writes JSON responses. Error helpers sanitize messages so
// upstream details (provider keys, endpoint credentials) never reach clients.
package respond

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// JSON writes v as the response body with the given status code.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	enc := json.NewEncoder(w)
	// Devanagari output must stay readable.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Default().Error("failed to encode JSON response",
			slog.Int("status_code", code),
			slog.Any("error", err))
	}
}

// Error writes {"error": err.Error()} verbatim. Use only for messages that are
// known to be safe.
func Error(w http.ResponseWriter, code int, err error) {
	JSON(w, code, map[string]string{"error": err.Error()})
}

// safeFragments mark client-caused errors whose text can be returned as is.
var safeFragments = []string{
	"required",
	"invalid",
	"not found",
	"must be",
	"cannot be",
	"too long",
	"unsupported",
	"only supports",
}

// SafeError returns err's message for 4xx errors that look client-caused and
// a generic message otherwise. The real error is logged sanitized.
func SafeError(w http.ResponseWriter, code int, err error) {
	if err == nil {
		return
	}

	msg := err.Error()
	if code < 500 && isSafeMessage(msg) {
		JSON(w, code, map[string]string{"error": msg})
		return
	}

	slog.Default().Error("request failed",
		slog.String("status", http.StatusText(code)),
		slog.Int("code", code),
		slog.String("error", SanitizeError(err)))
	JSON(w, code, map[string]string{"error": genericMessage(code)})
}

func isSafeMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, frag := range safeFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

func genericMessage(code int) string {
	if code >= 500 {
		return "internal server error"
	}
	return strings.ToLower(http.StatusText(code))
}

// AppError carries a message written for the client alongside the internal
// cause, which is only logged.
type AppError struct {
	UserMsg string
	Err     error
	Code    int
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.UserMsg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates an AppError.
func NewAppError(code int, userMsg string, err error) *AppError {
	return &AppError{Code: code, UserMsg: userMsg, Err: err}
}

// Fail writes an AppError with its own code and message. Other errors fall
// back to SafeError with the given code.
func Fail(w http.ResponseWriter, code int, err error) {
	if err == nil {
		return
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Err != nil {
			level := slog.LevelWarn
			if appErr.Code >= 500 {
				level = slog.LevelError
			}
			slog.Default().Log(context.Background(), level, "request failed",
				slog.String("status", http.StatusText(appErr.Code)),
				slog.Int("code", appErr.Code),
				slog.String("user_message", appErr.UserMsg),
				slog.String("error", SanitizeError(appErr.Err)))
		}
		JSON(w, appErr.Code, map[string]string{"error": appErr.UserMsg})
		return
	}

	SafeError(w, code, err)
}
