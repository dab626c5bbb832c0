package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nepsum/internal/handler/http/requestid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestChain_Order(t *testing.T) {
	var order []string
	mk := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mk("outer"), mk("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow("10.0.0.1"), "request %d within burst", i+1)
	}
	assert.False(t, rl.allow("10.0.0.1"), "burst exhausted")
	assert.True(t, rl.allow("10.0.0.2"), "other IPs have their own bucket")

	now = now.Add(time.Second)
	assert.True(t, rl.allow("10.0.0.1"), "token refilled after one second")
}

func TestRateLimiter_Limit(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	h := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/summarize", nil)
		req.RemoteAddr = "192.0.2.10:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do().Code)
	rec := do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())
}

func TestRateLimiter_Concurrent(t *testing.T) {
	rl := NewRateLimiter(0.001, 10)
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.allow("198.51.100.1") {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), allowed.Load())
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.allow("a")
	now = now.Add(5 * time.Minute)
	rl.allow("b")

	assert.Equal(t, 1, rl.Sweep(time.Minute))
	assert.Equal(t, 0, rl.Sweep(-time.Second))
}

func TestNewRateLimiter_MinimumBurst(t *testing.T) {
	rl := NewRateLimiter(1, 0)
	assert.Equal(t, 1, rl.burst)
}

func TestExtractIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xRealIP    string
		want       string
	}{
		{name: "remote addr only", remoteAddr: "192.168.1.1:12345", want: "192.168.1.1"},
		{name: "forwarded for first entry", remoteAddr: "10.0.0.1:1", xff: "203.0.113.5, 10.0.0.2", want: "203.0.113.5"},
		{name: "forwarded for single", remoteAddr: "10.0.0.1:1", xff: "203.0.113.6", want: "203.0.113.6"},
		{name: "invalid forwarded falls back to real ip", remoteAddr: "10.0.0.1:1", xff: "garbage", xRealIP: "203.0.113.7", want: "203.0.113.7"},
		{name: "real ip", remoteAddr: "10.0.0.1:1", xRealIP: "203.0.113.8", want: "203.0.113.8"},
		{name: "ipv6 remote", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "remote without port", remoteAddr: "192.168.1.9", want: "192.168.1.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}
			assert.Equal(t, tt.want, extractIP(req))
		})
	}
}

func TestParseFirstIP(t *testing.T) {
	assert.Equal(t, "203.0.113.1", parseFirstIP(" 203.0.113.1 ,10.0.0.1"))
	assert.Equal(t, "", parseFirstIP("not-an-ip, 10.0.0.1"))
	assert.Equal(t, "2001:db8::2", parseFirstIP("2001:db8::2"))
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := requestid.Middleware(Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	})))

	req := httptest.NewRequest(http.MethodPost, "/summarize?x=1", nil)
	req.Header.Set(requestid.RequestIDHeader, "req-1")
	req.RemoteAddr = "192.0.2.1:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request completed", entry["msg"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/summarize", entry["path"])
	assert.Equal(t, "192.0.2.1", entry["remote_addr"])
	assert.EqualValues(t, 201, entry["status"])
	assert.EqualValues(t, 5, entry["bytes"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestLogging_ServerErrorLogsAtError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
}

func TestRecover(t *testing.T) {
	tests := []struct {
		name       string
		panicValue any
	}{
		{name: "string", panicValue: "something went wrong"},
		{name: "error", panicValue: fmt.Errorf("test error")},
		{name: "number", panicValue: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Recover(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				panic(tt.panicValue)
			}))

			rec := httptest.NewRecorder()
			require.NotPanics(t, func() {
				h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			})
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
		})
	}
}

func TestRecover_NoPanic(t *testing.T) {
	h := Recover(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestLimitRequestBody(t *testing.T) {
	tests := []struct {
		name     string
		maxBytes int64
		body     string
		wantErr  bool
	}{
		{name: "under limit", maxBytes: 100, body: "small", wantErr: false},
		{name: "at limit", maxBytes: 5, body: "exact", wantErr: false},
		{name: "over limit", maxBytes: 5, body: "too large", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var readErr error
			h := LimitRequestBody(tt.maxBytes)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, readErr = io.ReadAll(r.Body)
			}))

			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tt.body))
			h.ServeHTTP(httptest.NewRecorder(), req)

			if tt.wantErr {
				var maxErr *http.MaxBytesError
				assert.ErrorAs(t, readErr, &maxErr)
			} else {
				assert.NoError(t, readErr)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("wildcard", func(t *testing.T) {
		h := CORS([]string{"*"})(ok)
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Origin", "https://app.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("listed origin", func(t *testing.T) {
		h := CORS([]string{"https://app.example"})(ok)
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Origin", "https://app.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	})

	t.Run("unlisted origin gets no headers", func(t *testing.T) {
		h := CORS([]string{"https://app.example"})(ok)
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("preflight", func(t *testing.T) {
		h := CORS([]string{"*"})(ok)
		req := httptest.NewRequest(http.MethodOptions, "/summarize", nil)
		req.Header.Set("Origin", "https://app.example")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
		assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
	})
}
