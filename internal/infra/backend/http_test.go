package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"nepsum/internal/config"
	"nepsum/internal/domain/entity"
	"nepsum/internal/resilience/retry"
	"nepsum/internal/usecase/summarize"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func httpConfig(endpoint string) config.BackendConfig {
	return config.BackendConfig{
		Transport:   config.TransportHTTP,
		Endpoint:    endpoint,
		Token:       "hf_token",
		Model:       "mt5",
		Timeout:     5 * time.Second,
		InputPrefix: "summarize: ",
		HealthPath:  "/health",
	}
}

func TestHTTPBackend_Generate(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer hf_token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`[{"summary_text": " सारांश। "}]`))
	}))
	defer server.Close()

	b := NewHTTPBackend(entity.ModelA, httpConfig(server.URL), nil)
	summary, err := b.Generate(context.Background(), "लामो पाठ", summarize.ShortParams())

	require.NoError(t, err)
	assert.Equal(t, "सारांश।", summary)
	assert.Equal(t, generateRequest{
		Inputs: "summarize: लामो पाठ",
		Model:  "mt5",
		Parameters: generateParameters{
			MaxLength:      512,
			NumBeams:       5,
			LengthPenalty:  0.1,
			EarlyStopping:  true,
			Truncation:     true,
			MaxInputLength: 512,
		},
	}, got)
}

func TestHTTPBackend_Generate_ResponseShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "list summary_text", body: `[{"summary_text":"क"}]`, want: "क"},
		{name: "object summary_text", body: `{"summary_text":"ख"}`, want: "ख"},
		{name: "list generated_text", body: `[{"generated_text":"ग"}]`, want: "ग"},
		{name: "object generated_text", body: `{"generated_text":"घ"}`, want: "घ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			b := NewHTTPBackend(entity.ModelB, httpConfig(server.URL), nil)
			got, err := b.Generate(context.Background(), "x", summarize.LongParams())

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTTPBackend_Generate_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		unavailable bool
		httpStatus  int
	}{
		{name: "empty list", status: http.StatusOK, body: `[]`},
		{name: "empty summary", status: http.StatusOK, body: `[{"summary_text":"  "}]`},
		{name: "model error", status: http.StatusOK, body: `{"error":"CUDA out of memory"}`},
		{name: "garbage", status: http.StatusOK, body: `<html>`},
		{name: "loading", status: http.StatusServiceUnavailable, body: `{"error":"model is loading"}`, unavailable: true, httpStatus: 503},
		{name: "bad request", status: http.StatusBadRequest, body: `{}`, httpStatus: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			b := NewHTTPBackend(entity.ModelA, httpConfig(server.URL), nil)
			_, err := b.Generate(context.Background(), "x", summarize.ShortParams())

			require.Error(t, err)
			assert.Equal(t, tt.unavailable, errors.Is(err, entity.ErrBackendUnavailable))
			if tt.httpStatus != 0 {
				var httpErr *retry.HTTPError
				require.ErrorAs(t, err, &httpErr)
				assert.Equal(t, tt.httpStatus, httpErr.StatusCode)
			}
		})
	}
}

func TestHTTPBackend_Generate_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	b := NewHTTPBackend(entity.ModelA, httpConfig(endpoint), nil)
	_, err := b.Generate(context.Background(), "x", summarize.ShortParams())

	assert.ErrorIs(t, err, entity.ErrBackendUnavailable)
}

func TestHTTPBackend_Generate_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	cfg := httpConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond
	b := NewHTTPBackend(entity.ModelA, cfg, nil)
	_, err := b.Generate(context.Background(), "x", summarize.ShortParams())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPBackend_CircuitBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	b := NewHTTPBackend(entity.ModelB, httpConfig(server.URL), nil)
	for i := 0; i < 3; i++ {
		_, err := b.Generate(context.Background(), "x", summarize.ShortParams())
		require.Error(t, err)
	}
	before := hits.Load()

	_, err := b.Generate(context.Background(), "x", summarize.ShortParams())

	assert.ErrorIs(t, err, entity.ErrBackendUnavailable)
	assert.Equal(t, before, hits.Load())
}

func TestHTTPBackend_CallerDeadlineDoesNotOpenBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(200 * time.Millisecond):
		}
		_, _ = w.Write([]byte(`[{"summary_text":"सारांश।"}]`))
	}))
	defer server.Close()

	b := NewHTTPBackend(entity.ModelA, httpConfig(server.URL), nil)
	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, err := b.Generate(ctx, "x", summarize.ShortParams())
		cancel()
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.NotErrorIs(t, err, entity.ErrBackendUnavailable)
	}

	summary, err := b.Generate(context.Background(), "x", summarize.ShortParams())

	require.NoError(t, err)
	assert.Equal(t, "सारांश।", summary)
}

func TestHTTPBackend_Health(t *testing.T) {
	ready := atomic.Bool{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate/health", r.URL.Path)
		if !ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	b := NewHTTPBackend(entity.ModelA, httpConfig(server.URL+"/generate/"), nil)

	assert.ErrorIs(t, b.Health(context.Background()), entity.ErrBackendUnavailable)
	ready.Store(true)
	assert.NoError(t, b.Health(context.Background()))
	assert.NoError(t, b.Close())
}

func TestHTTPBackend_Health_NoPath(t *testing.T) {
	cfg := httpConfig("http://127.0.0.1:1")
	cfg.HealthPath = ""
	assert.NoError(t, NewHTTPBackend(entity.ModelA, cfg, nil).Health(context.Background()))
}
