package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"nepsum/internal/config"
	"nepsum/internal/domain/entity"
	"nepsum/internal/resilience/retry"
	"nepsum/internal/usecase/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// fakeInference answers health probes on /health and generation on /.
func fakeInference(t *testing.T, unhealthyProbes int32) *httptest.Server {
	t.Helper()
	var probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			if probes.Add(1) <= unhealthyProbes {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"summary_text":"बजेट सार्वजनिक।"}]`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func loadConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(env)
	require.NoError(t, err)
	return cfg
}

func TestBuild_RunsPipelineAgainstHTTPBackend(t *testing.T) {
	srv := fakeInference(t, 0)
	cfg := loadConfig(t, map[string]string{
		"MODEL_A_ENDPOINT":  srv.URL,
		"MODEL_B_TRANSPORT": config.TransportDisabled,
	})

	app, err := Build(cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	assert.Contains(t, app.Backends, entity.ModelA)
	assert.NotContains(t, app.Backends, entity.ModelB)
	assert.Nil(t, app.Reference)
	assert.False(t, app.Pipeline.EvaluationEnabled())
	assert.Equal(t, FallbackReadability, app.Acquirer.FallbackName)
	assert.NotEmpty(t, app.Acquirer.Portals())

	res, err := app.Pipeline.Run(context.Background(), pipeline.Request{
		Text:     "सरकारले  आज\nबजेट ल्यायो।",
		Length:   entity.Short,
		Backend:  entity.ModelA,
		Evaluate: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "बजेट सार्वजनिक।", res.Summary.Text)
	assert.Equal(t, 1, res.Summary.ChunkCount)
	assert.Nil(t, res.Scores)

	_, err = app.Pipeline.Run(context.Background(), pipeline.Request{
		Text:    "सरकारले बजेट ल्यायो।",
		Length:  entity.Short,
		Backend: entity.ModelB,
	})
	var selErr *entity.InvalidSelectionError
	assert.ErrorAs(t, err, &selErr)
}

func TestBuild_ExtractorAPIFallback(t *testing.T) {
	srv := fakeInference(t, 0)
	cfg := loadConfig(t, map[string]string{
		"MODEL_A_ENDPOINT":  srv.URL,
		"MODEL_B_ENDPOINT":  srv.URL,
		"EXTRACTOR_API_KEY": "key",
	})

	app, err := Build(cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	assert.Equal(t, FallbackExtractorAPI, app.Acquirer.FallbackName)
	assert.Len(t, app.Backends, 2)
}

func TestBuild_ReferenceProvider(t *testing.T) {
	srv := fakeInference(t, 0)
	cfg := loadConfig(t, map[string]string{
		"MODEL_A_ENDPOINT":   srv.URL,
		"MODEL_B_TRANSPORT":  config.TransportDisabled,
		"REFERENCE_PROVIDER": config.ProviderClaude,
		"REFERENCE_API_KEY":  "sk-ant-test",
	})

	app, err := Build(cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	require.NotNil(t, app.Reference)
	assert.True(t, app.Pipeline.EvaluationEnabled())
	assert.Equal(t, config.ProviderClaude, app.Info()["reference_provider"])

	checks := app.Checks()
	assert.Contains(t, checks, "backend:ModelA")
	assert.Contains(t, checks, "reference:claude")
	for name, check := range checks {
		assert.NoError(t, check(context.Background()), name)
	}
}

func TestBuild_BadPortalsPath(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		"MODEL_A_ENDPOINT": "http://127.0.0.1:1",
		"MODEL_B_ENDPOINT": "http://127.0.0.1:1",
		"PORTALS_CONFIG":   "/does/not/exist.yaml",
	})

	_, err := Build(cfg, quietLogger())
	assert.ErrorContains(t, err, "load portals")
}

func TestInfo(t *testing.T) {
	srv := fakeInference(t, 0)
	cfg := loadConfig(t, map[string]string{
		"MODEL_A_ENDPOINT": srv.URL,
		"MODEL_B_ENDPOINT": srv.URL,
	})
	app, err := Build(cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	info := app.Info()
	assert.Equal(t, []string{"ModelA", "ModelB"}, info["backends"])
	assert.Equal(t, FallbackReadability, info["fallback_extractor"])
	assert.Equal(t, false, info["evaluation_enabled"])
	assert.NotContains(t, info, "reference_provider")
}

func fastRetry(attempts int) retry.Config {
	return retry.Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWaitReady(t *testing.T) {
	t.Run("becomes ready after retries", func(t *testing.T) {
		srv := fakeInference(t, 2)
		cfg := loadConfig(t, map[string]string{
			"MODEL_A_ENDPOINT":  srv.URL,
			"MODEL_B_TRANSPORT": config.TransportDisabled,
		})
		app, err := Build(cfg, quietLogger())
		require.NoError(t, err)
		t.Cleanup(func() { _ = app.Close() })

		assert.NoError(t, app.WaitReady(context.Background(), fastRetry(5)))
	})

	t.Run("gives up", func(t *testing.T) {
		srv := fakeInference(t, 100)
		cfg := loadConfig(t, map[string]string{
			"MODEL_A_ENDPOINT":  srv.URL,
			"MODEL_B_TRANSPORT": config.TransportDisabled,
		})
		app, err := Build(cfg, quietLogger())
		require.NoError(t, err)
		t.Cleanup(func() { _ = app.Close() })

		err = app.WaitReady(context.Background(), fastRetry(3))
		assert.ErrorContains(t, err, "backend ModelA not ready")
	})
}

func TestFetchConfig(t *testing.T) {
	got := FetchConfig(config.FetchConfig{
		Timeout:        3 * time.Second,
		MaxBodySize:    2048,
		MaxRedirects:   2,
		DenyPrivateIPs: true,
		UserAgent:      "ua",
	})
	assert.Equal(t, 3*time.Second, got.Timeout)
	assert.Equal(t, int64(2048), got.MaxBodySize)
	assert.Equal(t, 2, got.MaxRedirects)
	assert.True(t, got.DenyPrivateIPs)
	assert.Equal(t, "ua", got.UserAgent)
}
