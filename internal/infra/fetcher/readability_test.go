package fetcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"nepsum/internal/infra/fetcher"
	"nepsum/internal/resilience/circuitbreaker"
	"nepsum/internal/resilience/retry"
	"nepsum/internal/usecase/acquire"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>बजेट सार्वजनिक</title></head>
<body>
	<nav><a href="/">गृहपृष्ठ</a></nav>
	<article>
		<h1>सरकारले नयाँ आर्थिक वर्षको बजेट सार्वजनिक गर्‍यो</h1>
		<p>अर्थमन्त्रीले संघीय संसदमा आगामी आर्थिक वर्षको बजेट प्रस्तुत गर्नुभयो। बजेटमा पूर्वाधार विकास, शिक्षा र स्वास्थ्य क्षेत्रलाई प्राथमिकता दिइएको छ।</p>
		<p>सरकारले कृषि क्षेत्रमा अनुदान बढाउने र साना उद्योगलाई सहुलियत ऋण उपलब्ध गराउने घोषणा गरेको छ। विपक्षी दलहरूले भने बजेट महत्वाकांक्षी भएको टिप्पणी गरेका छन्।</p>
		<p>अर्थशास्त्रीहरूका अनुसार राजस्व संकलनको लक्ष्य पूरा नभएमा बजेट कार्यान्वयनमा चुनौती आउन सक्छ। चालु खर्च नियन्त्रण गर्नुपर्ने उनीहरूको सुझाव छ।</p>
	</article>
	<footer>सर्वाधिकार सुरक्षित</footer>
</body>
</html>`

func testConfig() fetcher.ContentFetchConfig {
	cfg := fetcher.DefaultConfig()
	cfg.DenyPrivateIPs = false // httptest servers listen on loopback
	return cfg
}

func TestReadability_FetchContent_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "NepsumBot/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer server.Close()

	content, err := fetcher.NewReadabilityFetcher(testConfig()).FetchContent(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Contains(t, content, "अर्थमन्त्रीले संघीय संसदमा")
	assert.Contains(t, content, "चालु खर्च नियन्त्रण")
	assert.Equal(t, strings.TrimSpace(content), content)
}

func TestReadability_FetchContent_PrivateIPDenied(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	_, err := fetcher.NewReadabilityFetcher(fetcher.DefaultConfig()).FetchContent(context.Background(), server.URL)

	assert.ErrorIs(t, err, acquire.ErrPrivateIP)
	assert.Zero(t, hits.Load(), "no request may reach a private address")
}

func TestReadability_FetchContent_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := fetcher.NewReadabilityFetcher(testConfig()).FetchContent(context.Background(), server.URL)

	var httpErr *retry.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
}

func TestReadability_FetchContent_BodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>" + strings.Repeat("क", 4096) + "</p></body></html>"))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.MaxBodySize = 1024
	_, err := fetcher.NewReadabilityFetcher(cfg).FetchContent(context.Background(), server.URL)

	assert.ErrorIs(t, err, acquire.ErrBodyTooLarge)
}

func TestReadability_FetchContent_TooManyRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.String(), http.StatusFound)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.MaxRedirects = 2
	_, err := fetcher.NewReadabilityFetcher(cfg).FetchContent(context.Background(), server.URL)

	assert.ErrorIs(t, err, acquire.ErrTooManyRedirects)
}

func TestReadability_FetchContent_FollowsRedirect(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer final.Close()

	initial := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusMovedPermanently)
	}))
	defer initial.Close()

	content, err := fetcher.NewReadabilityFetcher(testConfig()).FetchContent(context.Background(), initial.URL)

	require.NoError(t, err)
	assert.Contains(t, content, "बजेट")
}

func TestReadability_FetchContent_NoReadableText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><head></head><body></body></html>"))
	}))
	defer server.Close()

	_, err := fetcher.NewReadabilityFetcher(testConfig()).FetchContent(context.Background(), server.URL)

	assert.ErrorIs(t, err, acquire.ErrExtractionFailed)
}

func TestReadability_FetchContent_CircuitBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := fetcher.NewReadabilityFetcher(testConfig())
	for i := 0; i < 5; i++ {
		_, err := f.FetchContent(context.Background(), server.URL)
		require.Error(t, err)
	}
	before := hits.Load()

	_, err := f.FetchContent(context.Background(), server.URL)

	require.Error(t, err)
	assert.True(t, circuitbreaker.IsOpenError(err), "got %v", err)
	assert.Equal(t, before, hits.Load(), "open breaker must not reach the server")
}
