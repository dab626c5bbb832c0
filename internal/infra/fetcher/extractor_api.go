package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nepsum/internal/resilience/circuitbreaker"
	"nepsum/internal/usecase/acquire"
)

// DefaultExtractorEndpoint is the hosted article extraction endpoint.
const DefaultExtractorEndpoint = "https://extractorapi.com/api/v1/extractor"

// ExtractorAPI implements acquire.ContentFetcher against a hosted article
// extraction API. The API is called as
//
//	GET <endpoint>?apikey=<key>&url=<article url>
//
// and answers with a JSON object whose "text" field holds the article body.
type ExtractorAPI struct {
	endpoint       string
	apiKey         string
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	config         ContentFetchConfig
	apiConfig      ContentFetchConfig
}

type extractorResponse struct {
	URL    string `json:"url"`
	Status string `json:"status"`
	Title  string `json:"title"`
	Text   string `json:"text"`
}

// NewExtractorAPI creates an extractor API client. An empty endpoint selects
// DefaultExtractorEndpoint. timeout overrides config.Timeout when positive.
func NewExtractorAPI(endpoint, apiKey string, timeout time.Duration, config ContentFetchConfig) *ExtractorAPI {
	if endpoint == "" {
		endpoint = DefaultExtractorEndpoint
	}
	if timeout > 0 {
		config.Timeout = timeout
	}
	// The endpoint is operator configured, so only the article URL is
	// checked for private addresses.
	apiConfig := config
	apiConfig.DenyPrivateIPs = false

	return &ExtractorAPI{
		endpoint:       endpoint,
		apiKey:         apiKey,
		client:         NewHTTPClient(apiConfig),
		circuitBreaker: circuitbreaker.New(circuitbreaker.ExtractorAPIConfig()),
		config:         config,
		apiConfig:      apiConfig,
	}
}

// FetchContent asks the extraction API for the text of urlStr.
func (e *ExtractorAPI) FetchContent(ctx context.Context, urlStr string) (string, error) {
	if err := ValidateURL(ctx, urlStr, e.config.DenyPrivateIPs); err != nil {
		return "", err
	}

	result, err := e.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return e.doFetch(ctx, urlStr)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (e *ExtractorAPI) doFetch(ctx context.Context, urlStr string) (interface{}, error) {
	q := url.Values{}
	q.Set("apikey", e.apiKey)
	q.Set("url", urlStr)
	reqURL := e.endpoint + "?" + q.Encode()

	body, _, err := Get(ctx, e.client, e.apiConfig, reqURL, http.Header{"Accept": {"application/json"}})
	if err != nil {
		slog.Warn("extractor API request failed",
			slog.String("endpoint", e.endpoint),
			slog.String("apikey", maskKey(e.apiKey)),
			slog.String("url", urlStr),
			slog.Any("error", err))
		return "", err
	}

	var resp extractorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decode extractor response: %v", acquire.ErrExtractionFailed, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("%w: extractor returned no text (status %q)", acquire.ErrExtractionFailed, resp.Status)
	}
	return text, nil
}

// maskKey keeps the last four characters of a credential for log correlation.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
