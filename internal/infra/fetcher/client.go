package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"nepsum/internal/resilience/retry"
	"nepsum/internal/usecase/acquire"
)

// NewHTTPClient returns an HTTP client that validates every redirect target
// with ValidateURL and stops after cfg.MaxRedirects hops.
func NewHTTPClient(cfg ContentFetchConfig) *http.Client {
	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", acquire.ErrTooManyRedirects, len(via))
			}
			if err := ValidateURL(req.Context(), req.URL.String(), cfg.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}
}

// Get issues a GET for urlStr under a cfg.Timeout deadline and returns the
// body, bounded by cfg.MaxBodySize. Non-200 responses are returned as
// *retry.HTTPError.
func Get(ctx context.Context, client *http.Client, cfg ContentFetchConfig, urlStr string, header http.Header) ([]byte, *url.URL, error) {
	reqCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to create request: %v", acquire.ErrInvalidURL, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, nil, fmt.Errorf("%w: request exceeded %v", acquire.ErrTimeout, cfg.Timeout)
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Err != nil {
			return nil, nil, urlErr.Err
		}
		return nil, nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, cfg.MaxBodySize+1))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > cfg.MaxBodySize {
		return nil, nil, fmt.Errorf("%w: response size %d bytes exceeds limit %d bytes",
			acquire.ErrBodyTooLarge, len(body), cfg.MaxBodySize)
	}

	final := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}
	return body, final, nil
}
