package fetcher

import (
	"fmt"
	"time"
)

// ContentFetchConfig holds the configuration shared by every outbound page
// fetch: the readability fallback, the extractor API client and the portal
// scrapers.
//
// Security settings:
//   - DenyPrivateIPs: blocks URLs that resolve to private addresses
//   - MaxBodySize: caps the bytes read from a response
//   - MaxRedirects: caps the redirect chain
//   - Timeout: per-request deadline
type ContentFetchConfig struct {
	// Timeout is the maximum duration for a single HTTP request.
	// Default: 15s
	Timeout time.Duration

	// MaxBodySize is the maximum HTTP response body size in bytes.
	// This is enforced while reading, not based on Content-Length.
	// Default: 10485760 (10MB)
	MaxBodySize int64

	// MaxRedirects is the maximum number of HTTP redirects to follow.
	// Each redirect target is validated like the original URL.
	// Default: 5
	MaxRedirects int

	// DenyPrivateIPs rejects URLs resolving to private, loopback or
	// link-local addresses. Should always be true in production.
	// Default: true
	DenyPrivateIPs bool

	// UserAgent is sent with every request.
	// Default: NepsumBot/1.0
	UserAgent string
}

// DefaultConfig returns the default configuration for content fetching.
func DefaultConfig() ContentFetchConfig {
	return ContentFetchConfig{
		Timeout:        15 * time.Second,
		MaxBodySize:    10 * 1024 * 1024, // 10MB
		MaxRedirects:   5,
		DenyPrivateIPs: true,
		UserAgent:      "NepsumBot/1.0",
	}
}

// Validate checks if the configuration values are valid and safe.
//
// Validation rules:
//   - Timeout: > 0
//   - MaxBodySize: 1KB-100MB
//   - MaxRedirects: 0-10
//   - UserAgent: non-empty
func (c *ContentFetchConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}

	minBodySize := int64(1024)              // 1KB
	maxBodySize := int64(100 * 1024 * 1024) // 100MB
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	}

	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user agent must not be empty")
	}

	return nil
}
