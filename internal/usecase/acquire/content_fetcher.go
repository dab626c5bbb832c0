package acquire

import (
	"context"
	"errors"
)

// PageExtractor extracts an article from a page of one specific portal.
type PageExtractor interface {
	Extract(ctx context.Context, url string) (*Article, error)
}

// Article is what a portal extractor reads from a page.
type Article struct {
	Title       string
	NewsContent string
}

// ContentFetcher extracts article text from any URL. It backs portals without
// a dedicated extractor.
//
// Implementations must reject private addresses, bound the response size and
// the number of redirects, and honour ctx.
type ContentFetcher interface {
	FetchContent(ctx context.Context, url string) (string, error)
}

// Sentinel errors shared by extractor implementations.
var (
	// ErrInvalidURL indicates the URL format is invalid or uses an unsupported scheme.
	ErrInvalidURL = errors.New("invalid URL or unsupported scheme")

	// ErrPrivateIP indicates the URL resolves to a private IP address.
	//
	//   - "http://localhost" → ErrPrivateIP
	//   - "http://192.168.1.1" → ErrPrivateIP
	ErrPrivateIP = errors.New("private IP access denied (SSRF prevention)")

	// ErrTooManyRedirects indicates the redirect chain exceeded the configured maximum.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates the response body exceeded the size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("request timeout")

	// ErrExtractionFailed indicates that the page or API response held no
	// usable article text.
	ErrExtractionFailed = errors.New("content extraction failed")
)
