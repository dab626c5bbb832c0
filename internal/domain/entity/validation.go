package entity

import (
	"fmt"
	"net"
	"net/url"
)

// maxURLLength bounds article URLs accepted from clients.
const maxURLLength = 2048

// MaxTextLength bounds inline text in bytes.
const MaxTextLength = 512 * 1024

// ValidateSourceURL checks that rawURL is an absolute http(s) URL and that
// a literal IP host is not in a private range. It makes no network calls:
// hostnames are resolved and checked by the fetchers under the request
// context.
func ValidateSourceURL(rawURL string) error {
	if len(rawURL) > maxURLLength {
		return &ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength),
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Field: "url", Message: "url is malformed"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "url must use http or https scheme"}
	}
	if u.Host == "" {
		return &ValidationError{Field: "url", Message: "url must have a valid host"}
	}

	if ip := net.ParseIP(u.Hostname()); ip != nil && isPrivateIP(ip) {
		return &ValidationError{Field: "url", Message: "url cannot point to private network"}
	}
	return nil
}

// ValidateInlineText checks the size of pasted text.
func ValidateInlineText(text string) error {
	if len(text) > MaxTextLength {
		return &ValidationError{
			Field:   "text",
			Message: fmt.Sprintf("text must not exceed %d bytes", MaxTextLength),
		}
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsPrivate() || ip.IsUnspecified() {
		return true
	}
	// cloud metadata lives in 169.254.0.0/16, covered by link-local above
	return false
}
