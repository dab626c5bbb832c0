// Package fetcher retrieves article text from arbitrary URLs. It holds the
// SSRF-guarded HTTP client shared by all outbound page fetches, a
// readability-based extractor and a client for the hosted extractor API.
package fetcher

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"nepsum/internal/usecase/acquire"
)

// Resolver looks up the addresses of a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

var resolver Resolver = net.DefaultResolver

// ValidateURL validates a URL before any request is made to it.
//
// Only http and https are accepted and the host must be present. With
// denyPrivateIPs set, the hostname is resolved and every address is checked
// against the loopback, private and link-local ranges:
//   - 127.0.0.0/8, ::1
//   - 10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16, fc00::/7
//   - 169.254.0.0/16, fe80::/10
//
// The lookup runs under ctx; when ctx ends first the returned error wraps
// ctx.Err(). Other errors wrap acquire.ErrInvalidURL or acquire.ErrPrivateIP.
func ValidateURL(ctx context.Context, urlStr string, denyPrivateIPs bool) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("%w: parse error: %v", acquire.ErrInvalidURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme '%s' not allowed (only http/https)", acquire.ErrInvalidURL, u.Scheme)
	}

	hostname := u.Hostname()
	if hostname == "" {
		return fmt.Errorf("%w: empty hostname", acquire.ErrInvalidURL)
	}

	if !denyPrivateIPs {
		return nil
	}

	if ip := net.ParseIP(hostname); ip != nil {
		if isPrivateIP(ip) {
			return fmt.Errorf("%w: %s", acquire.ErrPrivateIP, ip.String())
		}
		return nil
	}

	addrs, err := resolver.LookupIPAddr(ctx, hostname)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("DNS lookup for %s: %w", hostname, ctxErr)
		}
		return fmt.Errorf("%w: DNS lookup failed for %s: %v", acquire.ErrInvalidURL, hostname, err)
	}

	for _, addr := range addrs {
		if isPrivateIP(addr.IP) {
			return fmt.Errorf("%w: hostname '%s' resolves to private IP %s", acquire.ErrPrivateIP, hostname, addr.IP.String())
		}
	}

	return nil
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
