package auth

import "strings"

// PublicEndpoints never require a token. Entries ending in "/" match by prefix.
var PublicEndpoints = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
	"/portals",
}

// IsPublicEndpoint reports whether path skips authentication.
func IsPublicEndpoint(path string) bool {
	for _, endpoint := range PublicEndpoints {
		if strings.HasSuffix(endpoint, "/") {
			if strings.HasPrefix(path, endpoint) {
				return true
			}
			continue
		}
		if path == endpoint || path == endpoint+"/" {
			return true
		}
	}
	return false
}
