package fetcher

import "testing"

// SetResolver replaces the resolver used by ValidateURL for the rest of t.
func SetResolver(t testing.TB, r Resolver) {
	t.Helper()
	prev := resolver
	resolver = r
	t.Cleanup(func() { resolver = prev })
}
