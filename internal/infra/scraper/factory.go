package scraper

import (
	"net/http"

	"nepsum/internal/config"
	"nepsum/internal/infra/fetcher"
	"nepsum/internal/usecase/acquire"
)

// NewPortalRegistry creates one PortalScraper per configured portal and
// returns them keyed by every identifier of the portal, aliases included.
// The map is what acquire.NewService routes on.
func NewPortalRegistry(client *http.Client, fetchConfig fetcher.ContentFetchConfig, portals *config.PortalsConfig) map[string]acquire.PageExtractor {
	registry := make(map[string]acquire.PageExtractor)
	if portals == nil {
		return registry
	}
	for _, p := range portals.Portals {
		s := NewPortalScraper(client, fetchConfig, p)
		for _, id := range p.Identifiers() {
			registry[id] = s
		}
	}
	return registry
}
