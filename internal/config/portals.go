package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed portals.yaml
var defaultPortals []byte

// PortalConfig holds the selectors used to read one portal's article pages.
type PortalConfig struct {
	Name            string   `yaml:"name"`
	Aliases         []string `yaml:"aliases"`
	TitleSelector   string   `yaml:"title_selector"`
	ContentSelector string   `yaml:"content_selector"`
	RemoveSelectors []string `yaml:"remove_selectors"`
}

// Identifiers returns the portal name followed by its aliases.
func (p PortalConfig) Identifiers() []string {
	return append([]string{p.Name}, p.Aliases...)
}

// PortalsConfig is the portal selector document.
type PortalsConfig struct {
	Portals []PortalConfig `yaml:"portals"`
}

// LoadPortals reads the selector document at path, or the embedded default
// when path is empty.
func LoadPortals(path string) (*PortalsConfig, error) {
	data := defaultPortals
	if path != "" {
		// #nosec G304 -- path comes from PORTALS_CONFIG, set by the operator
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read portals config: %w", err)
		}
		data = b
	}
	return ParsePortals(data)
}

// ParsePortals decodes and validates a selector document.
func ParsePortals(data []byte) (*PortalsConfig, error) {
	var cfg PortalsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse portals config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("portals config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks required selectors and rejects identifiers claimed twice.
func (c *PortalsConfig) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	for i, p := range c.Portals {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("portal %d: name is required", i))
			continue
		}
		if p.ContentSelector == "" {
			errs = append(errs, fmt.Errorf("portal %s: content_selector is required", p.Name))
		}
		for _, id := range p.Identifiers() {
			if seen[id] {
				errs = append(errs, fmt.Errorf("portal identifier %q is defined more than once", id))
			}
			seen[id] = true
		}
	}
	return errors.Join(errs...)
}
