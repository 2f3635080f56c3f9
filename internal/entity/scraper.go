package entity

import "encoding/json"

// ScraperConfig mirrors the `scraper_configs` PostgreSQL table schema.
// Config carries the scraper-specific settings (selectors, workflow steps)
// opaque to the coordinator; runners interpret it.
type ScraperConfig struct {
	Name     string          `json:"name"`
	Disabled bool            `json:"disabled"`
	Config   json.RawMessage `json:"config,omitempty"`
}
