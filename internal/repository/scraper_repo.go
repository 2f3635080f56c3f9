package repository

import (
	"context"

	"github.com/user/scrape-coordinator/internal/entity"
)

// ScraperRepository defines the interface for scraper configuration records.
type ScraperRepository interface {
	// ListEnabled returns all non-disabled scraper configs.
	ListEnabled(ctx context.Context) ([]*entity.ScraperConfig, error)
	// FindByNames returns the configs for the given names, preserving
	// only names that exist and are not disabled.
	FindByNames(ctx context.Context, names []string) ([]*entity.ScraperConfig, error)
}
