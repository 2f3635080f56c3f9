package repository

import (
	"context"

	"github.com/user/scrape-coordinator/internal/entity"
)

// RunnerRepository defines the interface for the advisory runner registry.
// Status and heartbeat are eventually consistent and never consulted by
// the claim engine.
type RunnerRepository interface {
	// SetStatus upserts a runner's status and refreshes its heartbeat.
	SetStatus(ctx context.Context, name string, status entity.RunnerStatus) error
	// List returns all runners currently known to the registry.
	List(ctx context.Context) ([]*entity.ScraperRunner, error)
}
