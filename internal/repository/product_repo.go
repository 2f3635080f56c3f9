package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/user/scrape-coordinator/internal/entity"
)

// ProductRepository defines the interface for product ingestion records
// and their pipeline status.
type ProductRepository interface {
	// FindBySKU retrieves a record by SKU. Returns ErrNotFound if absent.
	FindBySKU(ctx context.Context, sku string) (*entity.ProductIngestionRecord, error)
	// ListStagingSKUs returns up to limit SKUs currently in staging
	// status, used to resolve a job created without an explicit SKU list.
	ListStagingSKUs(ctx context.Context, limit int) ([]string, error)
	// MergeScrapedSource shallow-merges one scraper's payload into the
	// record's sources map, stamps the last-scraped timestamp, and
	// ratchets pipeline_status staging -> scraped. Records already at
	// scraped or beyond keep their status.
	MergeScrapedSource(ctx context.Context, sku, scraperName string, payload json.RawMessage, scrapedAt time.Time) error
	// SetConsolidated writes the consolidated payload and advances the
	// record scraped -> consolidated.
	SetConsolidated(ctx context.Context, sku string, payload json.RawMessage) error
	// SetPipelineStatus writes the given status only if the record is
	// currently in expectedFrom; returns ErrConflict otherwise. Used for
	// the review transitions (approve, publish, reject).
	SetPipelineStatus(ctx context.Context, sku string, expectedFrom, to entity.PipelineStatus) error
}
