package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/scrape-coordinator/internal/entity"
	"github.com/user/scrape-coordinator/internal/repository"
)

// ProductRepoImpl provides a concrete implementation for the ProductRepository interface using PostgreSQL.
type ProductRepoImpl struct {
	db *pgxpool.Pool
}

// NewProductRepo creates a new instance of ProductRepoImpl.
func NewProductRepo(db *pgxpool.Pool) *ProductRepoImpl {
	return &ProductRepoImpl{db: db}
}

// FindBySKU retrieves a product ingestion record by SKU.
func (r *ProductRepoImpl) FindBySKU(ctx context.Context, sku string) (*entity.ProductIngestionRecord, error) {
	query := `
		SELECT sku, input, sources, consolidated, pipeline_status, last_scraped_at, updated_at
		FROM product_ingestion
		WHERE sku = $1;
	`
	row := r.db.QueryRow(ctx, query, sku)

	var rec entity.ProductIngestionRecord
	var sourcesJSON []byte
	err := row.Scan(
		&rec.SKU,
		&rec.Input,
		&sourcesJSON,
		&rec.Consolidated,
		&rec.PipelineStatus,
		&rec.LastScrapedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(sourcesJSON) > 0 {
		if err := json.Unmarshal(sourcesJSON, &rec.Sources); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

// ListStagingSKUs returns up to limit SKUs currently in staging status.
func (r *ProductRepoImpl) ListStagingSKUs(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT sku FROM product_ingestion
		WHERE pipeline_status = 'staging'
		ORDER BY sku ASC
		LIMIT $1;
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var skus []string
	for rows.Next() {
		var sku string
		if err := rows.Scan(&sku); err != nil {
			return nil, err
		}
		skus = append(skus, sku)
	}
	return skus, rows.Err()
}

// MergeScrapedSource shallow-merges one scraper's payload into the sources
// map keyed by scraper name (other scrapers' entries are preserved by the
// jsonb concatenation), stamps the last-scraped marker, and ratchets
// pipeline_status staging -> scraped. A record beyond scraped keeps its
// status. Unknown SKUs are inserted so late-arriving scrape data is never
// dropped.
func (r *ProductRepoImpl) MergeScrapedSource(ctx context.Context, sku, scraperName string, payload json.RawMessage, scrapedAt time.Time) error {
	query := `
		INSERT INTO product_ingestion (sku, input, sources, pipeline_status, last_scraped_at, updated_at)
		VALUES ($1, '{}'::jsonb, jsonb_build_object($2::text, $3::jsonb, '_last_scraped', to_jsonb($4::timestamptz)), 'scraped', $4, NOW())
		ON CONFLICT (sku) DO UPDATE SET
			sources = COALESCE(product_ingestion.sources, '{}'::jsonb)
				|| jsonb_build_object($2::text, $3::jsonb, '_last_scraped', to_jsonb($4::timestamptz)),
			pipeline_status = CASE
				WHEN product_ingestion.pipeline_status = 'staging' THEN 'scraped'
				ELSE product_ingestion.pipeline_status
			END,
			last_scraped_at = $4,
			updated_at = NOW();
	`
	_, err := r.db.Exec(ctx, query, sku, scraperName, payload, scrapedAt)
	return err
}

// SetConsolidated writes the consolidated payload and advances the record
// scraped -> consolidated.
func (r *ProductRepoImpl) SetConsolidated(ctx context.Context, sku string, payload json.RawMessage) error {
	query := `
		UPDATE product_ingestion
		SET consolidated = $2,
			pipeline_status = 'consolidated',
			updated_at = NOW()
		WHERE sku = $1 AND pipeline_status = 'scraped';
	`
	tag, err := r.db.Exec(ctx, query, sku, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.conflictOrNotFound(ctx, sku)
	}
	return nil
}

// SetPipelineStatus performs a guarded transition: the write only lands if
// the record is currently in expectedFrom.
func (r *ProductRepoImpl) SetPipelineStatus(ctx context.Context, sku string, expectedFrom, to entity.PipelineStatus) error {
	query := `
		UPDATE product_ingestion
		SET pipeline_status = $3, updated_at = NOW()
		WHERE sku = $1 AND pipeline_status = $2;
	`
	tag, err := r.db.Exec(ctx, query, sku, expectedFrom, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.conflictOrNotFound(ctx, sku)
	}
	return nil
}

// conflictOrNotFound distinguishes a guard failure from a missing record.
func (r *ProductRepoImpl) conflictOrNotFound(ctx context.Context, sku string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM product_ingestion WHERE sku = $1);`, sku).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}
