package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/scrape-coordinator/internal/entity"
	"github.com/user/scrape-coordinator/internal/repository"
)

// ChunkRepoImpl provides a concrete implementation for the ChunkRepository interface using PostgreSQL.
type ChunkRepoImpl struct {
	db *pgxpool.Pool
}

// NewChunkRepo creates a new instance of ChunkRepoImpl.
func NewChunkRepo(db *pgxpool.Pool) *ChunkRepoImpl {
	return &ChunkRepoImpl{db: db}
}

const chunkColumns = `id, job_id, chunk_index, skus, scraper_names, status, runner_name,
	result, error_message, skus_processed, skus_successful, skus_failed,
	lease_expires_at, started_at, completed_at, updated_at`

// ClaimNext atomically claims the lowest-index pending chunk for a runner.
// FOR UPDATE SKIP LOCKED makes concurrent claimers skip the row instead of
// blocking on it, so the whole read-select-mark sequence is a single
// race-free statement: two simultaneous callers can never return the same
// chunk. Heavier bookkeeping (the running transition) happens afterwards
// via MarkRunning, outside the lock.
func (r *ChunkRepoImpl) ClaimNext(ctx context.Context, jobID, runnerName string, lease time.Duration) (*entity.ScrapeJobChunk, error) {
	query := `
		WITH next_chunk AS (
			SELECT id
			FROM scrape_job_chunks
			WHERE job_id = $1 AND status = 'pending'
			ORDER BY chunk_index ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE scrape_job_chunks c
		SET status = 'claimed',
			runner_name = $2,
			lease_expires_at = $3,
			updated_at = NOW()
		FROM next_chunk
		WHERE c.id = next_chunk.id
		RETURNING c.id, c.job_id, c.chunk_index, c.skus, c.scraper_names, c.status, c.runner_name,
			c.result, c.error_message, c.skus_processed, c.skus_successful, c.skus_failed,
			c.lease_expires_at, c.started_at, c.completed_at, c.updated_at;
	`
	row := r.db.QueryRow(ctx, query, jobID, runnerName, time.Now().Add(lease))

	chunk, err := scanChunk(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return chunk, nil
}

// MarkRunning transitions a claimed chunk to running and stamps started_at.
func (r *ChunkRepoImpl) MarkRunning(ctx context.Context, chunkID string) error {
	query := `
		UPDATE scrape_job_chunks
		SET status = 'running', started_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'claimed';
	`
	_, err := r.db.Exec(ctx, query, chunkID)
	return err
}

// FindByID retrieves a chunk by id.
func (r *ChunkRepoImpl) FindByID(ctx context.Context, chunkID string) (*entity.ScrapeJobChunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM scrape_job_chunks WHERE id = $1;`
	chunk, err := scanChunk(r.db.QueryRow(ctx, query, chunkID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return chunk, nil
}

// Complete writes a chunk's terminal status, counts and result payload.
// The status guard keeps an already-terminal chunk untouched, which makes
// redelivered callbacks harmless.
func (r *ChunkRepoImpl) Complete(ctx context.Context, chunkID string, status entity.ChunkStatus, counts entity.ChunkSummary, result []byte, errorMessage string) error {
	query := `
		UPDATE scrape_job_chunks
		SET status = $2,
			skus_processed = $3,
			skus_successful = $4,
			skus_failed = $5,
			result = $6,
			error_message = $7,
			completed_at = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('completed', 'failed');
	`
	_, err := r.db.Exec(ctx, query, chunkID, status,
		counts.TotalSKUs, counts.SuccessfulSKUs, counts.FailedSKUs,
		result, errorMessage)
	return err
}

// ListByJob returns all chunks of a job ordered by chunk_index.
func (r *ChunkRepoImpl) ListByJob(ctx context.Context, jobID string) ([]*entity.ScrapeJobChunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM scrape_job_chunks WHERE job_id = $1 ORDER BY chunk_index ASC;`
	rows, err := r.db.Query(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*entity.ScrapeJobChunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// CountInFlight returns the number of claimed or running chunks for a job.
func (r *ChunkRepoImpl) CountInFlight(ctx context.Context, jobID string) (int, error) {
	query := `SELECT COUNT(*) FROM scrape_job_chunks WHERE job_id = $1 AND status IN ('claimed', 'running');`
	var count int
	if err := r.db.QueryRow(ctx, query, jobID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ReclaimExpired returns claimed/running chunks with an expired lease back
// to pending so another runner can pick them up.
func (r *ChunkRepoImpl) ReclaimExpired(ctx context.Context) (int, error) {
	query := `
		UPDATE scrape_job_chunks
		SET status = 'pending',
			runner_name = '',
			lease_expires_at = NULL,
			started_at = NULL,
			updated_at = NOW()
		WHERE status IN ('claimed', 'running')
			AND lease_expires_at IS NOT NULL
			AND lease_expires_at < NOW();
	`
	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// scanChunk scans one chunk row from either a pgx.Row or pgx.Rows.
func scanChunk(row pgx.Row) (*entity.ScrapeJobChunk, error) {
	var c entity.ScrapeJobChunk
	err := row.Scan(
		&c.ID,
		&c.JobID,
		&c.ChunkIndex,
		&c.SKUs,
		&c.ScraperNames,
		&c.Status,
		&c.RunnerName,
		&c.Result,
		&c.ErrorMessage,
		&c.SKUsProcessed,
		&c.SKUsSuccessful,
		&c.SKUsFailed,
		&c.LeaseExpiresAt,
		&c.StartedAt,
		&c.CompletedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
