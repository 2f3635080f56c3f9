package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/scrape-coordinator/internal/entity"
	"github.com/user/scrape-coordinator/internal/repository"
)

// JobRepoImpl provides a concrete implementation for the JobRepository interface using PostgreSQL.
type JobRepoImpl struct {
	db *pgxpool.Pool
}

// NewJobRepo creates a new instance of JobRepoImpl.
func NewJobRepo(db *pgxpool.Pool) *JobRepoImpl {
	return &JobRepoImpl{db: db}
}

const jobColumns = `id, skus, scraper_names, test_mode, max_workers, status, runner_name,
	error_message, total_skus, successful_skus, failed_skus,
	created_at, started_at, completed_at`

// Create persists a job and its chunks in one transaction, so a partially
// partitioned job can never be observed.
func (r *JobRepoImpl) Create(ctx context.Context, job *entity.ScrapeJob, chunks []*entity.ScrapeJobChunk) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	jobQuery := `
		INSERT INTO scrape_jobs (id, skus, scraper_names, test_mode, max_workers, status, total_skus, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), $8);
	`
	if _, err := tx.Exec(ctx, jobQuery,
		job.ID, job.SKUs, job.ScraperNames, job.TestMode, job.MaxWorkers,
		job.Status, job.TotalSKUs, job.CompletedAt,
	); err != nil {
		return err
	}

	chunkQuery := `
		INSERT INTO scrape_job_chunks (id, job_id, chunk_index, skus, scraper_names, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW());
	`
	for _, chunk := range chunks {
		if _, err := tx.Exec(ctx, chunkQuery,
			chunk.ID, chunk.JobID, chunk.ChunkIndex, chunk.SKUs, chunk.ScraperNames, chunk.Status,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// FindByID retrieves a job by id.
func (r *JobRepoImpl) FindByID(ctx context.Context, jobID string) (*entity.ScrapeJob, error) {
	query := `SELECT ` + jobColumns + ` FROM scrape_jobs WHERE id = $1;`
	job, err := scanJob(r.db.QueryRow(ctx, query, jobID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ClaimNextPending atomically claims the oldest pending job for a runner.
// Same skip-locked contract as the chunk claim, at job granularity.
func (r *JobRepoImpl) ClaimNextPending(ctx context.Context, runnerName string) (*entity.ScrapeJob, error) {
	query := `
		WITH next_job AS (
			SELECT id
			FROM scrape_jobs
			WHERE status = 'pending'
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE scrape_jobs j
		SET status = 'claimed',
			runner_name = $1,
			started_at = NOW()
		FROM next_job
		WHERE j.id = next_job.id
		RETURNING j.id, j.skus, j.scraper_names, j.test_mode, j.max_workers, j.status, j.runner_name,
			j.error_message, j.total_skus, j.successful_skus, j.failed_skus,
			j.created_at, j.started_at, j.completed_at;
	`
	job, err := scanJob(r.db.QueryRow(ctx, query, runnerName))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// UpdateStatus sets a job's status and error message; terminal statuses
// also stamp completed_at.
func (r *JobRepoImpl) UpdateStatus(ctx context.Context, jobID string, status entity.JobStatus, errorMessage string) error {
	query := `
		UPDATE scrape_jobs
		SET status = $2,
			error_message = $3,
			completed_at = CASE WHEN $2 IN ('completed', 'failed') THEN NOW() ELSE completed_at END
		WHERE id = $1;
	`
	tag, err := r.db.Exec(ctx, query, jobID, status, errorMessage)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Finalize writes a terminal status and the aggregated chunk summary. The
// status guard makes racing finalizers idempotent: the first terminal
// write wins and later ones are no-ops.
func (r *JobRepoImpl) Finalize(ctx context.Context, jobID string, status entity.JobStatus, summary entity.ChunkSummary) error {
	query := `
		UPDATE scrape_jobs
		SET status = $2,
			total_skus = $3,
			successful_skus = $4,
			failed_skus = $5,
			completed_at = COALESCE(completed_at, NOW())
		WHERE id = $1 AND status NOT IN ('completed', 'failed');
	`
	_, err := r.db.Exec(ctx, query, jobID, status,
		summary.TotalSKUs, summary.SuccessfulSKUs, summary.FailedSKUs)
	return err
}

// List returns the most recently created jobs, newest first.
func (r *JobRepoImpl) List(ctx context.Context, limit int) ([]*entity.ScrapeJob, error) {
	query := `SELECT ` + jobColumns + ` FROM scrape_jobs ORDER BY created_at DESC LIMIT $1;`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*entity.ScrapeJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// scanJob scans one job row from either a pgx.Row or pgx.Rows.
func scanJob(row pgx.Row) (*entity.ScrapeJob, error) {
	var j entity.ScrapeJob
	err := row.Scan(
		&j.ID,
		&j.SKUs,
		&j.ScraperNames,
		&j.TestMode,
		&j.MaxWorkers,
		&j.Status,
		&j.RunnerName,
		&j.ErrorMessage,
		&j.TotalSKUs,
		&j.SuccessfulSKUs,
		&j.FailedSKUs,
		&j.CreatedAt,
		&j.StartedAt,
		&j.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}
