package repository

import (
	"context"

	"github.com/user/scrape-coordinator/internal/entity"
)

// JobRepository defines the interface for persisting scrape jobs.
type JobRepository interface {
	// Create persists a job together with its chunks in a single
	// transaction. A job partitioned to zero chunks is stored directly
	// in its given (completed) status.
	Create(ctx context.Context, job *entity.ScrapeJob, chunks []*entity.ScrapeJobChunk) error
	// FindByID retrieves a job by id. Returns ErrNotFound if absent.
	FindByID(ctx context.Context, jobID string) (*entity.ScrapeJob, error)
	// ClaimNextPending atomically claims the oldest pending job for the
	// given runner, transitioning it pending -> claimed and stamping
	// runner_name and started_at. Returns nil when no job is eligible.
	// Concurrent callers never receive the same job.
	ClaimNextPending(ctx context.Context, runnerName string) (*entity.ScrapeJob, error)
	// UpdateStatus sets a job's status and error message. Terminal
	// statuses also stamp completed_at.
	UpdateStatus(ctx context.Context, jobID string, status entity.JobStatus, errorMessage string) error
	// Finalize writes a terminal status and the aggregated chunk summary.
	// The write is idempotent: a job already in a terminal status keeps
	// it, so racing finalizers are harmless.
	Finalize(ctx context.Context, jobID string, status entity.JobStatus, summary entity.ChunkSummary) error
	// List returns the most recently created jobs, newest first.
	List(ctx context.Context, limit int) ([]*entity.ScrapeJob, error)
}
