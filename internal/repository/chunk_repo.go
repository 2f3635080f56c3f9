package repository

import (
	"context"
	"time"

	"github.com/user/scrape-coordinator/internal/entity"
)

// ChunkRepository defines the interface for persisting and claiming job
// chunks. Claiming is the concurrency-critical operation of the whole
// coordinator: implementations must guarantee that two concurrent callers
// never receive the same chunk (row-level lock with skip semantics, or an
// equivalent compare-and-swap).
type ChunkRepository interface {
	// ClaimNext atomically claims the lowest-index pending chunk of the
	// job for the given runner, transitioning it pending -> claimed and
	// stamping the lease expiry. Returns nil when no chunk is eligible.
	ClaimNext(ctx context.Context, jobID, runnerName string, lease time.Duration) (*entity.ScrapeJobChunk, error)
	// MarkRunning transitions a claimed chunk to running and stamps
	// started_at. Runs outside the claim transaction; it only needs to
	// be correct, not race-free, since the chunk is already owned.
	MarkRunning(ctx context.Context, chunkID string) error
	// FindByID retrieves a chunk by id. Returns ErrNotFound if absent.
	FindByID(ctx context.Context, chunkID string) (*entity.ScrapeJobChunk, error)
	// Complete writes a chunk's terminal status, counts and result
	// payload. A chunk that is already terminal is left untouched so a
	// redelivered callback cannot flip its outcome.
	Complete(ctx context.Context, chunkID string, status entity.ChunkStatus, counts entity.ChunkSummary, result []byte, errorMessage string) error
	// ListByJob returns all chunks of a job ordered by chunk_index.
	// Callers re-read this on every completion callback; completion
	// detection must never rely on a cached count.
	ListByJob(ctx context.Context, jobID string) ([]*entity.ScrapeJobChunk, error)
	// CountInFlight returns the number of claimed or running chunks for
	// the job, so an empty claim response can tell a runner whether to
	// keep polling or give up.
	CountInFlight(ctx context.Context, jobID string) (int, error)
	// ReclaimExpired returns claimed/running chunks whose lease has
	// expired back to pending and reports how many were reclaimed.
	ReclaimExpired(ctx context.Context) (int, error)
}
