package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/user/scrape-coordinator/internal/entity"
	"github.com/user/scrape-coordinator/internal/repository"
	"github.com/user/scrape-coordinator/pkg/metrics"
)

const defaultClaimLease = 15 * time.Minute

// Dispatcher defines the interface for handing out units of work to
// polling runners.
type Dispatcher interface {
	// ClaimJob atomically claims the oldest pending job for a runner
	// (non-chunked dispatch path). Returns a nil job when none is
	// eligible.
	ClaimJob(ctx context.Context, runnerName string) (*entity.ScrapeJob, []*entity.ScraperConfig, error)
	// ClaimChunk atomically claims the next pending chunk of a job.
	// When no chunk is eligible it returns (nil, remaining, nil) where
	// remaining counts chunks still claimed or running, so the runner
	// can distinguish "job drained" from "wait and retry".
	ClaimChunk(ctx context.Context, jobID, runnerName string) (*entity.ScrapeJobChunk, int, error)
	// GetJob returns a job with its resolved scraper configs, for a
	// runner that already knows its job id.
	GetJob(ctx context.Context, jobID string) (*entity.ScrapeJob, []*entity.ScraperConfig, error)
}

type dispatchUseCase struct {
	jobRepo     repository.JobRepository
	chunkRepo   repository.ChunkRepository
	scraperRepo repository.ScraperRepository
	runnerRepo  repository.RunnerRepository
	claimLease  time.Duration
}

// NewDispatcher creates a new Dispatcher use case. claimLease bounds how
// long a claimed/running chunk may go without completing before the
// reclaim sweep returns it to pending.
func NewDispatcher(
	jobRepo repository.JobRepository,
	chunkRepo repository.ChunkRepository,
	scraperRepo repository.ScraperRepository,
	runnerRepo repository.RunnerRepository,
	claimLease time.Duration,
) Dispatcher {
	if claimLease <= 0 {
		claimLease = defaultClaimLease
	}
	return &dispatchUseCase{
		jobRepo:     jobRepo,
		chunkRepo:   chunkRepo,
		scraperRepo: scraperRepo,
		runnerRepo:  runnerRepo,
		claimLease:  claimLease,
	}
}

func (uc *dispatchUseCase) ClaimJob(ctx context.Context, runnerName string) (*entity.ScrapeJob, []*entity.ScraperConfig, error) {
	job, err := uc.jobRepo.ClaimNextPending(ctx, runnerName)
	if err != nil {
		return nil, nil, err
	}
	if job == nil {
		uc.trackRunner(ctx, runnerName, entity.RunnerStatusPolling)
		return nil, nil, nil
	}

	scrapers, err := uc.resolveScrapers(ctx, job)
	if err != nil {
		return nil, nil, err
	}

	uc.trackRunner(ctx, runnerName, entity.RunnerStatusBusy)
	metrics.JobsClaimedTotal.Inc()
	slog.Info("Job claimed", "job_id", job.ID, "runner", runnerName)
	return job, scrapers, nil
}

func (uc *dispatchUseCase) ClaimChunk(ctx context.Context, jobID, runnerName string) (*entity.ScrapeJobChunk, int, error) {
	if _, err := uc.jobRepo.FindByID(ctx, jobID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, 0, ErrJobNotFound
		}
		return nil, 0, err
	}

	chunk, err := uc.chunkRepo.ClaimNext(ctx, jobID, runnerName, uc.claimLease)
	if err != nil {
		// A failing claim primitive is an internal error, never an
		// empty result: the two are semantically different to a runner.
		return nil, 0, err
	}

	if chunk == nil {
		remaining, err := uc.chunkRepo.CountInFlight(ctx, jobID)
		if err != nil {
			return nil, 0, err
		}
		uc.trackRunner(ctx, runnerName, entity.RunnerStatusPolling)
		metrics.ChunkClaimsTotal.WithLabelValues("empty").Inc()
		return nil, remaining, nil
	}

	// The atomic claim only needed to be race-free and fast; the
	// heavier running transition happens here, outside the lock.
	if err := uc.chunkRepo.MarkRunning(ctx, chunk.ID); err != nil {
		slog.Error("Failed to mark claimed chunk running", "chunk_id", chunk.ID, "error", err)
	} else {
		chunk.Status = entity.ChunkStatusRunning
	}

	uc.trackRunner(ctx, runnerName, entity.RunnerStatusBusy)
	metrics.ChunkClaimsTotal.WithLabelValues("claimed").Inc()
	slog.Info("Chunk claimed", "job_id", jobID, "chunk_id", chunk.ID, "chunk_index", chunk.ChunkIndex, "runner", runnerName)
	return chunk, 0, nil
}

func (uc *dispatchUseCase) GetJob(ctx context.Context, jobID string) (*entity.ScrapeJob, []*entity.ScraperConfig, error) {
	job, err := uc.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrJobNotFound
		}
		return nil, nil, err
	}

	scrapers, err := uc.resolveScrapers(ctx, job)
	if err != nil {
		return nil, nil, err
	}
	return job, scrapers, nil
}

// resolveScrapers expands a job's scraper allowlist into full configs, or
// all enabled scrapers when the job has no allowlist.
func (uc *dispatchUseCase) resolveScrapers(ctx context.Context, job *entity.ScrapeJob) ([]*entity.ScraperConfig, error) {
	if len(job.ScraperNames) > 0 {
		return uc.scraperRepo.FindByNames(ctx, job.ScraperNames)
	}
	return uc.scraperRepo.ListEnabled(ctx)
}

// trackRunner updates the advisory runner registry. Registry failures are
// logged and swallowed: heartbeat state is never allowed to fail a claim.
func (uc *dispatchUseCase) trackRunner(ctx context.Context, runnerName string, status entity.RunnerStatus) {
	if runnerName == "" {
		return
	}
	if err := uc.runnerRepo.SetStatus(ctx, runnerName, status); err != nil {
		slog.Warn("Failed to update runner registry", "runner", runnerName, "error", err)
	}
}
