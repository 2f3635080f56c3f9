package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/user/scrape-coordinator/internal/entity"
	"github.com/user/scrape-coordinator/internal/repository"
	"github.com/user/scrape-coordinator/pkg/metrics"
	"github.com/user/scrape-coordinator/pkg/utils"
)

const (
	defaultChunkSize         = 10
	defaultStagingBatchLimit = 500
)

// CreateJobParams is an operator's job request. An empty SKU list means
// "all SKUs currently in staging", capped at the staging batch limit; an
// empty scraper list means all enabled scrapers.
type CreateJobParams struct {
	SKUs         []string
	ScraperNames []string
	TestMode     bool
	MaxWorkers   int
}

// Admin defines the operator-facing interface: job creation and listing,
// runner key minting, and registry inspection.
type Admin interface {
	// CreateJob resolves the SKU and scraper scope, partitions the SKUs
	// into claimable chunks and persists everything transactionally. A
	// job that resolves to zero SKUs is created already completed.
	CreateJob(ctx context.Context, params CreateJobParams) (*entity.ScrapeJob, error)
	// ListJobs returns recent jobs, newest first.
	ListJobs(ctx context.Context, limit int) ([]*entity.ScrapeJob, error)
	// JobResults returns a job together with all of its chunks.
	JobResults(ctx context.Context, jobID string) (*entity.ScrapeJob, []*entity.ScrapeJobChunk, error)
	// MintRunnerKey creates an API key for a runner and returns the
	// plaintext token exactly once.
	MintRunnerKey(ctx context.Context, runnerName string) (string, *entity.RunnerAPIKey, error)
	// ListRunners returns the advisory runner registry.
	ListRunners(ctx context.Context) ([]*entity.ScraperRunner, error)
}

type adminUseCase struct {
	jobRepo        repository.JobRepository
	chunkRepo      repository.ChunkRepository
	scraperRepo    repository.ScraperRepository
	productRepo    repository.ProductRepository
	credentialRepo repository.CredentialRepository
	runnerRepo     repository.RunnerRepository
	chunkSize      int
	stagingLimit   int
}

// NewAdmin creates a new Admin use case. chunkSize bounds how many SKUs a
// single chunk carries.
func NewAdmin(
	jobRepo repository.JobRepository,
	chunkRepo repository.ChunkRepository,
	scraperRepo repository.ScraperRepository,
	productRepo repository.ProductRepository,
	credentialRepo repository.CredentialRepository,
	runnerRepo repository.RunnerRepository,
	chunkSize int,
) Admin {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &adminUseCase{
		jobRepo:        jobRepo,
		chunkRepo:      chunkRepo,
		scraperRepo:    scraperRepo,
		productRepo:    productRepo,
		credentialRepo: credentialRepo,
		runnerRepo:     runnerRepo,
		chunkSize:      chunkSize,
		stagingLimit:   defaultStagingBatchLimit,
	}
}

func (uc *adminUseCase) CreateJob(ctx context.Context, params CreateJobParams) (*entity.ScrapeJob, error) {
	scrapers, err := uc.resolveScrapers(ctx, params.ScraperNames)
	if err != nil {
		return nil, err
	}
	if len(scrapers) == 0 {
		return nil, ErrNoScrapers
	}
	scraperNames := make([]string, 0, len(scrapers))
	for _, sc := range scrapers {
		scraperNames = append(scraperNames, sc.Name)
	}

	skus := params.SKUs
	if len(skus) == 0 {
		skus, err = uc.productRepo.ListStagingSKUs(ctx, uc.stagingLimit)
		if err != nil {
			return nil, err
		}
	}

	job := &entity.ScrapeJob{
		ID:           uuid.NewString(),
		SKUs:         skus,
		ScraperNames: scraperNames,
		TestMode:     params.TestMode,
		MaxWorkers:   params.MaxWorkers,
		Status:       entity.JobStatusPending,
		TotalSKUs:    len(skus),
	}

	chunks := BuildChunks(job.ID, PartitionSKUs(skus, uc.chunkSize), scraperNames)

	// Zero resolved SKUs means zero chunks; such a job must still reach
	// completed instead of hanging forever waiting for callbacks.
	if len(chunks) == 0 {
		now := time.Now().UTC()
		job.Status = entity.JobStatusCompleted
		job.CompletedAt = &now
	}

	if err := uc.jobRepo.Create(ctx, job, chunks); err != nil {
		return nil, err
	}

	metrics.JobsCreatedTotal.Inc()
	slog.Info("Scrape job created", "job_id", job.ID,
		"skus", len(skus), "chunks", len(chunks), "scrapers", len(scraperNames), "test_mode", params.TestMode)
	return job, nil
}

func (uc *adminUseCase) ListJobs(ctx context.Context, limit int) ([]*entity.ScrapeJob, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return uc.jobRepo.List(ctx, limit)
}

func (uc *adminUseCase) JobResults(ctx context.Context, jobID string) (*entity.ScrapeJob, []*entity.ScrapeJobChunk, error) {
	job, err := uc.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrJobNotFound
		}
		return nil, nil, err
	}

	chunks, err := uc.chunkRepo.ListByJob(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	return job, chunks, nil
}

func (uc *adminUseCase) MintRunnerKey(ctx context.Context, runnerName string) (string, *entity.RunnerAPIKey, error) {
	token, err := utils.NewAPIKey()
	if err != nil {
		return "", nil, err
	}

	key := &entity.RunnerAPIKey{
		ID:         uuid.NewString(),
		RunnerName: runnerName,
		KeyHash:    utils.HashToken(token),
		KeyPrefix:  utils.KeyDisplayPrefix(token),
		Active:     true,
	}
	if err := uc.credentialRepo.CreateAPIKey(ctx, key); err != nil {
		return "", nil, err
	}

	slog.Info("Runner API key minted", "runner", runnerName, "key_id", key.ID, "prefix", key.KeyPrefix)
	return token, key, nil
}

func (uc *adminUseCase) ListRunners(ctx context.Context) ([]*entity.ScraperRunner, error) {
	return uc.runnerRepo.List(ctx)
}

func (uc *adminUseCase) resolveScrapers(ctx context.Context, names []string) ([]*entity.ScraperConfig, error) {
	if len(names) > 0 {
		return uc.scraperRepo.FindByNames(ctx, names)
	}
	return uc.scraperRepo.ListEnabled(ctx)
}
