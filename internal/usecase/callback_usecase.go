package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/user/scrape-coordinator/internal/entity"
	"github.com/user/scrape-coordinator/internal/repository"
	"github.com/user/scrape-coordinator/pkg/metrics"
)

// ScrapeResults is the per-SKU scraped-data map a runner may attach to a
// callback: SKU -> scraper name -> payload.
type ScrapeResults struct {
	Products map[string]map[string]json.RawMessage `json:"products"`
}

// ChunkCallback is a chunk's terminal report from a runner.
type ChunkCallback struct {
	ChunkID      string
	RunnerName   string
	Status       entity.ChunkStatus
	Counts       entity.ChunkSummary
	Results      json.RawMessage
	ErrorMessage string
}

// JobCallback is a job-level terminal report from a runner (non-chunked
// dispatch path).
type JobCallback struct {
	JobID        string
	RunnerName   string
	Status       entity.JobStatus
	Results      json.RawMessage
	ErrorMessage string
}

// Aggregator defines the interface for absorbing runner callbacks into
// chunk, job and product pipeline state.
type Aggregator interface {
	// CompleteChunk records a chunk's terminal result and, when it was
	// the last outstanding chunk, finalizes the parent job. Redelivering
	// the same callback is harmless.
	CompleteChunk(ctx context.Context, cb ChunkCallback) error
	// CompleteJob records a job-level result, audits the raw payload and
	// merges any per-SKU scraped data into the product pipeline.
	CompleteJob(ctx context.Context, cb JobCallback) error
}

type callbackUseCase struct {
	jobRepo     repository.JobRepository
	chunkRepo   repository.ChunkRepository
	productRepo repository.ProductRepository
	auditRepo   repository.AuditRepository
	runnerRepo  repository.RunnerRepository
}

// NewAggregator creates a new Aggregator use case.
func NewAggregator(
	jobRepo repository.JobRepository,
	chunkRepo repository.ChunkRepository,
	productRepo repository.ProductRepository,
	auditRepo repository.AuditRepository,
	runnerRepo repository.RunnerRepository,
) Aggregator {
	return &callbackUseCase{
		jobRepo:     jobRepo,
		chunkRepo:   chunkRepo,
		productRepo: productRepo,
		auditRepo:   auditRepo,
		runnerRepo:  runnerRepo,
	}
}

func (uc *callbackUseCase) CompleteChunk(ctx context.Context, cb ChunkCallback) error {
	if !cb.Status.Terminal() {
		return ErrInvalidStatus
	}

	chunk, err := uc.chunkRepo.FindByID(ctx, cb.ChunkID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrChunkNotFound
		}
		return err
	}

	defer uc.markRunnerOnline(ctx, firstNonEmpty(cb.RunnerName, chunk.RunnerName))

	// A redelivered callback finds the chunk already terminal: skip the
	// write and the product merges, but still re-run completion
	// detection in case a racing finalizer lost.
	if !chunk.Status.Terminal() {
		if err := uc.chunkRepo.Complete(ctx, cb.ChunkID, cb.Status, cb.Counts, cb.Results, cb.ErrorMessage); err != nil {
			return err
		}
		uc.mergeResults(ctx, cb.Results)
		metrics.CallbacksTotal.WithLabelValues("chunk", string(cb.Status)).Inc()
	}

	return uc.finalizeIfDone(ctx, chunk.JobID)
}

func (uc *callbackUseCase) CompleteJob(ctx context.Context, cb JobCallback) error {
	if !cb.Status.Terminal() && cb.Status != entity.JobStatusRunning {
		return ErrInvalidStatus
	}

	if err := uc.jobRepo.UpdateStatus(ctx, cb.JobID, cb.Status, cb.ErrorMessage); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrJobNotFound
		}
		return err
	}

	// The audit row is independent of job state; losing it is logged,
	// never fatal to the callback.
	if len(cb.Results) > 0 {
		if err := uc.auditRepo.RecordResult(ctx, cb.JobID, cb.RunnerName, cb.Results); err != nil {
			slog.Error("Failed to persist scrape result audit row", "job_id", cb.JobID, "error", err)
		}
	}

	uc.mergeResults(ctx, cb.Results)
	uc.markRunnerOnline(ctx, cb.RunnerName)
	metrics.CallbacksTotal.WithLabelValues("job", string(cb.Status)).Inc()
	return nil
}

// finalizeIfDone re-reads all chunk statuses from the store and finalizes
// the job once none remain pending, claimed or running. The re-read from
// persisted state on every callback is what makes racing near-complete
// callbacks safe: either both see the job done and the idempotent
// Finalize absorbs the duplicate, or the later one sees it done.
func (uc *callbackUseCase) finalizeIfDone(ctx context.Context, jobID string) error {
	chunks, err := uc.chunkRepo.ListByJob(ctx, jobID)
	if err != nil {
		return err
	}

	var summary entity.ChunkSummary
	anyCompleted := false
	for _, chunk := range chunks {
		if !chunk.Status.Terminal() {
			return nil
		}
		if chunk.Status == entity.ChunkStatusCompleted {
			anyCompleted = true
		}
		summary.TotalSKUs += chunk.SKUsProcessed
		summary.SuccessfulSKUs += chunk.SKUsSuccessful
		summary.FailedSKUs += chunk.SKUsFailed
	}

	// Partial success still counts as job success: partial data is
	// useful to the pipeline. Only an all-failed chunk set fails the job.
	status := entity.JobStatusCompleted
	if len(chunks) > 0 && !anyCompleted {
		status = entity.JobStatusFailed
	}

	if err := uc.jobRepo.Finalize(ctx, jobID, status, summary); err != nil {
		return err
	}
	metrics.JobsFinalizedTotal.WithLabelValues(string(status)).Inc()
	slog.Info("Job finalized", "job_id", jobID, "status", status,
		"skus_total", summary.TotalSKUs, "skus_successful", summary.SuccessfulSKUs, "skus_failed", summary.FailedSKUs)
	return nil
}

// mergeResults folds a callback's per-SKU scraped data into the product
// pipeline: shallow merge into sources keyed by scraper name, last-scraped
// stamp, and the staging -> scraped ratchet. Per-SKU failures are logged
// and skipped so one bad record cannot block the rest of the batch.
func (uc *callbackUseCase) mergeResults(ctx context.Context, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}

	var results ScrapeResults
	if err := json.Unmarshal(raw, &results); err != nil {
		slog.Warn("Callback results payload is not a product map, skipping merge", "error", err)
		return
	}

	now := time.Now().UTC()
	for sku, sources := range results.Products {
		for scraperName, payload := range sources {
			if err := uc.productRepo.MergeScrapedSource(ctx, sku, scraperName, payload, now); err != nil {
				slog.Error("Failed to merge scraped source", "sku", sku, "scraper", scraperName, "error", err)
			}
		}
	}
}

func (uc *callbackUseCase) markRunnerOnline(ctx context.Context, runnerName string) {
	if runnerName == "" {
		return
	}
	if err := uc.runnerRepo.SetStatus(ctx, runnerName, entity.RunnerStatusOnline); err != nil {
		slog.Warn("Failed to update runner registry", "runner", runnerName, "error", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
