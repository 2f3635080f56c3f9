package response

import (
	"encoding/json"
	"time"

	"github.com/user/scrape-coordinator/internal/entity"
)

// ScraperPayload is a scraper config as sent to a runner.
type ScraperPayload struct {
	Name   string          `json:"name"`
	Config json.RawMessage `json:"config,omitempty"`
}

// JobPayload is the full job config a runner needs to execute.
type JobPayload struct {
	JobID      string           `json:"job_id"`
	Status     string           `json:"status"`
	SKUs       []string         `json:"skus"`
	Scrapers   []ScraperPayload `json:"scrapers"`
	TestMode   bool             `json:"test_mode"`
	MaxWorkers int              `json:"max_workers"`
}

// PollResponse is the poll result; Job is null when nothing is pending.
type PollResponse struct {
	Job *JobPayload `json:"job"`
}

// ChunkPayload is one claimed chunk as sent to a runner.
type ChunkPayload struct {
	ChunkID    string   `json:"chunk_id"`
	ChunkIndex int      `json:"chunk_index"`
	SKUs       []string `json:"skus"`
	Scrapers   []string `json:"scrapers"`
}

// ClaimChunkResponse carries either a chunk or, when none is eligible,
// the number of chunks still in flight so the runner can decide whether
// to keep polling.
type ClaimChunkResponse struct {
	Chunk           *ChunkPayload `json:"chunk"`
	RemainingChunks int           `json:"remaining_chunks"`
}

// JobSummary is the admin view of one job.
type JobSummary struct {
	JobID          string     `json:"job_id"`
	Status         string     `json:"status"`
	TestMode       bool       `json:"test_mode"`
	TotalSKUs      int        `json:"total_skus"`
	SuccessfulSKUs int        `json:"successful_skus"`
	FailedSKUs     int        `json:"failed_skus"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// ChunkResult is the admin view of one chunk's outcome.
type ChunkResult struct {
	ChunkID        string          `json:"chunk_id"`
	ChunkIndex     int             `json:"chunk_index"`
	Status         string          `json:"status"`
	RunnerName     string          `json:"runner_name,omitempty"`
	SKUsProcessed  int             `json:"skus_processed"`
	SKUsSuccessful int             `json:"skus_successful"`
	SKUsFailed     int             `json:"skus_failed"`
	Result         json.RawMessage `json:"result,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// JobResultsResponse bundles a job with all of its chunks.
type JobResultsResponse struct {
	Job    JobSummary    `json:"job"`
	Chunks []ChunkResult `json:"chunks"`
}

// MintRunnerKeyResponse returns a freshly minted key. The plaintext key
// appears here exactly once; only its hash is stored.
type MintRunnerKeyResponse struct {
	KeyID      string `json:"key_id"`
	RunnerName string `json:"runner_name"`
	Key        string `json:"key"`
	KeyPrefix  string `json:"key_prefix"`
}

// RunnerPayload is the advisory registry view of one runner.
type RunnerPayload struct {
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// ProductPayload is the admin view of one product ingestion record.
type ProductPayload struct {
	SKU            string                     `json:"sku"`
	PipelineStatus string                     `json:"pipeline_status"`
	Input          json.RawMessage            `json:"input,omitempty"`
	Sources        map[string]json.RawMessage `json:"sources,omitempty"`
	Consolidated   json.RawMessage            `json:"consolidated,omitempty"`
	LastScrapedAt  *time.Time                 `json:"last_scraped_at,omitempty"`
}

// NewJobSummary maps a job entity to its admin view.
func NewJobSummary(job *entity.ScrapeJob) JobSummary {
	return JobSummary{
		JobID:          job.ID,
		Status:         string(job.Status),
		TestMode:       job.TestMode,
		TotalSKUs:      job.TotalSKUs,
		SuccessfulSKUs: job.SuccessfulSKUs,
		FailedSKUs:     job.FailedSKUs,
		ErrorMessage:   job.ErrorMessage,
		CreatedAt:      job.CreatedAt,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
	}
}

// NewChunkResult maps a chunk entity to its admin view.
func NewChunkResult(chunk *entity.ScrapeJobChunk) ChunkResult {
	return ChunkResult{
		ChunkID:        chunk.ID,
		ChunkIndex:     chunk.ChunkIndex,
		Status:         string(chunk.Status),
		RunnerName:     chunk.RunnerName,
		SKUsProcessed:  chunk.SKUsProcessed,
		SKUsSuccessful: chunk.SKUsSuccessful,
		SKUsFailed:     chunk.SKUsFailed,
		Result:         chunk.Result,
		ErrorMessage:   chunk.ErrorMessage,
		CompletedAt:    chunk.CompletedAt,
	}
}

// NewJobPayload maps a job and its resolved scrapers to the runner view.
func NewJobPayload(job *entity.ScrapeJob, scrapers []*entity.ScraperConfig) *JobPayload {
	payload := &JobPayload{
		JobID:      job.ID,
		Status:     string(job.Status),
		SKUs:       job.SKUs,
		Scrapers:   make([]ScraperPayload, 0, len(scrapers)),
		TestMode:   job.TestMode,
		MaxWorkers: job.MaxWorkers,
	}
	for _, sc := range scrapers {
		payload.Scrapers = append(payload.Scrapers, ScraperPayload{Name: sc.Name, Config: sc.Config})
	}
	return payload
}

// NewProductPayload maps an ingestion record to its admin view.
func NewProductPayload(rec *entity.ProductIngestionRecord) ProductPayload {
	return ProductPayload{
		SKU:            rec.SKU,
		PipelineStatus: string(rec.PipelineStatus),
		Input:          rec.Input,
		Sources:        rec.Sources,
		Consolidated:   rec.Consolidated,
		LastScrapedAt:  rec.LastScrapedAt,
	}
}
