package request

import "encoding/json"

// CreateJobRequest is the operator's job creation payload. Empty skus
// means "all staging SKUs"; empty scrapers means all enabled scrapers.
type CreateJobRequest struct {
	SKUs       []string `json:"skus"`
	Scrapers   []string `json:"scrapers"`
	TestMode   bool     `json:"test_mode"`
	MaxWorkers int      `json:"max_workers"`
}

// PollRequest is a runner's job poll. The runner name is optional; when
// absent it is derived from the authenticated credential.
type PollRequest struct {
	RunnerName string `json:"runner_name"`
}

// ClaimChunkRequest asks for the next pending chunk of a job.
type ClaimChunkRequest struct {
	JobID      string `json:"job_id"`
	RunnerName string `json:"runner_name"`
}

// ChunkCallbackRequest is a chunk's terminal report.
type ChunkCallbackRequest struct {
	ChunkID        string          `json:"chunk_id"`
	Status         string          `json:"status"`
	RunnerName     string          `json:"runner_name"`
	SKUsProcessed  int             `json:"skus_processed"`
	SKUsSuccessful int             `json:"skus_successful"`
	SKUsFailed     int             `json:"skus_failed"`
	Results        json.RawMessage `json:"results,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
}

// JobCallbackRequest is a job-level terminal report.
type JobCallbackRequest struct {
	JobID        string          `json:"job_id"`
	Status       string          `json:"status"`
	RunnerName   string          `json:"runner_name"`
	Results      json.RawMessage `json:"results,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// MintRunnerKeyRequest asks for a new API key for a runner.
type MintRunnerKeyRequest struct {
	RunnerName string `json:"runner_name"`
}

// ConsolidateRequest carries the consolidation service's merged record.
type ConsolidateRequest struct {
	Consolidated json.RawMessage `json:"consolidated"`
}
