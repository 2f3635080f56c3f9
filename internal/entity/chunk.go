package entity

import (
	"encoding/json"
	"time"
)

// ChunkStatus is the lifecycle status of a single job chunk.
type ChunkStatus string

const (
	ChunkStatusPending   ChunkStatus = "pending"
	ChunkStatusClaimed   ChunkStatus = "claimed"
	ChunkStatusRunning   ChunkStatus = "running"
	ChunkStatusCompleted ChunkStatus = "completed"
	ChunkStatusFailed    ChunkStatus = "failed"
)

// Terminal reports whether the status is a final one.
func (s ChunkStatus) Terminal() bool {
	return s == ChunkStatusCompleted || s == ChunkStatusFailed
}

// InFlight reports whether the chunk is claimed or executing.
func (s ChunkStatus) InFlight() bool {
	return s == ChunkStatusClaimed || s == ChunkStatusRunning
}

// ScrapeJobChunk mirrors the `scrape_job_chunks` PostgreSQL table schema.
// A chunk is an independently claimable slice of its job's SKU set.
// At most one runner holds a non-terminal claim on a chunk at any time.
type ScrapeJobChunk struct {
	ID           string
	JobID        string
	ChunkIndex   int
	SKUs         []string
	ScraperNames []string
	Status       ChunkStatus
	RunnerName   string
	Result       json.RawMessage
	ErrorMessage string

	SKUsProcessed  int
	SKUsSuccessful int
	SKUsFailed     int

	LeaseExpiresAt *time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
	UpdatedAt      time.Time
}

// ChunkSummary aggregates per-chunk SKU counts across a whole job.
type ChunkSummary struct {
	TotalSKUs      int
	SuccessfulSKUs int
	FailedSKUs     int
}
