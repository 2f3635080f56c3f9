package entity

import "time"

// JobStatus is the lifecycle status of a scrape job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusClaimed   JobStatus = "claimed"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status is a final one.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ScrapeJob mirrors the `scrape_jobs` PostgreSQL table schema.
// An empty SKUs slice means "all staging SKUs at partition time".
type ScrapeJob struct {
	ID           string
	SKUs         []string
	ScraperNames []string
	TestMode     bool
	MaxWorkers   int
	Status       JobStatus
	RunnerName   string
	ErrorMessage string

	// Aggregated at finalization from the chunk rows.
	TotalSKUs      int
	SuccessfulSKUs int
	FailedSKUs     int

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}
