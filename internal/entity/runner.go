package entity

import "time"

// RunnerStatus is the advisory live status of a scrape runner.
// It is written on every poll/claim/callback and read only by
// observability surfaces, never by the claim engine.
type RunnerStatus string

const (
	RunnerStatusOffline RunnerStatus = "offline"
	RunnerStatusOnline  RunnerStatus = "online"
	RunnerStatusPolling RunnerStatus = "polling"
	RunnerStatusBusy    RunnerStatus = "busy"
)

// ScraperRunner is a self-hosted worker process known to the coordinator.
type ScraperRunner struct {
	Name       string
	Status     RunnerStatus
	LastSeenAt time.Time
}
