package repository

import (
	"context"
	"encoding/json"
)

// AuditRepository defines the interface for the raw scrape-result audit
// trail. Rows are append-only and keyed by job and runner.
type AuditRepository interface {
	// RecordResult stores the raw result payload a runner reported.
	RecordResult(ctx context.Context, jobID, runnerName string, payload json.RawMessage) error
}
