package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepoImpl provides a concrete implementation for the AuditRepository interface using PostgreSQL.
type AuditRepoImpl struct {
	db *pgxpool.Pool
}

// NewAuditRepo creates a new instance of AuditRepoImpl.
func NewAuditRepo(db *pgxpool.Pool) *AuditRepoImpl {
	return &AuditRepoImpl{db: db}
}

// RecordResult appends the raw result payload a runner reported for a job.
func (r *AuditRepoImpl) RecordResult(ctx context.Context, jobID, runnerName string, payload json.RawMessage) error {
	query := `
		INSERT INTO scrape_result_audit (id, job_id, runner_name, payload, created_at)
		VALUES ($1, $2, $3, $4, NOW());
	`
	_, err := r.db.Exec(ctx, query, uuid.NewString(), jobID, runnerName, payload)
	return err
}
