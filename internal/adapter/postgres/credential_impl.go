package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/scrape-coordinator/internal/entity"
)

// CredentialRepoImpl provides a concrete implementation for the CredentialRepository interface using PostgreSQL.
type CredentialRepoImpl struct {
	db *pgxpool.Pool
}

// NewCredentialRepo creates a new instance of CredentialRepoImpl.
func NewCredentialRepo(db *pgxpool.Pool) *CredentialRepoImpl {
	return &CredentialRepoImpl{db: db}
}

// ValidateAPIKey looks up an active key by hash and stamps last_used_at in
// the same statement. The single UPDATE keeps validation and the usage
// timestamp atomic: a key revoked mid-request matches zero rows.
func (r *CredentialRepoImpl) ValidateAPIKey(ctx context.Context, keyHash string) (*entity.RunnerAPIKey, error) {
	query := `
		UPDATE runner_api_keys
		SET last_used_at = NOW()
		WHERE key_hash = $1 AND active
		RETURNING id, runner_name, key_hash, key_prefix, active, last_used_at, created_at;
	`
	var key entity.RunnerAPIKey
	err := r.db.QueryRow(ctx, query, keyHash).Scan(
		&key.ID,
		&key.RunnerName,
		&key.KeyHash,
		&key.KeyPrefix,
		&key.Active,
		&key.LastUsedAt,
		&key.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// CreateAPIKey persists a new key record.
func (r *CredentialRepoImpl) CreateAPIKey(ctx context.Context, key *entity.RunnerAPIKey) error {
	query := `
		INSERT INTO runner_api_keys (id, runner_name, key_hash, key_prefix, active, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW());
	`
	_, err := r.db.Exec(ctx, query, key.ID, key.RunnerName, key.KeyHash, key.KeyPrefix, key.Active)
	return err
}

// FindRunnerByIdentity resolves a legacy identity-provider subject to a
// runner name, touching last_authenticated_at on success.
func (r *CredentialRepoImpl) FindRunnerByIdentity(ctx context.Context, identityID string) (string, error) {
	query := `
		UPDATE runner_identities
		SET last_authenticated_at = NOW()
		WHERE identity_id = $1
		RETURNING runner_name;
	`
	var runnerName string
	err := r.db.QueryRow(ctx, query, identityID).Scan(&runnerName)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return runnerName, nil
}
