package repository

import (
	"context"

	"github.com/user/scrape-coordinator/internal/entity"
)

// CredentialRepository defines the interface for runner credential records.
type CredentialRepository interface {
	// ValidateAPIKey looks up an active key by the SHA-256 hash of the
	// presented token and atomically stamps last_used_at in the same
	// statement, so a key revoked mid-request cannot be used afterwards.
	// Returns nil when no active key matches.
	ValidateAPIKey(ctx context.Context, keyHash string) (*entity.RunnerAPIKey, error)
	// CreateAPIKey persists a new key record (hash and display prefix).
	CreateAPIKey(ctx context.Context, key *entity.RunnerAPIKey) error
	// FindRunnerByIdentity resolves a legacy identity-provider subject to
	// a runner name and touches last_authenticated_at. Returns empty
	// string when no mapping exists.
	FindRunnerByIdentity(ctx context.Context, identityID string) (string, error)
}
