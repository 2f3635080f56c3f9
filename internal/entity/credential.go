package entity

import "time"

// AuthMethod identifies which credential scheme authenticated a request.
type AuthMethod string

const (
	AuthMethodAPIKey AuthMethod = "api_key"
	AuthMethodHMAC   AuthMethod = "hmac"
	// AuthMethodBearer is the deprecated identity-provider path, retained
	// for migration continuity only.
	AuthMethodBearer AuthMethod = "bearer"
)

// RunnerAPIKey mirrors the `runner_api_keys` PostgreSQL table schema.
// Only the SHA-256 hash of the key is stored; KeyPrefix holds the first
// few characters for display in the admin UI.
type RunnerAPIKey struct {
	ID         string
	RunnerName string
	KeyHash    string
	KeyPrefix  string
	Active     bool
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// RunnerIdentity maps a legacy identity-provider subject to a runner name.
type RunnerIdentity struct {
	RunnerName          string
	IdentityID          string
	LastAuthenticatedAt *time.Time
}

// AuthResult is the normalized outcome of a successful authentication.
type AuthResult struct {
	RunnerName string
	Method     AuthMethod
	KeyID      string
}
