package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/user/scrape-coordinator/internal/entity"
	"github.com/user/scrape-coordinator/internal/repository"
)

// TokenVerifier exchanges a bearer token for an identity-provider subject
// id. An empty subject with a nil error means the token did not verify.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

// BearerValidator validates legacy identity-provider bearer tokens.
//
// Deprecated: retained only for migration continuity while runners move to
// API keys. The subject is joined against the runner_identities mapping.
type BearerValidator struct {
	verifier    TokenVerifier
	credentials repository.CredentialRepository
}

// NewBearerValidator creates a new BearerValidator.
func NewBearerValidator(verifier TokenVerifier, credentials repository.CredentialRepository) *BearerValidator {
	return &BearerValidator{verifier: verifier, credentials: credentials}
}

// Validate exchanges the bearer token for an identity and resolves it to a
// runner name, touching last_authenticated_at on the mapping.
func (v *BearerValidator) Validate(ctx context.Context, req *Request) (*entity.AuthResult, error) {
	header := req.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, nil
	}

	identityID, err := v.verifier.VerifyToken(ctx, token)
	if err != nil {
		// The identity provider being unreachable must not take the
		// coordinator down with it; the deprecated path just fails closed.
		slog.Warn("Identity provider token verification failed", "error", err)
		return nil, nil
	}
	if identityID == "" {
		return nil, nil
	}

	runnerName, err := v.credentials.FindRunnerByIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if runnerName == "" {
		return nil, nil
	}

	return &entity.AuthResult{
		RunnerName: runnerName,
		Method:     entity.AuthMethodBearer,
	}, nil
}
