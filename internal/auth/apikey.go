package auth

import (
	"context"

	"github.com/user/scrape-coordinator/internal/entity"
	"github.com/user/scrape-coordinator/internal/repository"
	"github.com/user/scrape-coordinator/pkg/utils"
)

// HeaderAPIKey is the dedicated header carrying a runner API key.
const HeaderAPIKey = "X-Runner-Key"

// APIKeyValidator validates opaque runner API keys. Tokens that do not
// match the recognizable prefix are rejected before any lookup.
type APIKeyValidator struct {
	credentials repository.CredentialRepository
}

// NewAPIKeyValidator creates a new APIKeyValidator.
func NewAPIKeyValidator(credentials repository.CredentialRepository) *APIKeyValidator {
	return &APIKeyValidator{credentials: credentials}
}

// Validate hashes the presented token and looks up a non-revoked key
// record; the lookup also stamps last_used_at atomically.
func (v *APIKeyValidator) Validate(ctx context.Context, req *Request) (*entity.AuthResult, error) {
	token := req.Header.Get(HeaderAPIKey)
	if token == "" || !utils.IsAPIKeyFormat(token) {
		return nil, nil
	}

	key, err := v.credentials.ValidateAPIKey(ctx, utils.HashToken(token))
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, nil
	}

	return &entity.AuthResult{
		RunnerName: key.RunnerName,
		Method:     entity.AuthMethodAPIKey,
		KeyID:      key.ID,
	}, nil
}
