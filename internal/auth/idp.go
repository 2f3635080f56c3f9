package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// IdentityProviderClient verifies bearer tokens against a general-purpose
// identity provider's userinfo endpoint.
type IdentityProviderClient struct {
	userInfoURL string
	client      *http.Client
}

// NewIdentityProviderClient creates a client for the given userinfo URL.
func NewIdentityProviderClient(userInfoURL string) *IdentityProviderClient {
	return &IdentityProviderClient{
		userInfoURL: userInfoURL,
		client:      &http.Client{Timeout: 5 * time.Second},
	}
}

// VerifyToken exchanges the token for the provider's subject id. A 401/403
// from the provider means the token is simply invalid, not an error.
func (c *IdentityProviderClient) VerifyToken(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", nil
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var userInfo struct {
		Sub string `json:"sub"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return "", err
	}
	return userInfo.Sub, nil
}
