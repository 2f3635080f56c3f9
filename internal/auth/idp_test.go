package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/scrape-coordinator/internal/auth"
)

func TestIdentityProviderClientVerifyToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer good-token":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"sub":"idp-sub-1","email":"runner@example.com"}`))
		case "Bearer flaky-token":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer server.Close()

	client := auth.NewIdentityProviderClient(server.URL)
	ctx := context.Background()

	sub, err := client.VerifyToken(ctx, "good-token")
	require.NoError(t, err)
	assert.Equal(t, "idp-sub-1", sub)

	// Invalid token is a clean negative, not an error.
	sub, err = client.VerifyToken(ctx, "bad-token")
	require.NoError(t, err)
	assert.Empty(t, sub)

	// Provider-side failure is an error the caller can log.
	_, err = client.VerifyToken(ctx, "flaky-token")
	assert.Error(t, err)
}
