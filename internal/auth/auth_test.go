package auth_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/scrape-coordinator/internal/auth"
	"github.com/user/scrape-coordinator/internal/entity"
	"github.com/user/scrape-coordinator/pkg/utils"
)

type stubCredentials struct {
	mu         sync.Mutex
	keys       map[string]*entity.RunnerAPIKey
	identities map[string]string
	lookups    int
	failWith   error
}

func newStubCredentials() *stubCredentials {
	return &stubCredentials{
		keys:       make(map[string]*entity.RunnerAPIKey),
		identities: make(map[string]string),
	}
}

func (s *stubCredentials) ValidateAPIKey(ctx context.Context, keyHash string) (*entity.RunnerAPIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.failWith != nil {
		return nil, s.failWith
	}
	key, ok := s.keys[keyHash]
	if !ok || !key.Active {
		return nil, nil
	}
	now := time.Now()
	key.LastUsedAt = &now
	return key, nil
}

func (s *stubCredentials) CreateAPIKey(ctx context.Context, key *entity.RunnerAPIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key.KeyHash] = key
	return nil
}

func (s *stubCredentials) FindRunnerByIdentity(ctx context.Context, identityID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return "", s.failWith
	}
	return s.identities[identityID], nil
}

type stubVerifier struct {
	subjects map[string]string
	err      error
}

func (s *stubVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.subjects[token], nil
}

func signHex(secret, message []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

func mintKey(t *testing.T, creds *stubCredentials, runnerName string) string {
	t.Helper()
	token, err := utils.NewAPIKey()
	require.NoError(t, err)
	require.NoError(t, creds.CreateAPIKey(context.Background(), &entity.RunnerAPIKey{
		ID:         "key-" + runnerName,
		RunnerName: runnerName,
		KeyHash:    utils.HashToken(token),
		Active:     true,
	}))
	return token
}

func TestAPIKeyValidator(t *testing.T) {
	creds := newStubCredentials()
	token := mintKey(t, creds, "runner-1")
	v := auth.NewAPIKeyValidator(creds)
	ctx := context.Background()

	header := http.Header{}
	header.Set(auth.HeaderAPIKey, token)
	result, err := v.Validate(ctx, &auth.Request{Header: header})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "runner-1", result.RunnerName)
	assert.Equal(t, entity.AuthMethodAPIKey, result.Method)
	assert.Equal(t, "key-runner-1", result.KeyID)

	// The lookup stamps last_used_at.
	key := creds.keys[utils.HashToken(token)]
	require.NotNil(t, key.LastUsedAt)
}

func TestAPIKeyValidatorRejectsWithoutLookup(t *testing.T) {
	creds := newStubCredentials()
	v := auth.NewAPIKeyValidator(creds)
	ctx := context.Background()

	// A token without the recognizable prefix never reaches the store.
	header := http.Header{}
	header.Set(auth.HeaderAPIKey, "not-a-runner-key")
	result, err := v.Validate(ctx, &auth.Request{Header: header})
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 0, creds.lookups)

	// Absent header: same.
	result, err = v.Validate(ctx, &auth.Request{Header: http.Header{}})
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 0, creds.lookups)
}

func TestAPIKeyValidatorRejectsRevokedKey(t *testing.T) {
	creds := newStubCredentials()
	token := mintKey(t, creds, "runner-1")
	creds.keys[utils.HashToken(token)].Active = false
	v := auth.NewAPIKeyValidator(creds)

	header := http.Header{}
	header.Set(auth.HeaderAPIKey, token)
	result, err := v.Validate(context.Background(), &auth.Request{Header: header})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestHMACValidatorSignsBody(t *testing.T) {
	secret := []byte("shared-secret")
	v := auth.NewHMACValidator(secret)
	ctx := context.Background()
	body := []byte(`{"runner_name":"runner-7","chunk_id":"c1"}`)

	header := http.Header{}
	header.Set(auth.HeaderSignature, signHex(secret, body))
	result, err := v.Validate(ctx, &auth.Request{Header: header, Body: body})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, entity.AuthMethodHMAC, result.Method)
	assert.Equal(t, "runner-7", result.RunnerName, "payload-asserted name is honored")

	// Tampered body fails.
	result, err = v.Validate(ctx, &auth.Request{Header: header, Body: []byte(`{"runner_name":"other"}`)})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestHMACValidatorSignsPayloadField(t *testing.T) {
	secret := []byte("shared-secret")
	v := auth.NewHMACValidator(secret)

	// GET-style request: the signature covers the job id, not the body.
	header := http.Header{}
	header.Set(auth.HeaderSignature, signHex(secret, []byte("job-42")))
	result, err := v.Validate(context.Background(), &auth.Request{Header: header, Payload: "job-42"})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "hmac-runner", result.RunnerName, "no payload-asserted name falls back to the default")
}

func TestHMACValidatorSkipsWithoutSignatureOrSecret(t *testing.T) {
	body := []byte(`{}`)

	result, err := auth.NewHMACValidator([]byte("s")).Validate(context.Background(), &auth.Request{Header: http.Header{}, Body: body})
	require.NoError(t, err)
	assert.Nil(t, result)

	// An empty configured secret disables the scheme instead of matching
	// an empty-key signature.
	header := http.Header{}
	header.Set(auth.HeaderSignature, signHex(nil, body))
	result, err = auth.NewHMACValidator(nil).Validate(context.Background(), &auth.Request{Header: header, Body: body})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestBearerValidator(t *testing.T) {
	creds := newStubCredentials()
	creds.identities["idp-sub-1"] = "runner-legacy"
	verifier := &stubVerifier{subjects: map[string]string{"good-token": "idp-sub-1"}}
	v := auth.NewBearerValidator(verifier, creds)
	ctx := context.Background()

	header := http.Header{}
	header.Set("Authorization", "Bearer good-token")
	result, err := v.Validate(ctx, &auth.Request{Header: header})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "runner-legacy", result.RunnerName)
	assert.Equal(t, entity.AuthMethodBearer, result.Method)

	// Verified subject with no runner mapping: not authenticated.
	creds.identities = map[string]string{}
	result, err = v.Validate(ctx, &auth.Request{Header: header})
	require.NoError(t, err)
	assert.Nil(t, result)

	// Unverifiable token: not authenticated.
	header.Set("Authorization", "Bearer bad-token")
	result, err = v.Validate(ctx, &auth.Request{Header: header})
	require.NoError(t, err)
	assert.Nil(t, result)

	// Malformed header: scheme skipped.
	header.Set("Authorization", "Basic abc")
	result, err = v.Validate(ctx, &auth.Request{Header: header})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestBearerValidatorFailsClosedWhenProviderIsDown(t *testing.T) {
	creds := newStubCredentials()
	v := auth.NewBearerValidator(&stubVerifier{err: errors.New("connection refused")}, creds)

	header := http.Header{}
	header.Set("Authorization", "Bearer any")
	result, err := v.Validate(context.Background(), &auth.Request{Header: header})
	require.NoError(t, err, "provider outage is not an internal error")
	assert.Nil(t, result)
}

func TestAuthenticatorFirstPositiveWins(t *testing.T) {
	secret := []byte("shared-secret")
	creds := newStubCredentials()
	token := mintKey(t, creds, "runner-1")
	chain := auth.NewAuthenticator(
		auth.NewAPIKeyValidator(creds),
		auth.NewHMACValidator(secret),
	)
	ctx := context.Background()

	// Valid API key and a garbage signature on the same request: the key
	// wins and the signature is never consulted.
	header := http.Header{}
	header.Set(auth.HeaderAPIKey, token)
	header.Set(auth.HeaderSignature, "deadbeef")
	result, err := chain.Authenticate(ctx, &auth.Request{Header: header, Body: []byte(`{}`)})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, entity.AuthMethodAPIKey, result.Method)

	// Unknown key but valid signature: the chain falls through to HMAC.
	body := []byte(`{"runner_name":"runner-2"}`)
	header = http.Header{}
	header.Set(auth.HeaderAPIKey, utils.APIKeyPrefix+"unknown")
	header.Set(auth.HeaderSignature, signHex(secret, body))
	result, err = chain.Authenticate(ctx, &auth.Request{Header: header, Body: body})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, entity.AuthMethodHMAC, result.Method)
	assert.Equal(t, "runner-2", result.RunnerName)
}

func TestAuthenticatorUniformUnauthorized(t *testing.T) {
	creds := newStubCredentials()
	chain := auth.NewAuthenticator(
		auth.NewAPIKeyValidator(creds),
		auth.NewHMACValidator([]byte("shared-secret")),
		auth.NewBearerValidator(&stubVerifier{}, creds),
	)
	ctx := context.Background()

	// No credentials, a bad key, a bad signature and a bad bearer token
	// all collapse into the same error value.
	requests := []*auth.Request{
		{Header: http.Header{}},
		{Header: http.Header{auth.HeaderAPIKey: {utils.APIKeyPrefix + "wrong"}}},
		{Header: http.Header{auth.HeaderSignature: {"0000"}}, Body: []byte(`{}`)},
		{Header: http.Header{"Authorization": {"Bearer nope"}}},
	}
	for _, req := range requests {
		result, err := chain.Authenticate(ctx, req)
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
		assert.Nil(t, result)
	}
}

func TestAuthenticatorSurfacesStoreFailure(t *testing.T) {
	creds := newStubCredentials()
	storeErr := errors.New("connection reset")
	creds.failWith = storeErr
	chain := auth.NewAuthenticator(auth.NewAPIKeyValidator(creds))

	header := http.Header{}
	header.Set(auth.HeaderAPIKey, utils.APIKeyPrefix+"anything")
	_, err := chain.Authenticate(context.Background(), &auth.Request{Header: header})
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrUnauthorized, "store failures must not masquerade as bad credentials")
	assert.ErrorIs(t, err, storeErr)
}
