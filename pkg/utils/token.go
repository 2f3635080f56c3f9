package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// APIKeyPrefix tags every runner API key so malformed input can be
// rejected before any lookup.
const APIKeyPrefix = "scrk_"

// HashToken creates a SHA256 hash of a token string.
// Only the hash is ever persisted; the plaintext key is shown once at
// creation time.
func HashToken(token string) string {
	h := sha256.New()
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}

// NewAPIKey generates a new runner API key: the recognizable prefix
// followed by a url-safe random body.
func NewAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return APIKeyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// KeyDisplayPrefix returns the short visible prefix of a key, safe to show
// in listings next to the stored hash.
func KeyDisplayPrefix(token string) string {
	const visible = 12
	if len(token) <= visible {
		return token
	}
	return token[:visible]
}

// IsAPIKeyFormat reports whether a token looks like a runner API key.
func IsAPIKeyFormat(token string) bool {
	return strings.HasPrefix(token, APIKeyPrefix) && len(token) > len(APIKeyPrefix)
}
