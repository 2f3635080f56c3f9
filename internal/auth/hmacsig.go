package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/user/scrape-coordinator/internal/entity"
)

// HeaderSignature is the dedicated header carrying a webhook HMAC
// signature as a hex-encoded SHA-256 digest.
const HeaderSignature = "X-Webhook-Signature"

// hmacDefaultRunner is the runner name attributed to HMAC-signed requests
// whose payload does not assert one. HMAC proves possession of the shared
// secret, not identity, so a payload-asserted name is accepted as-is.
const hmacDefaultRunner = "hmac-runner"

// HMACValidator validates a shared-secret signature over the raw request
// body, or over a single well-known field when the endpoint signs one.
type HMACValidator struct {
	secret []byte
}

// NewHMACValidator creates a new HMACValidator with the shared secret.
func NewHMACValidator(secret []byte) *HMACValidator {
	return &HMACValidator{secret: secret}
}

// Validate recomputes the signature and compares it in constant time.
func (v *HMACValidator) Validate(ctx context.Context, req *Request) (*entity.AuthResult, error) {
	signature := req.Header.Get(HeaderSignature)
	if signature == "" || len(v.secret) == 0 {
		return nil, nil
	}

	message := req.Body
	if req.Payload != "" {
		message = []byte(req.Payload)
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(message)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, nil
	}

	return &entity.AuthResult{
		RunnerName: runnerNameFromPayload(req.Body),
		Method:     entity.AuthMethodHMAC,
	}, nil
}

// runnerNameFromPayload extracts a caller-asserted runner name from the
// signed body, if any.
func runnerNameFromPayload(body []byte) string {
	if len(body) == 0 {
		return hmacDefaultRunner
	}
	var payload struct {
		RunnerName string `json:"runner_name"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.RunnerName == "" {
		return hmacDefaultRunner
	}
	return payload.RunnerName
}
