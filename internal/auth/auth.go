// Package auth resolves a runner identity from one of several credential
// schemes. Validators are tried in a fixed priority order and the first
// positive result short-circuits the chain; every failure collapses into a
// single uniform unauthorized outcome so a caller cannot learn which
// scheme almost worked.
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/user/scrape-coordinator/internal/entity"
)

// ErrUnauthorized is returned when no validator produced a positive
// result. Handlers must map it to one uniform 401 response shape.
var ErrUnauthorized = errors.New("unauthorized")

// Request carries the credential material of one inbound request.
// Body is the raw request body (HMAC signatures are computed over it);
// Payload, when set, replaces the body as the signing basis for endpoints
// that sign a single well-known field such as a job id.
type Request struct {
	Header  http.Header
	Body    []byte
	Payload string
}

// Validator checks one credential scheme. A (nil, nil) return means the
// scheme did not produce a positive result and the chain should continue;
// an error means the underlying store failed and the request must surface
// an internal error, not a silent unauthorized.
type Validator interface {
	Validate(ctx context.Context, req *Request) (*entity.AuthResult, error)
}

// Authenticator runs an ordered validator chain.
type Authenticator struct {
	validators []Validator
}

// NewAuthenticator creates an Authenticator trying the given validators in
// order.
func NewAuthenticator(validators ...Validator) *Authenticator {
	return &Authenticator{validators: validators}
}

// Authenticate returns the first positive result, or ErrUnauthorized when
// every scheme fails or no credentials are present.
func (a *Authenticator) Authenticate(ctx context.Context, req *Request) (*entity.AuthResult, error) {
	for _, v := range a.validators {
		result, err := v.Validate(ctx, req)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
	}
	return nil, ErrUnauthorized
}
