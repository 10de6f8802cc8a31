package auth

import (
	"context"
	"net/http"
)

// Authenticator checks one kind of operator credential. Implementations are
// safe for concurrent use. A rejected credential is reported through
// AuthResult; a non-nil error means the check itself could not run.
type Authenticator interface {
	Name() string

	// Supports reports whether req carries this kind of credential.
	Supports(ctx context.Context, req *AuthRequest) bool

	Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error)
}

// AuthRequest carries the credentials of one admin request.
type AuthRequest struct {
	Headers http.Header
}

// GetHeader returns the first value of key, or "".
func (r *AuthRequest) GetHeader(key string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(key)
}

// AuthResult is the outcome of one authentication attempt. Identity is set
// on success and Error on failure.
type AuthResult struct {
	Authenticated bool
	Identity      *Identity
	Error         error

	// Method names the authenticator that produced the result.
	Method string
}

// AuthSuccess wraps identity in a successful result.
func AuthSuccess(identity *Identity) *AuthResult {
	return &AuthResult{Authenticated: true, Identity: identity, Method: string(identity.Method)}
}

// AuthFailure reports err from the named method.
func AuthFailure(err error, method string) *AuthResult {
	return &AuthResult{Error: err, Method: method}
}
