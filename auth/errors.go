package auth

import "errors"

// Sentinel errors for operator authentication.
var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")

	// ErrForbidden is returned when an authenticated identity lacks the
	// scope an endpoint requires.
	ErrForbidden = errors.New("auth: access denied")
)
