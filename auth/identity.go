package auth

import (
	"slices"
	"time"
)

// AuthMethod indicates how authentication was performed.
type AuthMethod string

const (
	AuthMethodJWT    AuthMethod = "jwt"
	AuthMethodAPIKey AuthMethod = "api_key"
)

// Operator scopes.
const (
	// ScopeCacheRead allows reading cache statistics.
	ScopeCacheRead = "cache:read"
	// ScopeCacheAdmin allows clearing and invalidating cache entries. It
	// implies ScopeCacheRead.
	ScopeCacheAdmin = "cache:admin"
)

// Identity represents an authenticated operator.
type Identity struct {
	// Principal is the operator or key owner name.
	Principal string

	// Scopes are the granted operator scopes.
	Scopes []string

	// Method indicates how authentication was performed.
	Method AuthMethod

	// Claims contains the raw token claims or key metadata.
	Claims map[string]any

	// ExpiresAt is when this identity expires (zero = never).
	ExpiresAt time.Time
}

// HasScope reports whether the identity was granted scope.
func (id *Identity) HasScope(scope string) bool {
	if slices.Contains(id.Scopes, scope) {
		return true
	}
	return scope == ScopeCacheRead && slices.Contains(id.Scopes, ScopeCacheAdmin)
}

// IsExpired reports whether the identity has expired.
func (id *Identity) IsExpired() bool {
	return !id.ExpiresAt.IsZero() && time.Now().After(id.ExpiresAt)
}
