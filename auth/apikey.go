package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"slices"
	"strings"
	"sync"
	"time"
)

// DefaultAPIKeyHeader carries operator API keys.
const DefaultAPIKeyHeader = "X-API-Key"

// OperatorKey is one operator API key. Only the SHA-256 of the key is held.
type OperatorKey struct {
	ID        string
	Hash      string
	Principal string
	Scopes    []string

	// ExpiresAt is zero for keys that never expire.
	ExpiresAt time.Time
}

// NewOperatorKey hashes plaintext into an OperatorKey.
func NewOperatorKey(id, plaintext, principal string, scopes ...string) OperatorKey {
	return OperatorKey{ID: id, Hash: HashAPIKey(plaintext), Principal: principal, Scopes: scopes}
}

func (k OperatorKey) expired(now time.Time) bool {
	return !k.ExpiresAt.IsZero() && now.After(k.ExpiresAt)
}

// HashAPIKey returns the hex SHA-256 of key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// KeyRing holds the operator keys accepted by the admin surface.
type KeyRing struct {
	mu   sync.RWMutex
	keys []OperatorKey
}

// NewKeyRing returns a ring holding keys.
func NewKeyRing(keys ...OperatorKey) *KeyRing {
	r := &KeyRing{}
	for _, k := range keys {
		r.Add(k)
	}
	return r
}

// Add stores k, replacing the key with the same ID.
func (r *KeyRing) Add(k OperatorKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := slices.IndexFunc(r.keys, func(e OperatorKey) bool { return e.ID == k.ID }); i >= 0 {
		r.keys[i] = k
		return
	}
	r.keys = append(r.keys, k)
}

// Revoke removes the key with id and reports whether it existed.
func (r *KeyRing) Revoke(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.keys)
	r.keys = slices.DeleteFunc(r.keys, func(e OperatorKey) bool { return e.ID == id })
	return len(r.keys) != n
}

// Len returns the number of keys held.
func (r *KeyRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

// match compares hash against every key in constant time, so the lookup
// cost does not depend on which key matched.
func (r *KeyRing) match(hash string) (OperatorKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		found OperatorKey
		ok    bool
	)
	for _, k := range r.keys {
		if subtle.ConstantTimeCompare([]byte(k.Hash), []byte(hash)) == 1 && !ok {
			found, ok = k, true
		}
	}
	return found, ok
}

// APIKeyAuthenticator accepts keys held in a KeyRing.
type APIKeyAuthenticator struct {
	header string
	ring   *KeyRing
}

// NewAPIKeyAuthenticator reads keys from header, or DefaultAPIKeyHeader
// when header is empty.
func NewAPIKeyAuthenticator(header string, ring *KeyRing) *APIKeyAuthenticator {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	return &APIKeyAuthenticator{header: header, ring: ring}
}

func (a *APIKeyAuthenticator) Name() string { return "api_key" }

// Supports reports whether the request carries the key header.
func (a *APIKeyAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	return req.GetHeader(a.header) != ""
}

// Authenticate resolves the presented key to its operator identity.
func (a *APIKeyAuthenticator) Authenticate(_ context.Context, req *AuthRequest) (*AuthResult, error) {
	presented := strings.TrimSpace(req.GetHeader(a.header))
	if presented == "" {
		return AuthFailure(ErrMissingCredentials, a.Name()), nil
	}

	key, ok := a.ring.match(HashAPIKey(presented))
	switch {
	case !ok:
		return AuthFailure(ErrInvalidCredentials, a.Name()), nil
	case key.expired(time.Now()):
		return AuthFailure(ErrTokenExpired, a.Name()), nil
	}

	return AuthSuccess(&Identity{
		Principal: key.Principal,
		Scopes:    key.Scopes,
		Method:    AuthMethodAPIKey,
		ExpiresAt: key.ExpiresAt,
		Claims:    map[string]any{"key_id": key.ID},
	}), nil
}

var _ Authenticator = (*APIKeyAuthenticator)(nil)
