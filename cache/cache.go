package cache

import (
	"context"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Permanent is the TTL of entries that never expire and are never evicted.
const Permanent time.Duration = -1

// Cache is the storage contract the Coordinator needs.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Blocking: methods never perform I/O and never wait on other callers.
// - Ownership: values are copied on the way in and on the way out.
type Cache interface {
	// Get retrieves a cached value. Returns (nil, false) on miss or expiry.
	Get(key string) ([]byte, bool)

	// Put stores a value. TTL=Permanent never expires; TTL=0 means no caching.
	Put(key string, value []byte, ttl time.Duration) error

	// Delete removes a cached value. Reports whether an entry was removed.
	Delete(key string) bool
}

// FetchFunc performs the upstream call for a missed query.
// Its error is returned to the caller of Resolve unchanged; a panic is
// recovered and returned as ErrFetchPanic.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Admitter gates upstream calls. Acquire blocks until a call may proceed and
// only fails when ctx is done.
type Admitter interface {
	Acquire(ctx context.Context) error
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
