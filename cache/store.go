package cache

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DefaultMaxSizeBytes is the default store budget (100 MiB).
const DefaultMaxSizeBytes int64 = 100 << 20

// StoreConfig configures a Store.
type StoreConfig struct {
	// MaxSizeBytes is the soft budget for the sum of payload sizes.
	// Must be positive.
	MaxSizeBytes int64
}

// DefaultStoreConfig returns a config with a 100 MiB budget.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{MaxSizeBytes: DefaultMaxSizeBytes}
}

// Entry is a stored payload with its bookkeeping.
type Entry struct {
	Key          string
	Value        []byte
	StoredAt     time.Time
	TTL          time.Duration
	Size         int64
	LastAccessed time.Time
}

// IsPermanent reports whether the entry never expires.
func (e *Entry) IsPermanent() bool {
	return e.TTL == Permanent
}

func (e *Entry) expired(now time.Time) bool {
	return !e.IsPermanent() && now.Sub(e.StoredAt) >= e.TTL
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock sets the clock used for TTL and recency bookkeeping.
func WithClock(clock clockwork.Clock) StoreOption {
	return func(s *Store) {
		s.clock = clock
	}
}

// WithStoreLogger sets the logger used for capacity warnings.
func WithStoreLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// Store is a size-budgeted in-memory cache.
//
// Permanent entries live in their own map and are never evicted. Volatile
// entries live in an LRU list whose order matches LastAccessed, so the
// least recently used volatile entry is always the oldest element.
type Store struct {
	clock  clockwork.Clock
	logger *zap.Logger

	mu        sync.Mutex
	maxSize   int64
	size      int64
	permanent map[string]*Entry
	volatile  *simplelru.LRU[string, *Entry]
	counters  storeCounters
}

type storeCounters struct {
	hits              int64
	misses            int64
	evictions         int64
	expirations       int64
	capacityAnomalies int64
	oversized         int64
}

// NewStore creates a new store. It fails on a non-positive budget.
func NewStore(config StoreConfig, opts ...StoreOption) (*Store, error) {
	if config.MaxSizeBytes <= 0 {
		return nil, &ConfigError{Field: "max_size_bytes", Reason: "must be positive"}
	}

	// Capacity is enforced in bytes by the store, not in entries by the list.
	volatile, err := simplelru.NewLRU[string, *Entry](math.MaxInt, nil)
	if err != nil {
		return nil, err
	}

	s := &Store{
		clock:     clockwork.NewRealClock(),
		logger:    zap.NewNop(),
		maxSize:   config.MaxSizeBytes,
		permanent: make(map[string]*Entry),
		volatile:  volatile,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get retrieves a value from the store. Returns (nil, false) on miss or expiry.
// A hit refreshes the entry's LastAccessed time.
func (s *Store) Get(key string) ([]byte, bool) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.permanent[key]; ok {
		e.LastAccessed = now
		s.counters.hits++
		return clone(e.Value), true
	}

	e, ok := s.volatile.Peek(key)
	if !ok {
		s.counters.misses++
		return nil, false
	}
	if e.expired(now) {
		s.volatile.Remove(key)
		s.size -= e.Size
		s.counters.expirations++
		s.counters.misses++
		return nil, false
	}

	s.volatile.Get(key) // move to front
	e.LastAccessed = now
	s.counters.hits++
	return clone(e.Value), true
}

// Peek is Get without touching counters or recency.
func (s *Store) Peek(key string) ([]byte, bool) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.permanent[key]; ok {
		return clone(e.Value), true
	}
	if e, ok := s.volatile.Peek(key); ok && !e.expired(now) {
		return clone(e.Value), true
	}
	return nil, false
}

// Put stores a value with the given TTL.
//
// TTL=Permanent stores an entry that never expires; TTL=0 stores nothing.
// Overwriting a key replaces the previous entry and its size. Eviction runs
// before Put returns.
func (s *Store) Put(key string, value []byte, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if ttl < 0 && ttl != Permanent {
		return ErrInvalidTTL
	}
	if ttl == 0 {
		return nil
	}

	now := s.clock.Now()
	e := &Entry{
		Key:          key,
		Value:        clone(value),
		StoredAt:     now,
		TTL:          ttl,
		Size:         int64(len(value)),
		LastAccessed: now,
	}

	s.mu.Lock()
	s.removeLocked(key)

	// A volatile entry bigger than the whole budget would flush every other
	// volatile entry and then itself.
	if !e.IsPermanent() && e.Size > s.maxSize {
		s.counters.oversized++
		limit := s.maxSize
		s.mu.Unlock()
		s.logger.Warn("cache entry larger than budget, not stored",
			zap.String("key", key),
			zap.Int64("size_bytes", e.Size),
			zap.Int64("max_size_bytes", limit),
		)
		return nil
	}

	if e.IsPermanent() {
		s.permanent[key] = e
	} else {
		s.volatile.Add(key, e)
	}
	s.size += e.Size

	result := s.enforceBudgetLocked()
	s.mu.Unlock()

	s.logEviction(result)
	return nil
}

// Delete removes a value from the store. Idempotent.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(key)
}

// DeleteFunc removes every entry whose key matches and returns the count.
func (s *Store) DeleteFunc(match func(key string) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.permanent {
		if match(key) && s.removeLocked(key) {
			removed++
		}
	}
	for _, key := range s.volatile.Keys() {
		if match(key) && s.removeLocked(key) {
			removed++
		}
	}
	return removed
}

// Clear removes every entry and zeroes the size.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.permanent = make(map[string]*Entry)
	s.volatile.Purge()
	s.size = 0
}

// ClearVolatile removes every volatile entry, keeping permanent ones.
func (s *Store) ClearVolatile() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.volatile.Len()
	for _, e := range s.volatile.Values() {
		s.size -= e.Size
	}
	s.volatile.Purge()
	return n
}

// PurgeExpired removes expired volatile entries and returns the count.
// Lazy expiry on Get is sufficient for correctness; this only lowers peak
// memory.
func (s *Store) PurgeExpired() int {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for _, key := range s.volatile.Keys() {
		e, ok := s.volatile.Peek(key)
		if !ok || !e.expired(now) {
			continue
		}
		s.volatile.Remove(key)
		s.size -= e.Size
		s.counters.expirations++
		purged++
	}
	return purged
}

// RunJanitor purges expired entries every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if n := s.PurgeExpired(); n > 0 {
				s.logger.Debug("purged expired cache entries", zap.Int("count", n))
			}
		}
	}
}

// Len returns the number of stored entries, expired ones included until
// they are reclaimed.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.permanent) + s.volatile.Len()
}

// SizeBytes returns the current total payload size.
func (s *Store) SizeBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Stats returns a snapshot of store statistics.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Entries:           len(s.permanent) + s.volatile.Len(),
		PermanentEntries:  len(s.permanent),
		VolatileEntries:   s.volatile.Len(),
		SizeBytes:         s.size,
		MaxSizeBytes:      s.maxSize,
		Hits:              s.counters.hits,
		Misses:            s.counters.misses,
		Evictions:         s.counters.evictions,
		Expirations:       s.counters.expirations,
		CapacityAnomalies: s.counters.capacityAnomalies,
		Oversized:         s.counters.oversized,
	}
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRate = float64(st.Hits) / float64(total)
	}
	return st
}

func (s *Store) removeLocked(key string) bool {
	if e, ok := s.permanent[key]; ok {
		delete(s.permanent, key)
		s.size -= e.Size
		return true
	}
	if e, ok := s.volatile.Peek(key); ok {
		s.volatile.Remove(key)
		s.size -= e.Size
		return true
	}
	return false
}

// Ensure Store implements Cache
var _ Cache = (*Store)(nil)
