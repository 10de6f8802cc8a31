package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Resolver answers queries, from cache when possible.
type Resolver interface {
	Resolve(ctx context.Context, q Query, fetch FetchFunc) ([]byte, error)
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithKeyer overrides the DefaultKeyer.
func WithKeyer(k Keyer) CoordinatorOption {
	return func(c *Coordinator) {
		c.keyer = k
	}
}

// WithCoordinatorLogger sets the logger for store failures.
func WithCoordinatorLogger(logger *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// Coordinator is the read-through path in front of the upstream API.
//
// A query is answered from the store when a live entry exists. Otherwise
// one caller per key is admitted by the gate, fetches, and stores the result
// under the TTL its category classifies to; concurrent callers for the same
// key wait for that fetch instead of issuing their own. Failed fetches are
// never stored, and a panicking fetch fails with ErrFetchPanic.
//
// Invalidation and clearing start a new generation. A fetch that began in an
// earlier generation still answers its callers but is not stored.
type Coordinator struct {
	store  *Store
	gate   Admitter
	policy Policy
	keyer  Keyer
	logger *zap.Logger

	group singleflight.Group

	// mu orders generation bumps against stores of fetched results.
	mu  sync.RWMutex
	gen uint64

	fetches     atomic.Int64
	fetchErrors atomic.Int64
	coalesced   atomic.Int64
}

// NewCoordinator creates a coordinator. A nil gate admits every call.
func NewCoordinator(store *Store, gate Admitter, policy Policy, opts ...CoordinatorOption) (*Coordinator, error) {
	if store == nil {
		return nil, &ConfigError{Field: "store", Reason: "is required"}
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if gate == nil {
		gate = unlimited{}
	}

	c := &Coordinator{
		store:  store,
		gate:   gate,
		policy: policy.normalized(),
		keyer:  NewDefaultKeyer(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// abandonedError marks a flight that ended because its leader's context
// was done. Waiters whose own context is still live start a new flight.
type abandonedError struct {
	err error
}

func (e *abandonedError) Error() string { return "fetch abandoned: " + e.err.Error() }
func (e *abandonedError) Unwrap() error { return e.err }

// Resolve returns the payload for q, calling fetch only on a miss.
//
// The returned slice is owned by the caller.
func (c *Coordinator) Resolve(ctx context.Context, q Query, fetch FetchFunc) ([]byte, error) {
	key, err := c.keyer.Key(q)
	if err != nil {
		return nil, err
	}

	if v, ok := c.store.Get(key); ok {
		return v, nil
	}

	for {
		leader := false
		ch := c.group.DoChan(key, func() (any, error) {
			leader = true
			return c.fill(ctx, key, q.Category, fetch)
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if !leader {
				c.coalesced.Add(1)
			}
			if res.Err != nil {
				var abandoned *abandonedError
				if errors.As(res.Err, &abandoned) {
					if ctx.Err() != nil {
						return nil, abandoned.err
					}
					continue
				}
				return nil, res.Err
			}
			return clone(res.Val.([]byte)), nil
		}
	}
}

// fill runs once per flight.
func (c *Coordinator) fill(ctx context.Context, key, category string, fetch FetchFunc) ([]byte, error) {
	// A flight that finished between our Get and DoChan already stored it.
	if v, ok := c.store.Peek(key); ok {
		return v, nil
	}

	if err := c.gate.Acquire(ctx); err != nil {
		return nil, &abandonedError{err: err}
	}

	gen := c.generation()
	c.fetches.Add(1)
	v, err := callFetch(ctx, fetch)
	if err != nil {
		c.fetchErrors.Add(1)
		if ctx.Err() != nil {
			return nil, &abandonedError{err: err}
		}
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.gen != gen {
		c.logger.Debug("cache reset during fetch, result not stored", zap.String("key", key))
		return v, nil
	}
	if err := c.store.Put(key, v, c.policy.Classify(category)); err != nil {
		c.logger.Warn("failed to store fetched result",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return v, nil
}

func callFetch(ctx context.Context, fetch FetchFunc) (v []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("%w: %v", ErrFetchPanic, r)
		}
	}()
	return fetch(ctx)
}

func (c *Coordinator) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// reset runs fn as the start of a new generation.
func (c *Coordinator) reset(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	fn()
}

// Invalidate removes the entry for q.
func (c *Coordinator) Invalidate(q Query) (bool, error) {
	key, err := c.keyer.Key(q)
	if err != nil {
		return false, err
	}
	var removed bool
	c.reset(func() {
		c.group.Forget(key)
		removed = c.store.Delete(key)
	})
	return removed, nil
}

// InvalidateCategory removes every entry of category and returns the count.
func (c *Coordinator) InvalidateCategory(category string) int {
	var n int
	c.reset(func() {
		n = c.store.DeleteFunc(func(key string) bool {
			return InCategory(key, category)
		})
	})
	return n
}

// ClearVolatile removes every volatile entry and returns the count.
func (c *Coordinator) ClearVolatile() int {
	var n int
	c.reset(func() {
		n = c.store.ClearVolatile()
	})
	return n
}

// ClearAll empties the store.
func (c *Coordinator) ClearAll() {
	c.reset(c.store.Clear)
}

// Policy returns the coordinator's policy.
func (c *Coordinator) Policy() Policy {
	return c.policy
}

// Store returns the underlying store.
func (c *Coordinator) Store() *Store {
	return c.store
}

// Stats returns store statistics plus fetch accounting.
func (c *Coordinator) Stats() CoordinatorStats {
	return CoordinatorStats{
		Stats:       c.store.Stats(),
		Fetches:     c.fetches.Load(),
		FetchErrors: c.fetchErrors.Load(),
		Coalesced:   c.coalesced.Load(),
	}
}

type unlimited struct{}

func (unlimited) Acquire(context.Context) error { return nil }

// Ensure Coordinator implements Resolver
var _ Resolver = (*Coordinator)(nil)
