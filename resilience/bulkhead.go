package resilience

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// BulkheadConfig caps concurrent upstream requests.
type BulkheadConfig struct {
	// MaxConcurrent defaults to 10.
	MaxConcurrent int

	// MaxWait is how long a request may queue for a slot. Zero rejects
	// at once when every slot is taken.
	MaxWait time.Duration
}

// BulkheadMetrics is a snapshot of bulkhead occupancy.
type BulkheadMetrics struct {
	Active        int
	MaxActive     int
	Available     int
	MaxConcurrent int
	Rejected      int64
}

// Bulkhead caps in-flight upstream requests. It complements the Governor:
// the governor limits calls per window, the bulkhead limits calls at once.
type Bulkhead struct {
	config BulkheadConfig
	sem    *semaphore.Weighted

	mu      sync.Mutex
	metrics BulkheadMetrics
}

// NewBulkhead creates a bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	return &Bulkhead{
		config:  config,
		sem:     semaphore.NewWeighted(int64(config.MaxConcurrent)),
		metrics: BulkheadMetrics{MaxConcurrent: config.MaxConcurrent},
	}
}

// Acquire takes a slot. It returns ErrBulkheadFull when none frees up
// within MaxWait, or ctx.Err() when the caller gives up first.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	if !b.sem.TryAcquire(1) {
		if b.config.MaxWait <= 0 {
			return b.rejected()
		}
		waitCtx, cancel := context.WithTimeout(ctx, b.config.MaxWait)
		err := b.sem.Acquire(waitCtx, 1)
		cancel()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return b.rejected()
		}
	}

	b.mu.Lock()
	b.metrics.Active++
	b.metrics.MaxActive = max(b.metrics.MaxActive, b.metrics.Active)
	b.mu.Unlock()
	return nil
}

// Release returns a slot taken by Acquire.
func (b *Bulkhead) Release() {
	b.mu.Lock()
	b.metrics.Active--
	b.mu.Unlock()
	b.sem.Release(1)
}

// Execute runs op while holding a slot.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()
	return op(ctx)
}

func (b *Bulkhead) rejected() error {
	b.mu.Lock()
	b.metrics.Rejected++
	b.mu.Unlock()
	return ErrBulkheadFull
}

// Metrics returns current occupancy.
func (b *Bulkhead) Metrics() BulkheadMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	m := b.metrics
	m.Available = m.MaxConcurrent - m.Active
	return m
}
