package resilience

import (
	"context"
	"time"
)

// layer is one resilience pattern wrapped around an upstream call.
type layer interface {
	Execute(ctx context.Context, op func(context.Context) error) error
}

// Executor stacks the upstream patterns around one logical fetch. From the
// outside in: bulkhead, circuit breaker, retry, per-attempt timeout. The
// breaker therefore records one outcome per retried fetch.
type Executor struct {
	circuitBreaker *CircuitBreaker
	retry          *Retry
	bulkhead       *Bulkhead
	timeout        *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an executor with the given layers. Unset layers are
// skipped.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCircuitBreaker sets the breaker layer.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.circuitBreaker = cb }
}

// WithRetry sets the retry layer.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithBulkhead sets the concurrency cap.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.bulkhead = b }
}

// WithTimeout bounds every attempt to d.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = NewTimeout(TimeoutConfig{Timeout: d}) }
}

// layers returns the configured layers innermost first.
func (e *Executor) layers() []layer {
	var ls []layer
	if e.timeout != nil {
		ls = append(ls, e.timeout)
	}
	if e.retry != nil {
		ls = append(ls, e.retry)
	}
	if e.circuitBreaker != nil {
		ls = append(ls, e.circuitBreaker)
	}
	if e.bulkhead != nil {
		ls = append(ls, e.bulkhead)
	}
	return ls
}

// Execute runs op through every configured layer.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	call := op
	for _, l := range e.layers() {
		inner := call
		call = func(ctx context.Context) error {
			return l.Execute(ctx, inner)
		}
	}
	return call(ctx)
}

// CircuitBreaker returns the breaker layer, or nil.
func (e *Executor) CircuitBreaker() *CircuitBreaker {
	return e.circuitBreaker
}

// Bulkhead returns the bulkhead layer, or nil.
func (e *Executor) Bulkhead() *Bulkhead {
	return e.bulkhead
}
