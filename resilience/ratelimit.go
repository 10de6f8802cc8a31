package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// GovernorConfig configures the rate governor.
type GovernorConfig struct {
	// MaxCalls is the number of calls admitted in any rolling window.
	MaxCalls int

	// Window is the length of the rolling window.
	Window time.Duration
}

// Validate checks the config at construction time.
func (c GovernorConfig) Validate() error {
	if c.MaxCalls <= 0 {
		return fmt.Errorf("%w: max_calls must be positive, got %d", ErrInvalidConfig, c.MaxCalls)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %s", ErrInvalidConfig, c.Window)
	}
	return nil
}

// GovernorOption configures a Governor.
type GovernorOption func(*Governor)

// WithGovernorClock sets the clock the governor waits on.
func WithGovernorClock(clock clockwork.Clock) GovernorOption {
	return func(g *Governor) {
		g.clock = clock
	}
}

// Governor admits at most MaxCalls calls in any rolling Window.
//
// It keeps the admission times of the current window. A caller over quota
// sleeps until the oldest admission leaves the window and then competes
// again; it is never rejected. Waiters are not served in FIFO order.
type Governor struct {
	config GovernorConfig
	clock  clockwork.Clock

	mu       sync.Mutex
	calls    []time.Time // admission times, oldest first
	admitted int64
	waits    int64
	waiting  int
}

// NewGovernor creates a new governor.
func NewGovernor(config GovernorConfig, opts ...GovernorOption) (*Governor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	g := &Governor{
		config: config,
		clock:  clockwork.NewRealClock(),
		calls:  make([]time.Time, 0, config.MaxCalls),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Acquire blocks until a call may proceed and records it.
// It returns ctx.Err() if ctx is done first; nothing is recorded then.
func (g *Governor) Acquire(ctx context.Context) error {
	counted := false
	defer func() {
		if counted {
			g.mu.Lock()
			g.waiting--
			g.mu.Unlock()
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		g.mu.Lock()
		now := g.clock.Now()
		g.pruneLocked(now)
		if len(g.calls) < g.config.MaxCalls {
			g.calls = append(g.calls, now)
			g.admitted++
			g.mu.Unlock()
			return nil
		}
		wait := g.calls[0].Add(g.config.Window).Sub(now)
		if !counted {
			counted = true
			g.waits++
			g.waiting++
		}
		g.mu.Unlock()

		timer := g.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.Chan():
		}
	}
}

// Execute runs op once admitted.
func (g *Governor) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := g.Acquire(ctx); err != nil {
		return err
	}
	return op(ctx)
}

// pruneLocked drops admissions that have left the window.
func (g *Governor) pruneLocked(now time.Time) {
	i := 0
	for i < len(g.calls) && now.Sub(g.calls[i]) >= g.config.Window {
		i++
	}
	if i > 0 {
		g.calls = append(g.calls[:0], g.calls[i:]...)
	}
}

// Config returns the governor configuration.
func (g *Governor) Config() GovernorConfig {
	return g.config
}

// Stats returns current governor statistics.
func (g *Governor) Stats() GovernorStats {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pruneLocked(g.clock.Now())
	return GovernorStats{
		Admitted: g.admitted,
		Waits:    g.waits,
		Waiting:  g.waiting,
		InWindow: len(g.calls),
		MaxCalls: g.config.MaxCalls,
		Window:   g.config.Window,
	}
}

// Reset forgets the current window. Waiters re-check on their next wake-up.
func (g *Governor) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = g.calls[:0]
}

// GovernorStats contains governor statistics.
type GovernorStats struct {
	Admitted int64         `json:"admitted"`
	Waits    int64         `json:"waits"`
	Waiting  int           `json:"waiting"`
	InWindow int           `json:"in_window"`
	MaxCalls int           `json:"max_calls"`
	Window   time.Duration `json:"window"`
}
