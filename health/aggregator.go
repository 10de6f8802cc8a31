package health

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultCheckTimeout bounds a CheckAll run when NewAggregator gets zero.
const DefaultCheckTimeout = 10 * time.Second

// Report is the outcome of running every registered check.
type Report struct {
	// Status is the worst individual status.
	Status  Status
	Results map[string]Result
}

// Aggregator runs a set of named checks concurrently under one deadline.
type Aggregator struct {
	timeout time.Duration

	mu       sync.RWMutex
	checkers []Checker
}

// NewAggregator creates an aggregator whose runs are bounded by timeout.
func NewAggregator(timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &Aggregator{timeout: timeout}
}

// Register adds checker under checker.Name(). A checker with the same name
// is replaced in place.
func (a *Aggregator) Register(checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := slices.IndexFunc(a.checkers, func(c Checker) bool { return c.Name() == checker.Name() })
	if i >= 0 {
		a.checkers[i] = checker
		return
	}
	a.checkers = append(a.checkers, checker)
}

// Names returns the registered names in registration order.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, len(a.checkers))
	for i, c := range a.checkers {
		names[i] = c.Name()
	}
	return names
}

func (a *Aggregator) snapshot() []Checker {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.checkers)
}

// Check runs the named check.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	for _, c := range a.snapshot() {
		if c.Name() == name {
			ctx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			return run(ctx, c), nil
		}
	}
	return Result{}, ErrCheckerNotFound
}

// CheckAll runs every check concurrently. A check still running at the
// deadline is reported unhealthy with ErrCheckTimeout.
func (a *Aggregator) CheckAll(ctx context.Context) Report {
	checkers := a.snapshot()
	report := Report{Results: make(map[string]Result, len(checkers))}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	for _, c := range checkers {
		g.Go(func() error {
			r := run(ctx, c)
			mu.Lock()
			report.Results[c.Name()] = r
			report.Status = Worst(report.Status, r.Status)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return report
}

// run stamps the result of one check, or abandons it when ctx ends first.
func run(ctx context.Context, c Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)
	go func() {
		r := c.Check(ctx)
		r.Duration = time.Since(start)
		if r.Timestamp.IsZero() {
			r.Timestamp = start
		}
		done <- r
	}()

	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		r := Unhealthy("check timed out", ErrCheckTimeout)
		r.Duration = time.Since(start)
		return r
	}
}
