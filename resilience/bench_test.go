package resilience

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func newBenchGovernor(b *testing.B, maxCalls int) *Governor {
	b.Helper()
	g, err := NewGovernor(GovernorConfig{MaxCalls: maxCalls, Window: time.Hour})
	if err != nil {
		b.Fatal(err)
	}
	return g
}

// BenchmarkGovernor_Acquire measures admission while under quota.
func BenchmarkGovernor_Acquire(b *testing.B) {
	g := newBenchGovernor(b, b.N+1)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = g.Acquire(ctx)
	}
}

// BenchmarkGovernor_AcquireParallel measures lock contention on admission.
func BenchmarkGovernor_AcquireParallel(b *testing.B) {
	g := newBenchGovernor(b, b.N+1)
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = g.Acquire(ctx)
		}
	})
}

// BenchmarkGovernor_Stats measures a stats snapshot over a full window.
func BenchmarkGovernor_Stats(b *testing.B) {
	for _, calls := range []int{60, 1000} {
		b.Run(fmt.Sprintf("calls=%d", calls), func(b *testing.B) {
			g := newBenchGovernor(b, calls)
			for range calls {
				_ = g.Acquire(context.Background())
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = g.Stats()
			}
		})
	}
}

// BenchmarkCircuitBreaker_Execute_Closed measures the happy path.
func BenchmarkCircuitBreaker_Execute_Closed(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 5})
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = cb.Execute(ctx, func(context.Context) error { return nil })
		}
	})
}

// BenchmarkExecutor_UpstreamStack measures the full bulkhead, breaker,
// retry and timeout stack around a successful call.
func BenchmarkExecutor_UpstreamStack(b *testing.B) {
	e := NewExecutor(
		WithBulkhead(NewBulkhead(BulkheadConfig{MaxConcurrent: 64, MaxWait: time.Second})),
		WithCircuitBreaker(NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 5})),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
		WithTimeout(time.Second),
	)
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = e.Execute(ctx, func(context.Context) error { return nil })
		}
	})
}
