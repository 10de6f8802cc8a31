// Package resilience protects the fantasy API from this service and this
// service from the fantasy API.
//
// # Patterns
//
//   - Governor: admits at most N calls in any rolling window. Callers over
//     quota wait for the window to roll instead of being rejected. The cache
//     coordinator consults it once per upstream fetch.
//
//   - Circuit Breaker: stops calling an upstream that keeps failing
//     (github.com/sony/gobreaker/v2).
//
//   - Retry: retries transient failures with exponential backoff
//     (github.com/cenkalti/backoff/v4).
//
//   - Bulkhead: limits concurrent upstream requests
//     (golang.org/x/sync/semaphore).
//
//   - Timeout: bounds each attempt.
//
// # Usage
//
//	gov, err := resilience.NewGovernor(resilience.GovernorConfig{
//	    MaxCalls: 20,
//	    Window:   time.Minute,
//	})
//
//	executor := resilience.NewExecutor(
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 4})),
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{RetryIf: isTransient})),
//	    resilience.WithTimeout(10*time.Second),
//	)
//
//	err = gov.Execute(ctx, func(ctx context.Context) error {
//	    return executor.Execute(ctx, callUpstream)
//	})
package resilience
