package health

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonwraymond/leagueops/cache"
	"github.com/jonwraymond/leagueops/resilience"
)

// CacheCheckerConfig configures the cache health checker.
type CacheCheckerConfig struct {
	// Name overrides the checker name. Default: "cache"
	Name string
}

// CacheChecker reports the cache store's budget health.
//
// It is degraded while the store holds more than its byte budget, which
// happens only when permanent entries alone exceed it, and on the first
// check after new capacity anomalies were counted.
type CacheChecker struct {
	name  string
	stats func() cache.Stats

	mu            sync.Mutex
	seenAnomalies int64
}

// NewCacheChecker creates a cache checker over a stats snapshot function,
// typically (*cache.Store).Stats.
func NewCacheChecker(stats func() cache.Stats, config CacheCheckerConfig) *CacheChecker {
	if config.Name == "" {
		config.Name = "cache"
	}
	return &CacheChecker{name: config.Name, stats: stats}
}

// Name returns the name of this checker.
func (c *CacheChecker) Name() string {
	return c.name
}

// Check performs the cache health check.
func (c *CacheChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	s := c.stats()
	details := map[string]any{
		"entries":            s.Entries,
		"permanent_entries":  s.PermanentEntries,
		"size_bytes":         s.SizeBytes,
		"max_size_bytes":     s.MaxSizeBytes,
		"usage_percent":      s.UsageRatio() * 100,
		"hit_rate":           s.HitRate,
		"evictions":          s.Evictions,
		"capacity_anomalies": s.CapacityAnomalies,
		"oversized":          s.Oversized,
	}

	c.mu.Lock()
	newAnomalies := s.CapacityAnomalies - c.seenAnomalies
	c.seenAnomalies = s.CapacityAnomalies
	c.mu.Unlock()

	if s.SizeBytes > s.MaxSizeBytes {
		return Degraded(fmt.Sprintf("cache over budget: %d of %d bytes held by permanent entries", s.SizeBytes, s.MaxSizeBytes)).
			WithDetails(details)
	}
	if newAnomalies > 0 {
		return Degraded(fmt.Sprintf("%d capacity anomalies since last check", newAnomalies)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("cache usage %.1f%%", s.UsageRatio()*100)).WithDetails(details)
}

// GovernorCheckerConfig configures the rate governor health checker.
type GovernorCheckerConfig struct {
	// Name overrides the checker name. Default: "rate_governor"
	Name string

	// DegradedWaiting is the number of queued callers at which the check
	// reports degraded. Default: 1
	DegradedWaiting int
}

// GovernorChecker reports whether callers are queued behind the upstream
// rate limit.
type GovernorChecker struct {
	config GovernorCheckerConfig
	stats  func() resilience.GovernorStats
}

// NewGovernorChecker creates a governor checker over a stats snapshot
// function, typically (*resilience.Governor).Stats.
func NewGovernorChecker(stats func() resilience.GovernorStats, config GovernorCheckerConfig) *GovernorChecker {
	if config.Name == "" {
		config.Name = "rate_governor"
	}
	if config.DegradedWaiting <= 0 {
		config.DegradedWaiting = 1
	}
	return &GovernorChecker{config: config, stats: stats}
}

// Name returns the name of this checker.
func (g *GovernorChecker) Name() string {
	return g.config.Name
}

// Check performs the governor health check.
func (g *GovernorChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	s := g.stats()
	details := map[string]any{
		"in_window": s.InWindow,
		"max_calls": s.MaxCalls,
		"window":    s.Window.String(),
		"waiting":   s.Waiting,
		"admitted":  s.Admitted,
		"waits":     s.Waits,
	}

	if s.Waiting >= g.config.DegradedWaiting {
		return Degraded(fmt.Sprintf("%d callers waiting for upstream admission", s.Waiting)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("%d of %d calls used in window", s.InWindow, s.MaxCalls)).WithDetails(details)
}

// UpstreamChecker reports the upstream circuit breaker state. An open or
// half-open breaker is degraded: cached queries are still served.
type UpstreamChecker struct {
	breaker *resilience.CircuitBreaker
}

// NewUpstreamChecker creates an upstream checker.
func NewUpstreamChecker(breaker *resilience.CircuitBreaker) *UpstreamChecker {
	return &UpstreamChecker{breaker: breaker}
}

// Name returns the name of this checker.
func (u *UpstreamChecker) Name() string {
	return "upstream"
}

// Check performs the upstream health check.
func (u *UpstreamChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	m := u.breaker.Metrics()
	details := map[string]any{
		"state":                m.State.String(),
		"consecutive_failures": m.ConsecutiveFailures,
		"total_failures":       m.TotalFailures,
		"total_successes":      m.TotalSuccesses,
	}

	switch m.State {
	case resilience.StateOpen:
		return Degraded("upstream circuit open; serving cached data only").WithDetails(details)
	case resilience.StateHalfOpen:
		return Degraded("upstream circuit half-open; probing recovery").WithDetails(details)
	default:
		return Healthy("upstream circuit closed").WithDetails(details)
	}
}
