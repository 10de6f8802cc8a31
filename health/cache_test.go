package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/leagueops/cache"
	"github.com/jonwraymond/leagueops/resilience"
)

func TestCacheChecker_Healthy(t *testing.T) {
	store, err := cache.NewStore(cache.StoreConfig{MaxSizeBytes: 100})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put("standings/league:x", make([]byte, 10), time.Minute); err != nil {
		t.Fatal(err)
	}

	checker := NewCacheChecker(store.Stats, CacheCheckerConfig{})
	if checker.Name() != "cache" {
		t.Errorf("Name() = %q, want cache", checker.Name())
	}

	result := checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy (%s)", result.Status, result.Message)
	}
	if result.Details["size_bytes"] != int64(10) {
		t.Errorf("Details[size_bytes] = %v, want 10", result.Details["size_bytes"])
	}
}

func TestCacheChecker_PermanentOverBudget(t *testing.T) {
	store, err := cache.NewStore(cache.StoreConfig{MaxSizeBytes: 10})
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Put("draft_results.history/season:2019", make([]byte, 8), cache.Permanent)
	_ = store.Put("draft_results.history/season:2020", make([]byte, 8), cache.Permanent)

	checker := NewCacheChecker(store.Stats, CacheCheckerConfig{Name: "league_cache"})
	result := checker.Check(context.Background())
	if result.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded", result.Status)
	}
	if checker.Name() != "league_cache" {
		t.Errorf("Name() = %q", checker.Name())
	}
}

func TestCacheChecker_NewAnomaliesReportedOnce(t *testing.T) {
	stats := cache.Stats{MaxSizeBytes: 100, SizeBytes: 50, CapacityAnomalies: 2}
	checker := NewCacheChecker(func() cache.Stats { return stats }, CacheCheckerConfig{})

	if got := checker.Check(context.Background()).Status; got != StatusDegraded {
		t.Errorf("first check = %v, want degraded", got)
	}
	if got := checker.Check(context.Background()).Status; got != StatusHealthy {
		t.Errorf("second check = %v, want healthy", got)
	}
	stats.CapacityAnomalies = 3
	if got := checker.Check(context.Background()).Status; got != StatusDegraded {
		t.Errorf("after a new anomaly = %v, want degraded", got)
	}
}

func TestCacheChecker_ContextCancelled(t *testing.T) {
	checker := NewCacheChecker(func() cache.Stats { return cache.Stats{} }, CacheCheckerConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if result := checker.Check(ctx); result.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", result.Status)
	}
}

func TestGovernorChecker(t *testing.T) {
	tests := []struct {
		name      string
		waiting   int
		threshold int
		want      Status
	}{
		{"idle", 0, 0, StatusHealthy},
		{"queued", 1, 0, StatusDegraded},
		{"below custom threshold", 2, 3, StatusHealthy},
		{"at custom threshold", 3, 3, StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewGovernorChecker(func() resilience.GovernorStats {
				return resilience.GovernorStats{Waiting: tt.waiting, InWindow: 60, MaxCalls: 60, Window: time.Minute}
			}, GovernorCheckerConfig{DegradedWaiting: tt.threshold})

			if got := checker.Check(context.Background()).Status; got != tt.want {
				t.Errorf("Status = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGovernorChecker_LiveGovernor(t *testing.T) {
	gov, err := resilience.NewGovernor(resilience.GovernorConfig{MaxCalls: 2, Window: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	_ = gov.Acquire(context.Background())

	checker := NewGovernorChecker(gov.Stats, GovernorCheckerConfig{})
	result := checker.Check(context.Background())
	if result.Status != StatusHealthy || result.Details["in_window"] != 1 {
		t.Errorf("Check() = %v %v", result.Status, result.Details)
	}
	if checker.Name() != "rate_governor" {
		t.Errorf("Name() = %q", checker.Name())
	}
}

func TestUpstreamChecker(t *testing.T) {
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: time.Hour,
	})
	checker := NewUpstreamChecker(breaker)

	if got := checker.Check(context.Background()).Status; got != StatusHealthy {
		t.Errorf("closed breaker = %v, want healthy", got)
	}

	_ = breaker.Execute(context.Background(), func(context.Context) error {
		return errors.New("upstream: 503")
	})

	result := checker.Check(context.Background())
	if result.Status != StatusDegraded {
		t.Errorf("open breaker = %v, want degraded", result.Status)
	}
	if result.Details["state"] != "open" {
		t.Errorf("Details[state] = %v, want open", result.Details["state"])
	}
}
