package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewAggregator_DefaultTimeout(t *testing.T) {
	if got := NewAggregator(0).timeout; got != DefaultCheckTimeout {
		t.Errorf("timeout = %v, want %v", got, DefaultCheckTimeout)
	}
	if got := NewAggregator(time.Second).timeout; got != time.Second {
		t.Errorf("timeout = %v, want 1s", got)
	}
}

func TestAggregator_RegisterReplacesInPlace(t *testing.T) {
	agg := NewAggregator(0)
	agg.Register(fixed("cache", Healthy("first")))
	agg.Register(fixed("rate_governor", Healthy("ok")))
	agg.Register(fixed("cache", Healthy("second")))

	names := agg.Names()
	if len(names) != 2 || names[0] != "cache" || names[1] != "rate_governor" {
		t.Fatalf("Names() = %v", names)
	}
	result, err := agg.Check(context.Background(), "cache")
	if err != nil || result.Message != "second" {
		t.Errorf("Check() = (%q, %v), want the replacement", result.Message, err)
	}
}

func TestAggregator_CheckUnknown(t *testing.T) {
	_, err := NewAggregator(0).Check(context.Background(), "redis")
	if !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check() error = %v, want ErrCheckerNotFound", err)
	}
}

func TestAggregator_CheckAllReportsWorst(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		want    Status
	}{
		{"none", nil, StatusHealthy},
		{"all healthy", []Result{Healthy("ok"), Healthy("ok")}, StatusHealthy},
		{"one degraded", []Result{Healthy("ok"), Degraded("circuit open")}, StatusDegraded},
		{"unhealthy wins", []Result{Degraded("waiting"), Unhealthy("down", nil)}, StatusUnhealthy},
	}
	names := []string{"cache", "upstream"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator(0)
			for i, r := range tt.results {
				agg.Register(fixed(names[i], r))
			}

			report := agg.CheckAll(context.Background())
			if report.Status != tt.want {
				t.Errorf("Status = %v, want %v", report.Status, tt.want)
			}
			if len(report.Results) != len(tt.results) {
				t.Fatalf("got %d results, want %d", len(report.Results), len(tt.results))
			}
			for name, r := range report.Results {
				if r.Timestamp.IsZero() || r.Duration < 0 {
					t.Errorf("%s not stamped: %+v", name, r)
				}
			}
		})
	}
}

func TestAggregator_ChecksOverlap(t *testing.T) {
	agg := NewAggregator(0)
	var running, peak atomic.Int32
	slow := func(context.Context) Result {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		running.Add(-1)
		return Healthy("ok")
	}
	for _, name := range []string{"cache", "rate_governor", "upstream"} {
		agg.Register(NewCheckerFunc(name, slow))
	}

	agg.CheckAll(context.Background())
	if got := peak.Load(); got < 2 {
		t.Errorf("peak concurrency = %d, want checks to overlap", got)
	}
}

func TestAggregator_AbandonsSlowCheck(t *testing.T) {
	agg := NewAggregator(30 * time.Millisecond)
	agg.Register(fixed("cache", Healthy("ok")))
	agg.Register(NewCheckerFunc("upstream", func(context.Context) Result {
		time.Sleep(200 * time.Millisecond)
		return Healthy("late")
	}))

	report := agg.CheckAll(context.Background())
	slow := report.Results["upstream"]
	if slow.Status != StatusUnhealthy || !errors.Is(slow.Error, ErrCheckTimeout) {
		t.Errorf("upstream = %+v, want unhealthy with ErrCheckTimeout", slow)
	}
	if report.Results["cache"].Status != StatusHealthy {
		t.Errorf("cache = %+v, want healthy", report.Results["cache"])
	}
	if report.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", report.Status)
	}
}
