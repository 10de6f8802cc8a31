package observe

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/leagueops/cache"
	"github.com/jonwraymond/leagueops/resilience"
)

// Metrics records resolve metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordResolve records one resolve with its result source, duration
	// and error status.
	RecordResolve(ctx context.Context, meta QueryMeta, source string, duration time.Duration, err error)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates the resolve instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"leagueops.resolve.total",
		metric.WithDescription("Total number of resolved queries"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"leagueops.resolve.errors",
		metric.WithDescription("Total number of failed resolves"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"leagueops.resolve.duration_ms",
		metric.WithDescription("Resolve duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) RecordResolve(ctx context.Context, meta QueryMeta, source string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("query.category", meta.Category),
	}
	if source != "" {
		attrs = append(attrs, attribute.String("query.source", source))
	}
	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

type noopMetrics struct{}

func (m *noopMetrics) RecordResolve(ctx context.Context, meta QueryMeta, source string, duration time.Duration, err error) {
}

// RegisterCacheMetrics publishes cache and governor statistics as
// observable instruments. Either snapshot function may be nil. The returned
// registration stops collection when unregistered.
func RegisterCacheMetrics(meter metric.Meter, cacheStats func() cache.CoordinatorStats, governorStats func() resilience.GovernorStats) (metric.Registration, error) {
	if cacheStats == nil && governorStats == nil {
		return nil, errors.New("observe: no statistics to register")
	}

	var (
		observables []metric.Observable
		gauges      = map[string]metric.Int64ObservableGauge{}
		counters    = map[string]metric.Int64ObservableCounter{}
	)
	gauge := func(name, desc, unit string) error {
		g, err := meter.Int64ObservableGauge(name, metric.WithDescription(desc), metric.WithUnit(unit))
		if err != nil {
			return err
		}
		gauges[name] = g
		observables = append(observables, g)
		return nil
	}
	counter := func(name, desc, unit string) error {
		c, err := meter.Int64ObservableCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		if err != nil {
			return err
		}
		counters[name] = c
		observables = append(observables, c)
		return nil
	}

	var errs []error
	if cacheStats != nil {
		errs = append(errs,
			gauge("leagueops.cache.entries", "Live cache entries", "{entry}"),
			gauge("leagueops.cache.permanent_entries", "Live permanent cache entries", "{entry}"),
			gauge("leagueops.cache.size_bytes", "Bytes held by the cache", "By"),
			gauge("leagueops.cache.max_size_bytes", "Configured cache budget", "By"),
			counter("leagueops.cache.hits", "Cache hits", "{hit}"),
			counter("leagueops.cache.misses", "Cache misses", "{miss}"),
			counter("leagueops.cache.evictions", "Volatile entries evicted for space", "{entry}"),
			counter("leagueops.cache.expirations", "Entries removed after their TTL", "{entry}"),
			counter("leagueops.cache.capacity_anomalies", "Writes that left the cache over budget", "{event}"),
			counter("leagueops.cache.oversized", "Payloads larger than the whole budget", "{event}"),
			counter("leagueops.upstream.fetches", "Upstream fetches started", "{call}"),
			counter("leagueops.upstream.fetch_errors", "Upstream fetches that failed", "{error}"),
			counter("leagueops.resolve.coalesced", "Callers that shared an in-flight fetch", "{call}"),
		)
	}
	if governorStats != nil {
		errs = append(errs,
			gauge("leagueops.governor.in_window", "Admissions in the current window", "{call}"),
			gauge("leagueops.governor.waiting", "Callers waiting for admission", "{call}"),
			gauge("leagueops.governor.max_calls", "Admissions allowed per window", "{call}"),
			counter("leagueops.governor.admitted", "Admitted upstream calls", "{call}"),
			counter("leagueops.governor.waits", "Admissions that had to wait", "{call}"),
		)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		if cacheStats != nil {
			s := cacheStats()
			o.ObserveInt64(gauges["leagueops.cache.entries"], int64(s.Entries))
			o.ObserveInt64(gauges["leagueops.cache.permanent_entries"], int64(s.PermanentEntries))
			o.ObserveInt64(gauges["leagueops.cache.size_bytes"], s.SizeBytes)
			o.ObserveInt64(gauges["leagueops.cache.max_size_bytes"], s.MaxSizeBytes)
			o.ObserveInt64(counters["leagueops.cache.hits"], s.Hits)
			o.ObserveInt64(counters["leagueops.cache.misses"], s.Misses)
			o.ObserveInt64(counters["leagueops.cache.evictions"], s.Evictions)
			o.ObserveInt64(counters["leagueops.cache.expirations"], s.Expirations)
			o.ObserveInt64(counters["leagueops.cache.capacity_anomalies"], s.CapacityAnomalies)
			o.ObserveInt64(counters["leagueops.cache.oversized"], s.Oversized)
			o.ObserveInt64(counters["leagueops.upstream.fetches"], s.Fetches)
			o.ObserveInt64(counters["leagueops.upstream.fetch_errors"], s.FetchErrors)
			o.ObserveInt64(counters["leagueops.resolve.coalesced"], s.Coalesced)
		}
		if governorStats != nil {
			s := governorStats()
			o.ObserveInt64(gauges["leagueops.governor.in_window"], int64(s.InWindow))
			o.ObserveInt64(gauges["leagueops.governor.waiting"], int64(s.Waiting))
			o.ObserveInt64(gauges["leagueops.governor.max_calls"], int64(s.MaxCalls))
			o.ObserveInt64(counters["leagueops.governor.admitted"], s.Admitted)
			o.ObserveInt64(counters["leagueops.governor.waits"], s.Waits)
		}
		return nil
	}, observables...)
}
