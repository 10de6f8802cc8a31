package observe

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jonwraymond/leagueops/cache"
)

// ResolverFunc adapts a function to cache.Resolver.
type ResolverFunc func(ctx context.Context, q cache.Query, fetch cache.FetchFunc) ([]byte, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, q cache.Query, fetch cache.FetchFunc) ([]byte, error) {
	return f(ctx, q, fetch)
}

// MiddlewareOption configures a Middleware.
type MiddlewareOption func(*Middleware)

// WithPolicy records the regime of each query's category.
func WithPolicy(p cache.Policy) MiddlewareOption {
	return func(m *Middleware) {
		m.policy = &p
	}
}

// WithKeyer sets the keyer used to label telemetry with cache keys.
func WithKeyer(k cache.Keyer) MiddlewareOption {
	return func(m *Middleware) {
		m.keyer = k
	}
}

// Middleware wraps a cache.Resolver with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a resolver safe for concurrent use.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from the wrapped resolver are recorded and propagated unchanged.
//   - Ownership: Payloads are passed through without modification.
//
// A resolve is labelled "upstream" when the caller's own fetch ran and
// "cache" otherwise, which includes callers served by another caller's
// in-flight fetch.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  *zap.Logger
	keyer   cache.Keyer
	policy  *cache.Policy
}

// NewMiddleware creates a new Middleware. Nil components are replaced with
// no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger *zap.Logger, opts ...MiddlewareOption) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = &noopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
		keyer:   cache.NewDefaultKeyer(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Wrap wraps next with tracing, metrics and logging.
func (m *Middleware) Wrap(next cache.Resolver) (cache.Resolver, error) {
	if next == nil {
		return nil, ErrNilResolver
	}
	return ResolverFunc(func(ctx context.Context, q cache.Query, fetch cache.FetchFunc) ([]byte, error) {
		meta := m.meta(q)
		ctx, span := m.tracer.StartSpan(ctx, meta)

		var fetched atomic.Bool
		counted := fetch
		if fetch != nil {
			counted = func(ctx context.Context) ([]byte, error) {
				fetched.Store(true)
				return fetch(ctx)
			}
		}

		start := time.Now()
		result, err := next.Resolve(ctx, q, counted)
		duration := time.Since(start)

		source := SourceCache
		if fetched.Load() {
			source = SourceUpstream
		}

		m.tracer.EndSpan(span, source, err)
		m.metrics.RecordResolve(ctx, meta, source, duration, err)

		logger := WithQuery(m.logger, meta)
		fields := []zap.Field{
			zap.String("source", source),
			zap.Float64("duration_ms", float64(duration.Microseconds())/1000),
		}
		switch {
		case err != nil:
			logger.Error("query resolve failed", append(fields, zap.Error(err))...)
		case source == SourceUpstream:
			logger.Info("query resolved", append(fields, zap.Int("bytes", len(result)))...)
		default:
			logger.Debug("query resolved", fields...)
		}

		return result, err
	}), nil
}

func (m *Middleware) meta(q cache.Query) QueryMeta {
	meta := QueryMeta{Category: cache.NormalizeCategory(q.Category)}
	if key, err := m.keyer.Key(q); err == nil {
		meta.Key = key
	}
	if m.policy != nil {
		meta.Regime = m.policy.RegimeOf(meta.Category).String()
	}
	return meta
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer, opts ...MiddlewareOption) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger(), opts...), nil
}
