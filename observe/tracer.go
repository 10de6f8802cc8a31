package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Result sources recorded on spans, metrics and logs.
const (
	SourceCache    = "cache"
	SourceUpstream = "upstream"
)

// QueryMeta describes one resolved query for telemetry purposes.
type QueryMeta struct {
	Category string // normalized query category (required)
	Key      string // cache key (optional)
	Regime   string // "volatile" or "permanent" (optional)
}

// SpanName returns the deterministic span name for this query.
// Format: leagueops.resolve.<category>
func (m QueryMeta) SpanName() string {
	return "leagueops.resolve." + m.Category
}

// Tracer wraps OpenTelemetry tracing with query-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a resolve.
	StartSpan(ctx context.Context, meta QueryMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording the result source and any error.
	EndSpan(span trace.Span, source string, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta QueryMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("query.category", meta.Category),
		attribute.Bool("query.error", false),
	}
	if meta.Key != "" {
		attrs = append(attrs, attribute.String("query.key", meta.Key))
	}
	if meta.Regime != "" {
		attrs = append(attrs, attribute.String("query.regime", meta.Regime))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, source string, err error) {
	if source != "" {
		span.SetAttributes(attribute.String("query.source", source))
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("query.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta QueryMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, source string, err error) {
	span.End()
}
