package observe

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/leagueops/cache"
)

type telemetry struct {
	mw     *Middleware
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
	logs   *bytes.Buffer
}

func newTelemetry(t *testing.T, opts ...MiddlewareOption) telemetry {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}

	var logs bytes.Buffer
	mw := NewMiddleware(NewTracer(tp.Tracer("test")), metrics, NewLoggerWithWriter("debug", &logs), opts...)
	return telemetry{mw: mw, spans: spans, reader: reader, logs: &logs}
}

func newCoordinator(t *testing.T) *cache.Coordinator {
	t.Helper()
	store, err := cache.NewStore(cache.DefaultStoreConfig())
	if err != nil {
		t.Fatal(err)
	}
	c, err := cache.NewCoordinator(store, nil, cache.DefaultPolicy())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// TestMiddleware_SourceLabels verifies a miss is labelled upstream and the
// following hit is labelled cache.
func TestMiddleware_SourceLabels(t *testing.T) {
	tel := newTelemetry(t, WithPolicy(cache.DefaultPolicy()))
	resolver, err := tel.mw.Wrap(newCoordinator(t))
	if err != nil {
		t.Fatal(err)
	}

	q := cache.Query{Category: "Standings", Dimensions: cache.Dimensions{"league": "nfl.l.1"}}
	fetch := func(ctx context.Context) ([]byte, error) { return []byte("table"), nil }

	for i := 0; i < 2; i++ {
		got, err := resolver.Resolve(context.Background(), q, fetch)
		if err != nil || string(got) != "table" {
			t.Fatalf("Resolve() = (%q, %v)", got, err)
		}
	}

	spans := tel.spans.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name() != "leagueops.resolve.standings" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	wantSources := []string{SourceUpstream, SourceCache}
	for i, s := range spans {
		attrs := attrMap(s)
		if got := attrs["query.source"].AsString(); got != wantSources[i] {
			t.Errorf("span %d source = %q, want %q", i, got, wantSources[i])
		}
		if got := attrs["query.regime"].AsString(); got != "volatile" {
			t.Errorf("span %d regime = %q, want volatile", i, got)
		}
		if got := attrs["query.key"].AsString(); got != "standings/league:nfl.l.1" {
			t.Errorf("span %d key = %q", i, got)
		}
	}

	if got := sumValue(t, collect(t, tel.reader), "leagueops.resolve.total"); got != 2 {
		t.Errorf("resolve.total = %d, want 2", got)
	}
	if !strings.Contains(tel.logs.String(), `"source":"upstream"`) || !strings.Contains(tel.logs.String(), `"source":"cache"`) {
		t.Errorf("unexpected logs: %s", tel.logs.String())
	}
}

// TestMiddleware_ErrorPath verifies a failed fetch records error telemetry
// and the error reaches the caller unchanged.
func TestMiddleware_ErrorPath(t *testing.T) {
	tel := newTelemetry(t)
	resolver, err := tel.mw.Wrap(newCoordinator(t))
	if err != nil {
		t.Fatal(err)
	}

	upstreamErr := errors.New("upstream: 503")
	_, err = resolver.Resolve(context.Background(), cache.Query{Category: "roster"}, func(ctx context.Context) ([]byte, error) {
		return nil, upstreamErr
	})
	if err != upstreamErr {
		t.Fatalf("Resolve() error = %v, want the fetch error unchanged", err)
	}

	spans := tel.spans.Ended()
	if len(spans) != 1 || !attrMap(spans[0])["query.error"].AsBool() {
		t.Fatal("expected one span with query.error=true")
	}
	if got := sumValue(t, collect(t, tel.reader), "leagueops.resolve.errors"); got != 1 {
		t.Errorf("resolve.errors = %d, want 1", got)
	}
	if !strings.Contains(tel.logs.String(), `"level":"error"`) {
		t.Errorf("expected an error log line, got: %s", tel.logs.String())
	}
}

// TestMiddleware_PassesContext verifies the span context reaches the fetch.
func TestMiddleware_PassesContext(t *testing.T) {
	tel := newTelemetry(t)
	resolver, _ := tel.mw.Wrap(newCoordinator(t))

	var sawSpan bool
	_, err := resolver.Resolve(context.Background(), cache.Query{Category: "players"}, func(ctx context.Context) ([]byte, error) {
		sawSpan = spanFromContext(ctx)
		return []byte("p"), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !sawSpan {
		t.Error("fetch did not receive the resolve span context")
	}
}

func TestMiddleware_NilResolver(t *testing.T) {
	mw := NewMiddleware(nil, nil, nil)
	if _, err := mw.Wrap(nil); !errors.Is(err, ErrNilResolver) {
		t.Errorf("Wrap(nil) error = %v, want ErrNilResolver", err)
	}
}

func TestMiddlewareFromObserver(t *testing.T) {
	if _, err := MiddlewareFromObserver(nil); !errors.Is(err, ErrNilObserver) {
		t.Errorf("error = %v, want ErrNilObserver", err)
	}

	obs, err := NewObserver(context.Background(), Config{ServiceName: "leagueops"})
	if err != nil {
		t.Fatal(err)
	}
	mw, err := MiddlewareFromObserver(obs)
	if err != nil {
		t.Fatalf("MiddlewareFromObserver() error = %v", err)
	}
	resolver, err := mw.Wrap(newCoordinator(t))
	if err != nil {
		t.Fatal(err)
	}
	got, err := resolver.Resolve(context.Background(), cache.Query{Category: "players"}, func(ctx context.Context) ([]byte, error) {
		return []byte("ok"), nil
	})
	if err != nil || string(got) != "ok" {
		t.Errorf("Resolve() = (%q, %v)", got, err)
	}
}

func spanFromContext(ctx context.Context) bool {
	return trace.SpanContextFromContext(ctx).IsValid()
}
