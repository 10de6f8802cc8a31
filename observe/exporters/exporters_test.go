package exporters

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// TestExporter_InvalidName verifies unknown exporter name returns error.
func TestExporter_InvalidName(t *testing.T) {
	_, err := NewTracingExporter(context.Background(), "invalid", Options{})
	if err == nil {
		t.Fatal("expected error for invalid exporter name")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "unknown exporter") {
		t.Errorf("expected error to contain 'unknown exporter', got: %v", err)
	}
}

// TestExporter_StdoutTracing verifies stdout tracing exporter.
func TestExporter_StdoutTracing(t *testing.T) {
	exp, err := NewTracingExporter(context.Background(), "stdout", Options{Writer: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("failed to create stdout tracing exporter: %v", err)
	}
	if exp == nil {
		t.Fatal("expected non-nil exporter")
	}
}

// TestExporter_StdoutMetrics verifies stdout metrics reader.
func TestExporter_StdoutMetrics(t *testing.T) {
	reader, err := NewMetricsReader(context.Background(), "stdout", Options{Writer: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("failed to create stdout metrics reader: %v", err)
	}
	if reader == nil {
		t.Fatal("expected non-nil reader")
	}
}

// TestExporter_OtlpMissingEndpoint verifies OTLP without endpoint env fails.
func TestExporter_OtlpMissingEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	_, err := NewTracingExporter(context.Background(), "otlp", Options{})
	if !errors.Is(err, ErrEndpointNotConfigured) {
		t.Errorf("tracing error = %v, want ErrEndpointNotConfigured", err)
	}
	_, err = NewMetricsReader(context.Background(), "otlp", Options{})
	if !errors.Is(err, ErrEndpointNotConfigured) {
		t.Errorf("metrics error = %v, want ErrEndpointNotConfigured", err)
	}
}

// TestExporter_OtlpWithEndpoint verifies OTLP with endpoint env succeeds.
func TestExporter_OtlpWithEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4317")

	exp, err := NewTracingExporter(context.Background(), "otlp", Options{})
	if err != nil {
		t.Fatalf("failed to create OTLP exporter with endpoint: %v", err)
	}
	if exp == nil {
		t.Fatal("expected non-nil exporter")
	}
	_ = exp.Shutdown(context.Background())
}

// TestExporter_PrometheusUsesRegisterer verifies the collector lands on the
// supplied registry.
func TestExporter_PrometheusUsesRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	reader, err := NewMetricsReader(context.Background(), "prometheus", Options{Registerer: reg})
	if err != nil {
		t.Fatalf("failed to create Prometheus reader: %v", err)
	}
	if reader == nil {
		t.Fatal("expected non-nil reader")
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	counter, err := mp.Meter("test").Int64Counter("leagueops.test.total")
	if err != nil {
		t.Fatal(err)
	}
	counter.Add(context.Background(), 1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "leagueops_test_total") {
			found = true
		}
	}
	if !found {
		t.Error("counter not exported through the supplied registry")
	}
}

// TestExporter_NoneReturnsNoop verifies 'none' returns no-op exporters.
func TestExporter_NoneReturnsNoop(t *testing.T) {
	if _, err := NewTracingExporter(context.Background(), "none", Options{}); err != nil {
		t.Fatalf("failed to create none exporter: %v", err)
	}
	if _, err := NewMetricsReader(context.Background(), "", Options{}); err != nil {
		t.Fatalf("failed to create none metrics reader: %v", err)
	}
}

// TestExporter_MetricsInvalidName verifies unknown metrics exporter returns error.
func TestExporter_MetricsInvalidName(t *testing.T) {
	_, err := NewMetricsReader(context.Background(), "badvalue", Options{})
	if err == nil {
		t.Fatal("expected error for invalid metrics exporter name")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "unknown") {
		t.Errorf("expected error to contain 'unknown', got: %v", err)
	}
}
