package observe

import "errors"

// Config.Validate errors.
var (
	ErrMissingServiceName     = errors.New("observe: service name is required")
	ErrInvalidSamplePct       = errors.New("observe: sample percentage must be between 0.0 and 1.0")
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: invalid log level")
)

var (
	// ErrNilObserver is returned by MiddlewareFromObserver(nil).
	ErrNilObserver = errors.New("observe: observer is nil")

	// ErrNilResolver is returned by Wrap(nil).
	ErrNilResolver = errors.New("observe: resolver is nil")
)

// Bounds of TracingConfig.SamplePct.
const (
	MinSamplePct = 0.0
	MaxSamplePct = 1.0
)

// Accepted exporter and level names. The empty string selects the default.
var (
	ValidTracingExporters = []string{"otlp", "stdout", "none", ""}
	ValidMetricsExporters = []string{"otlp", "prometheus", "stdout", "none", ""}
	ValidLogLevels        = []string{"debug", "info", "warn", "error", ""}
)

// RedactedFields are log field keys whose values are replaced with
// "[REDACTED]", compared case-insensitively. They cover the OAuth client
// secret, access and refresh tokens, and operator API keys.
var RedactedFields = []string{
	"password",
	"secret",
	"client_secret",
	"token",
	"access_token",
	"refresh_token",
	"api_key",
	"apiKey",
	"authorization",
	"credential",
}
