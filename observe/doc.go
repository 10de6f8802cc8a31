// Package observe provides logging, tracing and metrics for query resolution.
//
// Loggers are zap JSON loggers that redact credential fields. Tracing and
// metrics use OpenTelemetry with a pluggable exporter (otlp, prometheus,
// stdout or none). Middleware wraps any cache.Resolver so each resolve
// produces one span, one set of metric points and one log line, labelled
// with whether the payload came from the cache or the upstream API.
package observe
