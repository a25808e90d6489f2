// Package observability provides an OpenTelemetry metrics extension for
// crontab. MetricsExtension implements lifecycle hooks to record
// system-wide counters for scheduled, queued, succeeded, retried, failed,
// dropped and cancelled jobs.
//
// For per-call tracing and metrics of local handlers, see the middleware
// package: middleware.Tracing() and middleware.Metrics().
package observability
