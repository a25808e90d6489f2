package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/crontab"
	"github.com/xraph/crontab/job"
)

// meterName is the instrumentation scope name for crontab metrics.
const meterName = "github.com/xraph/crontab"

// Metrics returns middleware that records per-job handler metrics using
// the global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - crontab.job.duration (Float64Histogram): handler time in seconds
//   - crontab.job.executions (Int64Counter): total handler calls
//
// Both carry job_name, queue and status: "ok", "not_performed" when the
// handler declined the job without an error, or "error".
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter returns metrics middleware using the provided meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// On error the API returns noop instruments.
	duration, _ := meter.Float64Histogram( //nolint:errcheck // noop fallback
		"crontab.job.duration",
		metric.WithDescription("Duration of local handler calls in seconds"),
		metric.WithUnit("s"),
	)
	executions, _ := meter.Int64Counter( //nolint:errcheck // noop fallback
		"crontab.job.executions",
		metric.WithDescription("Total number of local handler calls"),
		metric.WithUnit("{execution}"),
	)

	return func(ctx context.Context, j *job.Job, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		attrs := metric.WithAttributes(
			attribute.String("job_name", j.Name),
			attribute.String("queue", j.Queue),
			attribute.String("status", outcome(err)),
		)
		duration.Record(ctx, elapsed, attrs)
		executions.Add(ctx, 1, attrs)
		return err
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, crontab.ErrNotPerformed):
		return "not_performed"
	default:
		return "error"
	}
}
