package middleware

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/crontab"
	"github.com/xraph/crontab/job"
)

// tracerName is the instrumentation scope name for crontab tracing.
const tracerName = "github.com/xraph/crontab"

// Tracing returns middleware that wraps each handler call in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a pass-through.
//
// Span attributes: crontab.job.name, crontab.queue, crontab.retries_left.
// On error, the span status is set to codes.Error with the error message.
// A handler that declined the job without an error gets the same status
// but no exception event, and crontab.outcome records which case it was.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using the provided tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		ctx, span := tracer.Start(ctx, "crontab.job.perform",
			trace.WithAttributes(
				attribute.String("crontab.job.name", j.Name),
				attribute.String("crontab.queue", j.Queue),
				attribute.Int("crontab.retries_left", len(j.RetryStack)),
			),
			trace.WithSpanKind(trace.SpanKindConsumer),
		)
		defer span.End()

		err := next(ctx)
		span.SetAttributes(attribute.String("crontab.outcome", outcome(err)))
		switch {
		case err == nil:
			span.SetStatus(codes.Ok, "")
		case errors.Is(err, crontab.ErrNotPerformed):
			span.SetStatus(codes.Error, "not performed")
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}
