package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/crontab/ext"
	"github.com/xraph/crontab/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension    = (*MetricsExtension)(nil)
	_ ext.JobScheduled = (*MetricsExtension)(nil)
	_ ext.JobQueued    = (*MetricsExtension)(nil)
	_ ext.JobCancelled = (*MetricsExtension)(nil)
	_ ext.JobSucceeded = (*MetricsExtension)(nil)
	_ ext.JobRetrying  = (*MetricsExtension)(nil)
	_ ext.JobFailed    = (*MetricsExtension)(nil)
	_ ext.JobDropped   = (*MetricsExtension)(nil)
)

const meterName = "github.com/xraph/crontab/observability"

// MetricsExtension records system-wide lifecycle counters. Register it as
// an engine extension to track scheduling rates, outcomes and drops per
// queue.
type MetricsExtension struct {
	JobScheduled metric.Int64Counter
	JobQueued    metric.Int64Counter
	JobCancelled metric.Int64Counter
	JobSucceeded metric.Int64Counter
	JobRetried   metric.Int64Counter
	JobFailed    metric.Int64Counter
	JobDropped   metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension on the global
// MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the provided
// meter.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	return &MetricsExtension{
		JobScheduled: counter(meter, "crontab.job.scheduled", "Jobs placed in a delay bucket"),
		JobQueued:    counter(meter, "crontab.job.queued", "Jobs pushed onto a ready queue"),
		JobCancelled: counter(meter, "crontab.job.cancelled", "Scheduled occurrences cancelled"),
		JobSucceeded: counter(meter, "crontab.job.succeeded", "Jobs performed by their handler"),
		JobRetried:   counter(meter, "crontab.job.retried", "Jobs resubmitted from their retry stack"),
		JobFailed:    counter(meter, "crontab.job.failed", "Jobs failed with no retries left"),
		JobDropped:   counter(meter, "crontab.job.dropped", "Jobs with no matching local handler"),
	}
}

func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	// On error the API returns a noop instrument.
	c, _ := meter.Int64Counter(name, metric.WithDescription(desc)) //nolint:errcheck // noop fallback
	return c
}

func queueAttr(queue string) metric.AddOption {
	return metric.WithAttributes(attribute.String("queue", queue))
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ── Scheduling hooks ────────────────────────────────

// OnJobScheduled implements ext.JobScheduled.
func (m *MetricsExtension) OnJobScheduled(ctx context.Context, j *job.Job, _ int64) error {
	m.JobScheduled.Add(ctx, 1, queueAttr(j.Queue))
	return nil
}

// OnJobQueued implements ext.JobQueued.
func (m *MetricsExtension) OnJobQueued(ctx context.Context, queue string, _ *job.Job) error {
	m.JobQueued.Add(ctx, 1, queueAttr(queue))
	return nil
}

// OnJobCancelled implements ext.JobCancelled.
func (m *MetricsExtension) OnJobCancelled(ctx context.Context, _ string, dues []int64) error {
	m.JobCancelled.Add(ctx, int64(len(dues)))
	return nil
}

// ── Dispatch hooks ──────────────────────────────────

// OnJobSucceeded implements ext.JobSucceeded.
func (m *MetricsExtension) OnJobSucceeded(ctx context.Context, queue string, _ *job.Job, _ time.Duration) error {
	m.JobSucceeded.Add(ctx, 1, queueAttr(queue))
	return nil
}

// OnJobRetrying implements ext.JobRetrying.
func (m *MetricsExtension) OnJobRetrying(ctx context.Context, queue string, _ *job.Job, _ time.Time) error {
	m.JobRetried.Add(ctx, 1, queueAttr(queue))
	return nil
}

// OnJobFailed implements ext.JobFailed.
func (m *MetricsExtension) OnJobFailed(ctx context.Context, queue string, _ *job.Job, _ error) error {
	m.JobFailed.Add(ctx, 1, queueAttr(queue))
	return nil
}

// OnJobDropped implements ext.JobDropped.
func (m *MetricsExtension) OnJobDropped(ctx context.Context, queue string, _ *job.Job) error {
	m.JobDropped.Add(ctx, 1, queueAttr(queue))
	return nil
}
