package observability_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/xraph/crontab/ext"
	"github.com/xraph/crontab/job"
	"github.com/xraph/crontab/observability"
)

func newTestExtension() (*observability.MetricsExtension, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return observability.NewMetricsExtensionWithMeter(mp.Meter("test")), reader
}

// counterTotals sums every data point of every Int64 sum by metric name.
func counterTotals(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	totals := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}
	return totals
}

func newTestJob() *job.Job {
	return &job.Job{Name: "Mailer/send", Queue: "default"}
}

func TestMetricsExtension_Name(t *testing.T) {
	e, _ := newTestExtension()
	if e.Name() != "observability-metrics" {
		t.Errorf("expected name %q, got %q", "observability-metrics", e.Name())
	}
}

func TestMetricsExtension_Hooks(t *testing.T) {
	e, reader := newTestExtension()
	ctx := context.Background()
	j := newTestJob()

	hooks := []struct {
		name string
		fn   func() error
	}{
		{"scheduled", func() error { return e.OnJobScheduled(ctx, j, 100) }},
		{"queued", func() error { return e.OnJobQueued(ctx, "default", j) }},
		{"cancelled", func() error { return e.OnJobCancelled(ctx, j.Name, []int64{100, 200}) }},
		{"succeeded", func() error { return e.OnJobSucceeded(ctx, "default", j, time.Millisecond) }},
		{"retrying", func() error { return e.OnJobRetrying(ctx, "default", j, time.Now()) }},
		{"failed", func() error { return e.OnJobFailed(ctx, "default", j, errors.New("boom")) }},
		{"dropped", func() error { return e.OnJobDropped(ctx, "default", j) }},
	}
	for _, h := range hooks {
		if err := h.fn(); err != nil {
			t.Fatalf("%s: unexpected error: %v", h.name, err)
		}
	}

	totals := counterTotals(t, reader)
	want := map[string]int64{
		"crontab.job.scheduled": 1,
		"crontab.job.queued":    1,
		"crontab.job.cancelled": 2,
		"crontab.job.succeeded": 1,
		"crontab.job.retried":   1,
		"crontab.job.failed":    1,
		"crontab.job.dropped":   1,
	}
	for name, v := range want {
		if totals[name] != v {
			t.Errorf("%s = %d, want %d", name, totals[name], v)
		}
	}
}

func TestMetricsExtension_ViaRegistry(t *testing.T) {
	e, reader := newTestExtension()
	r := ext.NewRegistry(slog.Default())
	r.Register(e)

	ctx := context.Background()
	for range 3 {
		r.EmitJobQueued(ctx, "mail", newTestJob())
	}
	r.EmitJobFailed(ctx, "mail", newTestJob(), nil)

	totals := counterTotals(t, reader)
	if totals["crontab.job.queued"] != 3 {
		t.Errorf("queued = %d, want 3", totals["crontab.job.queued"])
	}
	if totals["crontab.job.failed"] != 1 {
		t.Errorf("failed = %d, want 1", totals["crontab.job.failed"])
	}
}

func TestMetricsExtension_DefaultNoopSafe(t *testing.T) {
	e := observability.NewMetricsExtension()
	if err := e.OnJobQueued(context.Background(), "default", newTestJob()); err != nil {
		t.Fatal(err)
	}
}
