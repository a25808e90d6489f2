package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/xraph/crontab"
	"github.com/xraph/crontab/job"
	mw "github.com/xraph/crontab/middleware"
)

type meterHarness struct {
	reader *sdkmetric.ManualReader
	mw     mw.Middleware
}

func newMeterHarness() *meterHarness {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return &meterHarness{reader: reader, mw: mw.MetricsWithMeter(mp.Meter("crontab-test"))}
}

func (h *meterHarness) run(j *job.Job, result error) error {
	return h.mw(context.Background(), j, func(context.Context) error { return result })
}

// executions returns the executions counter keyed by "queue/job_name/status".
func (h *meterHarness) executions(t *testing.T) map[string]int64 {
	t.Helper()
	out := make(map[string]int64)
	for _, m := range h.collect(t) {
		if m.Name != "crontab.job.executions" {
			continue
		}
		sum, ok := m.Data.(metricdata.Sum[int64])
		if !ok {
			t.Fatalf("executions data = %T", m.Data)
		}
		for _, dp := range sum.DataPoints {
			out[pointKey(dp.Attributes)] += dp.Value
		}
	}
	return out
}

// durations returns the histogram sample count keyed like executions.
func (h *meterHarness) durations(t *testing.T) map[string]uint64 {
	t.Helper()
	out := make(map[string]uint64)
	for _, m := range h.collect(t) {
		if m.Name != "crontab.job.duration" {
			continue
		}
		hist, ok := m.Data.(metricdata.Histogram[float64])
		if !ok {
			t.Fatalf("duration data = %T", m.Data)
		}
		for _, dp := range hist.DataPoints {
			out[pointKey(dp.Attributes)] += dp.Count
		}
	}
	return out
}

func (h *meterHarness) collect(t *testing.T) []metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := h.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var all []metricdata.Metrics
	for _, sm := range rm.ScopeMetrics {
		all = append(all, sm.Metrics...)
	}
	return all
}

func pointKey(set attribute.Set) string {
	get := func(k string) string {
		v, _ := set.Value(attribute.Key(k))
		return v.AsString()
	}
	return get("queue") + "/" + get("job_name") + "/" + get("status")
}

func TestMetrics_StatusFollowsHandlerResult(t *testing.T) {
	tests := []struct {
		name   string
		result error
		status string
	}{
		{"performed", nil, "ok"},
		{"declined", crontab.ErrNotPerformed, "not_performed"},
		{"declined and wrapped", fmt.Errorf("attempt 2: %w", crontab.ErrNotPerformed), "not_performed"},
		{"failed", errors.New("smtp down"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newMeterHarness()
			j := &job.Job{Name: "Mailer/send", Queue: "mail"}

			if err := h.run(j, tt.result); !errors.Is(err, tt.result) {
				t.Fatalf("middleware returned %v, want %v", err, tt.result)
			}

			key := "mail/Mailer/send/" + tt.status
			if got := h.executions(t); len(got) != 1 || got[key] != 1 {
				t.Fatalf("executions = %v, want %s=1", got, key)
			}
			if got := h.durations(t); len(got) != 1 || got[key] != 1 {
				t.Fatalf("durations = %v, want one sample under %s", got, key)
			}
		})
	}
}

func TestMetrics_SeriesPerQueueAndName(t *testing.T) {
	h := newMeterHarness()

	_ = h.run(&job.Job{Name: "Mailer/send", Queue: "mail"}, nil)
	_ = h.run(&job.Job{Name: "Mailer/send", Queue: "mail"}, nil)
	_ = h.run(&job.Job{Name: "Mailer/send", Queue: "bulk"}, crontab.ErrNotPerformed)
	_ = h.run(&job.Job{Name: "Report", Queue: "mail"}, nil)

	want := map[string]int64{
		"mail/Mailer/send/ok":            2,
		"bulk/Mailer/send/not_performed": 1,
		"mail/Report/ok":                 1,
	}
	got := h.executions(t)
	if len(got) != len(want) {
		t.Fatalf("executions = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("executions[%s] = %d, want %d (all %v)", k, got[k], v, got)
		}
	}
}

func TestMetrics_GlobalProviderPassesThrough(t *testing.T) {
	calls := 0
	err := mw.Metrics()(context.Background(), &job.Job{Name: "Report"}, func(context.Context) error {
		calls++
		return crontab.ErrNotPerformed
	})
	if calls != 1 || !errors.Is(err, crontab.ErrNotPerformed) {
		t.Fatalf("calls = %d, err = %v", calls, err)
	}
}
