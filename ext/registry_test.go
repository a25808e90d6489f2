package ext_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/xraph/crontab/ext"
	"github.com/xraph/crontab/job"
)

// ──────────────────────────────────────────────────
// Test extensions
// ──────────────────────────────────────────────────

// allHooksExt implements every lifecycle hook for testing.
type allHooksExt struct {
	calls []string
}

func (e *allHooksExt) Name() string { return "all-hooks" }

func (e *allHooksExt) OnJobScheduled(_ context.Context, _ *job.Job, _ int64) error {
	e.calls = append(e.calls, "OnJobScheduled")
	return nil
}

func (e *allHooksExt) OnJobQueued(_ context.Context, _ string, _ *job.Job) error {
	e.calls = append(e.calls, "OnJobQueued")
	return nil
}

func (e *allHooksExt) OnJobCancelled(_ context.Context, _ string, _ []int64) error {
	e.calls = append(e.calls, "OnJobCancelled")
	return nil
}

func (e *allHooksExt) OnJobSucceeded(_ context.Context, _ string, _ *job.Job, _ time.Duration) error {
	e.calls = append(e.calls, "OnJobSucceeded")
	return nil
}

func (e *allHooksExt) OnJobRetrying(_ context.Context, _ string, _ *job.Job, _ time.Time) error {
	e.calls = append(e.calls, "OnJobRetrying")
	return nil
}

func (e *allHooksExt) OnJobFailed(_ context.Context, _ string, _ *job.Job, _ error) error {
	e.calls = append(e.calls, "OnJobFailed")
	return nil
}

func (e *allHooksExt) OnJobDropped(_ context.Context, _ string, _ *job.Job) error {
	e.calls = append(e.calls, "OnJobDropped")
	return nil
}

func (e *allHooksExt) OnShutdown(_ context.Context) error {
	e.calls = append(e.calls, "OnShutdown")
	return nil
}

// queueOnlyExt only implements the queued hook.
type queueOnlyExt struct {
	calls []string
}

func (e *queueOnlyExt) Name() string { return "queue-only" }

func (e *queueOnlyExt) OnJobQueued(_ context.Context, queue string, _ *job.Job) error {
	e.calls = append(e.calls, "OnJobQueued:"+queue)
	return nil
}

// failingExt returns errors from hooks.
type failingExt struct{}

func (e *failingExt) Name() string { return "failing" }

func (e *failingExt) OnJobQueued(_ context.Context, _ string, _ *job.Job) error {
	return errors.New("boom")
}

// ──────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────

func TestRegistry_Register(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	r.Register(&allHooksExt{})

	if got := len(r.Extensions()); got != 1 {
		t.Fatalf("expected 1 extension, got %d", got)
	}
	if got := r.Extensions()[0].Name(); got != "all-hooks" {
		t.Fatalf("expected name 'all-hooks', got %q", got)
	}
}

func TestRegistry_EmitFiresOnlyImplementors(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	all := &allHooksExt{}
	qo := &queueOnlyExt{}
	r.Register(all)
	r.Register(qo)

	ctx := context.Background()
	j := &job.Job{Name: "Mailer/send"}

	r.EmitJobQueued(ctx, "mail", j)
	if len(all.calls) != 1 || all.calls[0] != "OnJobQueued" {
		t.Fatalf("all: expected [OnJobQueued], got %v", all.calls)
	}
	if len(qo.calls) != 1 || qo.calls[0] != "OnJobQueued:mail" {
		t.Fatalf("qo: expected [OnJobQueued:mail], got %v", qo.calls)
	}

	r.EmitJobDropped(ctx, "mail", j)
	if len(all.calls) != 2 || all.calls[1] != "OnJobDropped" {
		t.Fatalf("all: expected OnJobDropped as 2nd, got %v", all.calls)
	}
	if len(qo.calls) != 1 {
		t.Fatalf("qo: should still have 1 call, got %v", qo.calls)
	}
}

func TestRegistry_AllHooksFire(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	all := &allHooksExt{}
	r.Register(all)

	ctx := context.Background()
	j := &job.Job{Name: "Mailer/send"}

	r.EmitJobScheduled(ctx, j, 100)
	r.EmitJobQueued(ctx, "default", j)
	r.EmitJobCancelled(ctx, j.Name, []int64{100})
	r.EmitJobSucceeded(ctx, "default", j, time.Second)
	r.EmitJobRetrying(ctx, "default", j, time.Now())
	r.EmitJobFailed(ctx, "default", j, nil)
	r.EmitJobDropped(ctx, "default", j)
	r.EmitShutdown(ctx)

	expected := []string{
		"OnJobScheduled", "OnJobQueued", "OnJobCancelled", "OnJobSucceeded",
		"OnJobRetrying", "OnJobFailed", "OnJobDropped", "OnShutdown",
	}
	if strings.Join(all.calls, ",") != strings.Join(expected, ",") {
		t.Fatalf("calls = %v, want %v", all.calls, expected)
	}
}

func TestRegistry_HookErrorsLoggedNotPropagated(t *testing.T) {
	var buf bytes.Buffer
	r := ext.NewRegistry(slog.New(slog.NewTextHandler(&buf, nil)))
	all := &allHooksExt{}

	r.Register(&failingExt{})
	r.Register(all)

	r.EmitJobQueued(context.Background(), "default", &job.Job{})

	if len(all.calls) != 1 || all.calls[0] != "OnJobQueued" {
		t.Fatalf("all: expected [OnJobQueued] despite failing ext, got %v", all.calls)
	}
	if !strings.Contains(buf.String(), "extension=failing") {
		t.Fatalf("expected hook error to be logged, got %q", buf.String())
	}
}

func TestRegistry_EmptyRegistryNoOp(_ *testing.T) {
	r := ext.NewRegistry(slog.Default())
	ctx := context.Background()

	r.EmitJobScheduled(ctx, &job.Job{}, 1)
	r.EmitJobQueued(ctx, "q", &job.Job{})
	r.EmitJobCancelled(ctx, "n", nil)
	r.EmitJobSucceeded(ctx, "q", &job.Job{}, time.Second)
	r.EmitJobRetrying(ctx, "q", &job.Job{}, time.Now())
	r.EmitJobFailed(ctx, "q", &job.Job{}, errors.New("x"))
	r.EmitJobDropped(ctx, "q", &job.Job{})
	r.EmitShutdown(ctx)
}
