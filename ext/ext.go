// Package ext defines the extension system for crontab.
// Extensions are notified of lifecycle events (job scheduled, queued,
// succeeded, retried, failed, etc.) and can react to them.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/xraph/crontab/job"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Scheduling hooks
// ──────────────────────────────────────────────────

// JobScheduled is called after a job is placed in the delay bucket for due.
type JobScheduled interface {
	OnJobScheduled(ctx context.Context, j *job.Job, due int64) error
}

// JobQueued is called after a job is pushed onto a ready queue.
type JobQueued interface {
	OnJobQueued(ctx context.Context, queue string, j *job.Job) error
}

// JobCancelled is called after the occurrences of a job name at the given
// due times are cancelled.
type JobCancelled interface {
	OnJobCancelled(ctx context.Context, name string, dues []int64) error
}

// ──────────────────────────────────────────────────
// Dispatch hooks
// ──────────────────────────────────────────────────

// JobSucceeded is called after a handler reports the job performed.
type JobSucceeded interface {
	OnJobSucceeded(ctx context.Context, queue string, j *job.Job, elapsed time.Duration) error
}

// JobRetrying is called when a job is resubmitted from its retry stack.
type JobRetrying interface {
	OnJobRetrying(ctx context.Context, queue string, j *job.Job, nextRunAt time.Time) error
}

// JobFailed is called when a job fails with an empty retry stack. err may
// be nil when the handler gave no reason.
type JobFailed interface {
	OnJobFailed(ctx context.Context, queue string, j *job.Job, err error) error
}

// JobDropped is called when no local handler resolves a job's name.
type JobDropped interface {
	OnJobDropped(ctx context.Context, queue string, j *job.Job) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
