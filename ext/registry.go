package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/crontab/job"
)

// entry pairs a hook implementation with the extension name captured at
// registration time.
type entry[H any] struct {
	name string
	hook H
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	jobScheduled []entry[JobScheduled]
	jobQueued    []entry[JobQueued]
	jobCancelled []entry[JobCancelled]
	jobSucceeded []entry[JobSucceeded]
	jobRetrying  []entry[JobRetrying]
	jobFailed    []entry[JobFailed]
	jobDropped   []entry[JobDropped]
	shutdown     []entry[Shutdown]
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(JobScheduled); ok {
		r.jobScheduled = append(r.jobScheduled, entry[JobScheduled]{name, h})
	}
	if h, ok := e.(JobQueued); ok {
		r.jobQueued = append(r.jobQueued, entry[JobQueued]{name, h})
	}
	if h, ok := e.(JobCancelled); ok {
		r.jobCancelled = append(r.jobCancelled, entry[JobCancelled]{name, h})
	}
	if h, ok := e.(JobSucceeded); ok {
		r.jobSucceeded = append(r.jobSucceeded, entry[JobSucceeded]{name, h})
	}
	if h, ok := e.(JobRetrying); ok {
		r.jobRetrying = append(r.jobRetrying, entry[JobRetrying]{name, h})
	}
	if h, ok := e.(JobFailed); ok {
		r.jobFailed = append(r.jobFailed, entry[JobFailed]{name, h})
	}
	if h, ok := e.(JobDropped); ok {
		r.jobDropped = append(r.jobDropped, entry[JobDropped]{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, entry[Shutdown]{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Scheduling event emitters
// ──────────────────────────────────────────────────

// EmitJobScheduled notifies all extensions that implement JobScheduled.
func (r *Registry) EmitJobScheduled(ctx context.Context, j *job.Job, due int64) {
	for _, e := range r.jobScheduled {
		if err := e.hook.OnJobScheduled(ctx, j, due); err != nil {
			r.logHookError("OnJobScheduled", e.name, err)
		}
	}
}

// EmitJobQueued notifies all extensions that implement JobQueued.
func (r *Registry) EmitJobQueued(ctx context.Context, queue string, j *job.Job) {
	for _, e := range r.jobQueued {
		if err := e.hook.OnJobQueued(ctx, queue, j); err != nil {
			r.logHookError("OnJobQueued", e.name, err)
		}
	}
}

// EmitJobCancelled notifies all extensions that implement JobCancelled.
func (r *Registry) EmitJobCancelled(ctx context.Context, name string, dues []int64) {
	for _, e := range r.jobCancelled {
		if err := e.hook.OnJobCancelled(ctx, name, dues); err != nil {
			r.logHookError("OnJobCancelled", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Dispatch event emitters
// ──────────────────────────────────────────────────

// EmitJobSucceeded notifies all extensions that implement JobSucceeded.
func (r *Registry) EmitJobSucceeded(ctx context.Context, queue string, j *job.Job, elapsed time.Duration) {
	for _, e := range r.jobSucceeded {
		if err := e.hook.OnJobSucceeded(ctx, queue, j, elapsed); err != nil {
			r.logHookError("OnJobSucceeded", e.name, err)
		}
	}
}

// EmitJobRetrying notifies all extensions that implement JobRetrying.
func (r *Registry) EmitJobRetrying(ctx context.Context, queue string, j *job.Job, nextRunAt time.Time) {
	for _, e := range r.jobRetrying {
		if err := e.hook.OnJobRetrying(ctx, queue, j, nextRunAt); err != nil {
			r.logHookError("OnJobRetrying", e.name, err)
		}
	}
}

// EmitJobFailed notifies all extensions that implement JobFailed.
func (r *Registry) EmitJobFailed(ctx context.Context, queue string, j *job.Job, jobErr error) {
	for _, e := range r.jobFailed {
		if err := e.hook.OnJobFailed(ctx, queue, j, jobErr); err != nil {
			r.logHookError("OnJobFailed", e.name, err)
		}
	}
}

// EmitJobDropped notifies all extensions that implement JobDropped.
func (r *Registry) EmitJobDropped(ctx context.Context, queue string, j *job.Job) {
	for _, e := range r.jobDropped {
		if err := e.hook.OnJobDropped(ctx, queue, j); err != nil {
			r.logHookError("OnJobDropped", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Other event emitters
// ──────────────────────────────────────────────────

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
