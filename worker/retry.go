package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/xraph/crontab"
	"github.com/xraph/crontab/dlq"
	"github.com/xraph/crontab/ext"
	"github.com/xraph/crontab/job"
)

// SubmitFunc resubmits a job through the scheduling API. The engine
// provides the implementation.
type SubmitFunc func(ctx context.Context, s job.Submission) error

// Retrier resubmits failed jobs from their retry stack.
type Retrier struct {
	submit     SubmitFunc
	dlq        *dlq.Service
	extensions *ext.Registry
	logger     *slog.Logger
}

// NewRetrier creates a Retrier. dlqService may be nil, in which case
// permanently failed jobs are only logged.
func NewRetrier(submit SubmitFunc, dlqService *dlq.Service, extensions *ext.Registry, logger *slog.Logger) *Retrier {
	return &Retrier{
		submit:     submit,
		dlq:        dlqService,
		extensions: extensions,
		logger:     logger,
	}
}

// Retry handles a failed attempt of j taken from queue. cause may be nil.
// ErrNotPerformed and ErrRemoteRejected mark an attempt that failed without
// an error description; they are never logged as errors.
//
// With a non-empty retry stack, the tail timestamp is popped and the job is
// resubmitted due at that time on the same queue with the shortened stack.
// With an empty stack the failure is permanent: it is logged as
// "cron failed" and pushed to the dead letter queue. A nil cause is
// recorded there as ErrRetriesExhausted.
func (r *Retrier) Retry(ctx context.Context, queue string, j *job.Job, cause error) error {
	next := *j
	next.RetryStack = slices.Clone(j.RetryStack)
	next.DueTime = 0

	due, ok := next.PopRetry()
	if !ok {
		return r.fail(ctx, queue, j, cause)
	}

	if described(cause) {
		r.logger.Error(cause.Error(),
			slog.String("queue", queue),
			slog.String("job_name", j.Name),
		)
	}

	if err := r.submit(ctx, job.Submission{
		Name:       next.Name,
		Args:       next.Args,
		Time:       due,
		Queue:      queue,
		RetryStack: next.RetryStack,
	}); err != nil {
		return fmt.Errorf("crontab/worker: resubmit %s: %w", j.Name, err)
	}

	r.extensions.EmitJobRetrying(ctx, queue, &next, time.Unix(due, 0))
	return nil
}

func (r *Retrier) fail(ctx context.Context, queue string, j *job.Job, cause error) error {
	attrs := []any{
		slog.String("queue", queue),
		slog.String("job_name", j.Name),
		slog.String("args", string(j.Args)),
	}
	if described(cause) {
		attrs = append(attrs, slog.String("error", cause.Error()))
	}
	r.logger.Info("cron failed", attrs...)

	if cause == nil {
		cause = crontab.ErrRetriesExhausted
	}

	r.extensions.EmitJobFailed(ctx, queue, j, cause)

	if r.dlq == nil {
		return nil
	}
	if err := r.dlq.Push(ctx, queue, j, cause); err != nil {
		return fmt.Errorf("crontab/worker: dead-letter %s: %w", j.Name, err)
	}
	return nil
}

func described(cause error) bool {
	return cause != nil &&
		!errors.Is(cause, crontab.ErrNotPerformed) &&
		!errors.Is(cause, crontab.ErrRemoteRejected)
}
