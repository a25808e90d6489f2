package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/crontab/ext"
	"github.com/xraph/crontab/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension    = (*Extension)(nil)
	_ ext.JobScheduled = (*Extension)(nil)
	_ ext.JobQueued    = (*Extension)(nil)
	_ ext.JobCancelled = (*Extension)(nil)
	_ ext.JobSucceeded = (*Extension)(nil)
	_ ext.JobRetrying  = (*Extension)(nil)
	_ ext.JobFailed    = (*Extension)(nil)
	_ ext.JobDropped   = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one audit record.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// NewLogRecorder returns a Recorder that writes each event as one
// structured log line at a level matching its severity.
func NewLogRecorder(logger *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, evt *AuditEvent) error {
		level := slog.LevelInfo
		switch evt.Severity {
		case SeverityWarning:
			level = slog.LevelWarn
		case SeverityCritical:
			level = slog.LevelError
		}

		attrs := []slog.Attr{
			slog.String("action", evt.Action),
			slog.String("category", evt.Category),
			slog.String("job_name", evt.ResourceID),
			slog.String("outcome", evt.Outcome),
		}
		for k, v := range evt.Metadata {
			attrs = append(attrs, slog.Any(k, v))
		}
		logger.LogAttrs(ctx, level, "audit", attrs...)
		return nil
	})
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges crontab lifecycle events to an audit trail backend.
// Each lifecycle hook emits a structured audit event through the [Recorder].
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Scheduling hooks ────────────────────────────────

// OnJobScheduled implements ext.JobScheduled.
func (e *Extension) OnJobScheduled(ctx context.Context, j *job.Job, due int64) error {
	return e.record(ctx, ActionJobScheduled, SeverityInfo, OutcomeSuccess,
		j.Name, CategorySchedule, nil,
		"queue", j.Queue,
		"due", due,
		"retries_left", len(j.RetryStack),
	)
}

// OnJobQueued implements ext.JobQueued.
func (e *Extension) OnJobQueued(ctx context.Context, queue string, j *job.Job) error {
	return e.record(ctx, ActionJobQueued, SeverityInfo, OutcomeSuccess,
		j.Name, CategorySchedule, nil,
		"queue", queue,
	)
}

// OnJobCancelled implements ext.JobCancelled.
func (e *Extension) OnJobCancelled(ctx context.Context, name string, dues []int64) error {
	return e.record(ctx, ActionJobCancelled, SeverityInfo, OutcomeSuccess,
		name, CategorySchedule, nil,
		"dues", dues,
	)
}

// ── Dispatch hooks ──────────────────────────────────

// OnJobSucceeded implements ext.JobSucceeded.
func (e *Extension) OnJobSucceeded(ctx context.Context, queue string, j *job.Job, elapsed time.Duration) error {
	return e.record(ctx, ActionJobSucceeded, SeverityInfo, OutcomeSuccess,
		j.Name, CategoryDispatch, nil,
		"queue", queue,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnJobRetrying implements ext.JobRetrying.
func (e *Extension) OnJobRetrying(ctx context.Context, queue string, j *job.Job, nextRunAt time.Time) error {
	return e.record(ctx, ActionJobRetrying, SeverityWarning, OutcomeFailure,
		j.Name, CategoryDispatch, nil,
		"queue", queue,
		"retries_left", len(j.RetryStack),
		"next_run_at", nextRunAt.UTC().Format(time.RFC3339),
	)
}

// OnJobFailed implements ext.JobFailed.
func (e *Extension) OnJobFailed(ctx context.Context, queue string, j *job.Job, jobErr error) error {
	return e.record(ctx, ActionJobFailed, SeverityCritical, OutcomeFailure,
		j.Name, CategoryDispatch, jobErr,
		"queue", queue,
	)
}

// OnJobDropped implements ext.JobDropped.
func (e *Extension) OnJobDropped(ctx context.Context, queue string, j *job.Job) error {
	return e.record(ctx, ActionJobDropped, SeverityWarning, OutcomeFailure,
		j.Name, CategoryDispatch, nil,
		"queue", queue,
	)
}

// ── Internal helpers ────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	jobName, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   ResourceJob,
		Category:   category,
		ResourceID: jobName,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			slog.String("action", action),
			slog.String("job_name", jobName),
			slog.String("error", recErr.Error()),
		)
	}
	return nil
}
