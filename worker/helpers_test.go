package worker_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/crontab/ext"
	"github.com/xraph/crontab/job"
)

// recordingExt captures the lifecycle hooks the worker emits.
type recordingExt struct {
	mu     sync.Mutex
	events []string
	causes []error
}

func (r *recordingExt) Name() string { return "recording" }

func (r *recordingExt) add(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingExt) OnJobSucceeded(_ context.Context, q string, j *job.Job, _ time.Duration) error {
	r.add("succeeded:" + q + ":" + j.Name)
	return nil
}

func (r *recordingExt) OnJobRetrying(_ context.Context, q string, j *job.Job, _ time.Time) error {
	r.add("retrying:" + q + ":" + j.Name)
	return nil
}

func (r *recordingExt) OnJobFailed(_ context.Context, q string, j *job.Job, err error) error {
	r.mu.Lock()
	r.causes = append(r.causes, err)
	r.mu.Unlock()
	r.add("failed:" + q + ":" + j.Name)
	return nil
}

func (r *recordingExt) OnJobDropped(_ context.Context, q string, j *job.Job) error {
	r.add("dropped:" + q + ":" + j.Name)
	return nil
}

func (r *recordingExt) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// submitRecorder is a SubmitFunc that keeps every submission.
type submitRecorder struct {
	mu   sync.Mutex
	subs []job.Submission
	err  error
}

func (s *submitRecorder) submit(_ context.Context, sub job.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *submitRecorder) all() []job.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]job.Submission(nil), s.subs...)
}

// syncBuffer is a log sink safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func newExtRegistry(logger *slog.Logger) (*ext.Registry, *recordingExt) {
	rec := &recordingExt{}
	reg := ext.NewRegistry(logger)
	reg.Register(rec)
	return reg, rec
}
