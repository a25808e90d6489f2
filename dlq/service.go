package dlq

import (
	"context"
	"time"

	"github.com/xraph/crontab/id"
	"github.com/xraph/crontab/job"
)

// SubmitFunc resubmits a job through the scheduling API. The engine
// provides the implementation.
type SubmitFunc func(ctx context.Context, s job.Submission) error

// Service provides high-level DLQ operations over a Store.
type Service struct {
	store  Store
	submit SubmitFunc
	now    func() time.Time
}

// NewService creates a DLQ service. submit may be nil, in which case
// Replay is unavailable.
func NewService(store Store, submit SubmitFunc) *Service {
	return &Service{store: store, submit: submit, now: time.Now}
}

// Push records a permanently failed job. jobErr may be nil when the job
// failed without an error description.
func (s *Service) Push(ctx context.Context, queue string, j *job.Job, jobErr error) error {
	entry := &Entry{
		ID:       id.NewDLQID(),
		Queue:    queue,
		Job:      j,
		FailedAt: s.now().UTC(),
	}
	if jobErr != nil {
		entry.Error = jobErr.Error()
	}
	return s.store.PushDLQ(ctx, entry)
}

// Replay resubmits the entry's job to run now on its original queue with
// an empty retry stack and marks the entry replayed.
func (s *Service) Replay(ctx context.Context, entryID id.DLQID) (*Entry, error) {
	entry, err := s.store.GetDLQ(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if s.submit == nil {
		return entry, errNoSubmitter
	}

	// A zero time is never in the future, so the job is queued at once.
	if err := s.submit(ctx, job.Submission{
		Name:  entry.Job.Name,
		Args:  entry.Job.Args,
		Queue: entry.Queue,
	}); err != nil {
		return entry, err
	}

	now := s.now().UTC()
	if err := s.store.ReplayDLQ(ctx, entryID, now); err != nil {
		// The job is already resubmitted.
		return entry, err
	}
	entry.ReplayedAt = &now
	return entry, nil
}

// DLQStore returns the underlying store for direct access to List, Get,
// Purge, and Count.
func (s *Service) DLQStore() Store {
	return s.store
}
