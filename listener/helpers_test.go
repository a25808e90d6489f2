package listener_test

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/crontab/backoff"
	"github.com/xraph/crontab/job"
	"github.com/xraph/crontab/listener"
)

// fakeSubmitter records submissions and expands retry counts with a
// constant ten second backoff from t=1000.
type fakeSubmitter struct {
	mu   sync.Mutex
	subs []job.Submission
	err  error
}

func (f *fakeSubmitter) Submit(_ context.Context, s job.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.subs = append(f.subs, s)
	return nil
}

func (f *fakeSubmitter) RetryStack(attempts int) []int64 {
	return backoff.Stack(time.Unix(1000, 0), attempts, backoff.NewConstant(10*time.Second))
}

func (f *fakeSubmitter) all() []job.Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]job.Submission(nil), f.subs...)
}

func newHandler(sub listener.Submitter) *listener.Handler {
	return listener.NewHandler(sub, listener.WithLogger(slog.New(slog.DiscardHandler)))
}
