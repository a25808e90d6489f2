package job

import (
	"encoding/json"
	"time"
)

// Option configures a Submission built by NewSubmission.
type Option func(*Submission)

// NewSubmission creates a submission for name that runs immediately on the
// default queue with no retries.
func NewSubmission(name string, args json.RawMessage, opts ...Option) Submission {
	s := Submission{Name: name, Args: args}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithQueue sets the queue name for the job.
func WithQueue(q string) Option {
	return func(s *Submission) {
		s.Queue = q
	}
}

// WithRunAt schedules the job for execution at a specific time.
func WithRunAt(t time.Time) Option {
	return func(s *Submission) {
		s.Time = t.Unix()
	}
}

// WithRetryAt sets the retry schedule. Times are consumed latest-listed
// first, so pass them in descending order to retry earliest first.
func WithRetryAt(times ...time.Time) Option {
	return func(s *Submission) {
		s.RetryStack = make([]int64, len(times))
		for i, t := range times {
			s.RetryStack[i] = t.Unix()
		}
	}
}

// WithRetryStack sets the raw retry stack of unix timestamps.
func WithRetryStack(stack []int64) Option {
	return func(s *Submission) {
		s.RetryStack = stack
	}
}
