package listener

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/xraph/crontab"
	"github.com/xraph/crontab/job"
)

// requiredFields must be present and non-null in every request.
var requiredFields = []string{"name", "time", "queue", "count"}

// Request is a submission as carried on the wire.
type Request struct {
	Name  string          `json:"name"`
	Args  json.RawMessage `json:"args"`
	Time  int64           `json:"time"`
	Queue string          `json:"queue"`
	Count RetryPlan       `json:"count"`
}

// Submission converts the request for the scheduling API. expand turns a
// retry count into a retry stack.
func (r *Request) Submission(expand func(attempts int) []int64) job.Submission {
	return job.Submission{
		Name:       r.Name,
		Args:       r.Args,
		Time:       r.Time,
		Queue:      r.Queue,
		RetryStack: r.Count.Resolve(expand),
	}
}

func (r *Request) validate() error {
	if r.Name == "" {
		return invalid("name must be a non-empty string")
	}
	if r.Queue == "" {
		return invalid("queue must be a non-empty string")
	}
	if r.Count.Stack == nil && r.Count.Attempts < 0 {
		return invalid("count must not be negative")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", crontab.ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// RetryPlan is the count field: either an explicit retry stack or a number
// of retries to expand.
type RetryPlan struct {
	// Stack holds absolute unix timestamps; the tail is consumed first.
	// A non-nil Stack takes precedence over Attempts.
	Stack []int64

	// Attempts is the number of retries to expand when Stack is nil.
	Attempts int
}

// Retries returns a plan with an explicit retry stack.
func Retries(stack ...int64) RetryPlan {
	if stack == nil {
		stack = []int64{}
	}
	return RetryPlan{Stack: stack}
}

// RetryTimes returns a plan that expands into n retries.
func RetryTimes(n int) RetryPlan {
	return RetryPlan{Attempts: n}
}

// Resolve returns the retry stack, expanding Attempts when no explicit
// stack was given.
func (p RetryPlan) Resolve(expand func(attempts int) []int64) []int64 {
	if p.Stack != nil {
		return p.Stack
	}
	if p.Attempts <= 0 || expand == nil {
		return []int64{}
	}
	return expand(p.Attempts)
}

// MarshalJSON encodes the plan as an array or a number.
func (p RetryPlan) MarshalJSON() ([]byte, error) {
	if p.Stack != nil {
		return json.Marshal(p.Stack)
	}
	return json.Marshal(p.Attempts)
}

// UnmarshalJSON accepts an array of timestamps or a retry count.
func (p *RetryPlan) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var stack []int64
		if err := json.Unmarshal(data, &stack); err != nil {
			return invalid("count: %v", err)
		}
		*p = Retries(stack...)
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return invalid("count must be an array of timestamps or a number")
	}
	*p = RetryTimes(n)
	return nil
}
