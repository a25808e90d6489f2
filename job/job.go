package job

import (
	"bytes"
	"crypto/md5" //nolint:gosec // name hash only partitions keys
	"encoding/hex"
	"encoding/json"
)

// CancelArgs is the payload sentinel that turns a submission into a
// cancellation of the named job.
var CancelArgs = json.RawMessage("false")

// Job is a unit of work as persisted in delay buckets and ready queues.
type Job struct {
	Name  string          `json:"name"`
	Args  json.RawMessage `json:"args"`
	Queue string          `json:"queue,omitempty"`

	// RetryStack holds absolute unix timestamps of future attempts. The
	// tail is consumed first.
	RetryStack []int64 `json:"count"`

	// DueTime is set only while the job sits in a delay bucket.
	DueTime int64 `json:"time,omitempty"`
}

// Submission is a request to schedule, enqueue, or cancel a job.
type Submission struct {
	Name       string
	Args       json.RawMessage
	Time       int64
	Queue      string
	RetryStack []int64
}

// IsCancellation reports whether the submission's payload is the
// cancellation sentinel.
func (s Submission) IsCancellation() bool {
	return IsCancelArgs(s.Args)
}

// IsCancelArgs reports whether args is the cancellation sentinel.
func IsCancelArgs(args []byte) bool {
	return bytes.Equal(bytes.TrimSpace(args), CancelArgs)
}

// NameHash returns the key fragment under which the due times of a job
// name are recorded.
func NameHash(name string) string {
	sum := md5.Sum([]byte(name)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

// Encode serializes the job for storage.
func Encode(j *Job) ([]byte, error) {
	return json.Marshal(j)
}

// Decode parses a stored job.
func Decode(data []byte) (*Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// PopRetry removes and returns the tail of the retry stack.
func (j *Job) PopRetry() (int64, bool) {
	n := len(j.RetryStack)
	if n == 0 {
		return 0, false
	}
	due := j.RetryStack[n-1]
	j.RetryStack = j.RetryStack[:n-1]
	return due, true
}
