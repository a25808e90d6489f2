package dlq

import (
	"time"

	"github.com/xraph/crontab/id"
	"github.com/xraph/crontab/job"
)

// Entry represents a job that has exhausted its retry stack.
type Entry struct {
	ID         id.DLQID   `json:"id"`
	Queue      string     `json:"queue"`
	Job        *job.Job   `json:"job"`
	Error      string     `json:"error,omitempty"`
	FailedAt   time.Time  `json:"failed_at"`
	ReplayedAt *time.Time `json:"replayed_at,omitempty"`
}
