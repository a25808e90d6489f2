package dlq

import (
	"context"
	"time"

	"github.com/xraph/crontab/id"
)

// ListOpts controls pagination and filtering for DLQ list queries.
type ListOpts struct {
	// Limit is the maximum number of entries to return. Zero means no limit.
	Limit int
	// Offset is the number of entries to skip.
	Offset int
	// Queue filters by queue name. Empty means all queues.
	Queue string
}

// Store defines the persistence contract for the dead letter queue.
type Store interface {
	// PushDLQ adds a failed job entry to the dead letter queue.
	PushDLQ(ctx context.Context, entry *Entry) error

	// ListDLQ returns entries ordered by FailedAt ascending.
	ListDLQ(ctx context.Context, opts ListOpts) ([]*Entry, error)

	// GetDLQ retrieves an entry by ID.
	GetDLQ(ctx context.Context, entryID id.DLQID) (*Entry, error)

	// ReplayDLQ marks an entry as replayed at the given time.
	ReplayDLQ(ctx context.Context, entryID id.DLQID, at time.Time) error

	// PurgeDLQ removes entries with FailedAt before the given time.
	// Returns the number of entries removed.
	PurgeDLQ(ctx context.Context, before time.Time) (int64, error)

	// CountDLQ returns the total number of entries.
	CountDLQ(ctx context.Context) (int64, error)
}

// Page applies opts to entries already ordered and filtered by queue.
// Store backends share it.
func Page(entries []*Entry, opts ListOpts) []*Entry {
	if opts.Offset > 0 {
		if opts.Offset >= len(entries) {
			return nil
		}
		entries = entries[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(entries) {
		entries = entries[:opts.Limit]
	}
	return entries
}
