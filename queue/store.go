package queue

import "context"

// Store defines the persistence contract for named ready queues and the
// active queue index.
type Store interface {
	// PushReady appends data to the named queue and appends the queue name
	// to the active index.
	PushReady(ctx context.Context, queue string, data []byte) error

	// PopActive removes and returns the head token of the active index.
	PopActive(ctx context.Context) (queue string, ok bool, err error)

	// PopReady removes and returns the head of the named queue.
	PopReady(ctx context.Context, queue string) (data []byte, ok bool, err error)

	// QueueLen returns the number of jobs in the named queue.
	QueueLen(ctx context.Context, queue string) (int64, error)

	// ActiveLen returns the number of tokens in the active index.
	ActiveLen(ctx context.Context) (int64, error)
}
