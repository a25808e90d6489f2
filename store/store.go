// Package store defines the aggregate persistence interface. Each subsystem
// (delay, queue, dlq) defines its own store interface. The composite Store
// composes them all. Backends: Redis and Memory.
package store

import (
	"context"

	"github.com/xraph/crontab/delay"
	"github.com/xraph/crontab/dlq"
	"github.com/xraph/crontab/queue"
)

// Store is the aggregate persistence interface.
// A single backend implements every subsystem store against one shared
// key space.
type Store interface {
	delay.Store
	queue.Store
	dlq.Store

	// Ping checks store connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
