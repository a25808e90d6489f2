package crontab

import "time"

// Config holds configuration for the scheduler engine.
type Config struct {
	// DelayInterval is how often due buckets are promoted into queues.
	DelayInterval time.Duration

	// ConsumeInterval is how often the ready queues are drained.
	ConsumeInterval time.Duration

	// KeyPrefix namespaces every key written to the shared store.
	KeyPrefix string

	// DefaultQueue is used when a submission names no queue.
	DefaultQueue string

	// RemotePrefixes mark job names that are dispatched to a remote
	// address instead of a local handler.
	RemotePrefixes []string

	// DefaultMethod is the handler method used when a job name has none.
	DefaultMethod string

	// HandlerTimeout bounds a single local handler call. Zero means
	// unlimited.
	HandlerTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for in-flight remote
	// calls during shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults. The engine falls
// back to these for an unset DefaultQueue or a non-positive interval.
func DefaultConfig() Config {
	return Config{
		DelayInterval:   3 * time.Second,
		ConsumeInterval: 1 * time.Second,
		KeyPrefix:       "teu:",
		DefaultQueue:    "default",
		RemotePrefixes:  []string{"http://", "https://"},
		DefaultMethod:   "perform",
		ShutdownTimeout: 30 * time.Second,
	}
}
