package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/crontab/delay"
	"github.com/xraph/crontab/dlq"
	"github.com/xraph/crontab/queue"
)

// Compile-time interface checks.
var (
	_ delay.Store = (*Store)(nil)
	_ queue.Store = (*Store)(nil)
	_ dlq.Store   = (*Store)(nil)
)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithKeyPrefix overrides the "teu:" key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.keys = keyspace{prefix: prefix} }
}

// Store implements the composite store.Store interface backed by Redis.
type Store struct {
	client redis.Cmdable
	logger *slog.Logger
	keys   keyspace
}

// New creates a new Redis-backed store. The caller owns the Redis client
// lifecycle.
func New(client redis.Cmdable, opts ...Option) *Store {
	s := &Store{
		client: client,
		logger: slog.Default(),
		keys:   keyspace{prefix: DefaultKeyPrefix},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() redis.Cmdable { return s.client }

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("crontab/redis: ping: %w", err)
	}
	return nil
}

// Close is a no-op: the caller owns the Redis client lifecycle.
func (s *Store) Close() error { return nil }
