package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// PushReady appends data to the named queue, then the queue name to the
// active index. The job lands before its token.
func (s *Store) PushReady(ctx context.Context, name string, data []byte) error {
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.keys.queue(name), data)
	pipe.RPush(ctx, s.keys.activeIndex(), name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("crontab/redis: push ready: %w", err)
	}
	return nil
}

// PopActive removes the head token of the active index.
func (s *Store) PopActive(ctx context.Context) (string, bool, error) {
	name, err := s.client.LPop(ctx, s.keys.activeIndex()).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("crontab/redis: pop active: %w", err)
	}
	return name, true, nil
}

// PopReady removes the head of the named queue.
func (s *Store) PopReady(ctx context.Context, name string) ([]byte, bool, error) {
	data, err := s.client.LPop(ctx, s.keys.queue(name)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("crontab/redis: pop ready %q: %w", name, err)
	}
	return data, true, nil
}

// QueueLen returns the number of jobs in the named queue.
func (s *Store) QueueLen(ctx context.Context, name string) (int64, error) {
	n, err := s.client.LLen(ctx, s.keys.queue(name)).Result()
	if err != nil {
		return 0, fmt.Errorf("crontab/redis: queue len: %w", err)
	}
	return n, nil
}

// ActiveLen returns the number of tokens in the active index.
func (s *Store) ActiveLen(ctx context.Context) (int64, error) {
	n, err := s.client.LLen(ctx, s.keys.activeIndex()).Result()
	if err != nil {
		return 0, fmt.Errorf("crontab/redis: active len: %w", err)
	}
	return n, nil
}
