package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/crontab"
	"github.com/xraph/crontab/dlq"
	"github.com/xraph/crontab/id"
)

// PushDLQ stores the entry as JSON and indexes it by failure time.
func (s *Store) PushDLQ(ctx context.Context, entry *dlq.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("crontab/redis: marshal dlq: %w", err)
	}
	eID := entry.ID.String()

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keys.dlqEntry(eID), data, 0)
	pipe.ZAdd(ctx, s.keys.dlqIndex(), goredis.Z{Score: dlqScore(entry.FailedAt), Member: eID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("crontab/redis: push dlq: %w", err)
	}
	return nil
}

// ListDLQ returns DLQ entries matching the given options, oldest first.
func (s *Store) ListDLQ(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	ids, err := s.client.ZRange(ctx, s.keys.dlqIndex(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("crontab/redis: list dlq: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, eID := range ids {
		keys[i] = s.keys.dlqEntry(eID)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("crontab/redis: list dlq mget: %w", err)
	}

	entries := make([]*dlq.Entry, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var e dlq.Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			s.logger.Warn("crontab/redis: skipping corrupt dlq entry",
				slog.String("id", ids[i]),
				slog.String("error", err.Error()),
			)
			continue
		}
		if opts.Queue != "" && e.Queue != opts.Queue {
			continue
		}
		entries = append(entries, &e)
	}
	return dlq.Page(entries, opts), nil
}

// GetDLQ retrieves a DLQ entry by ID.
func (s *Store) GetDLQ(ctx context.Context, entryID id.DLQID) (*dlq.Entry, error) {
	data, err := s.client.Get(ctx, s.keys.dlqEntry(entryID.String())).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, crontab.ErrDLQNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("crontab/redis: get dlq: %w", err)
	}
	var e dlq.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("crontab/redis: unmarshal dlq: %w", err)
	}
	return &e, nil
}

// ReplayDLQ marks a DLQ entry as replayed.
func (s *Store) ReplayDLQ(ctx context.Context, entryID id.DLQID, at time.Time) error {
	e, err := s.GetDLQ(ctx, entryID)
	if err != nil {
		return err
	}
	at = at.UTC()
	e.ReplayedAt = &at

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("crontab/redis: marshal dlq: %w", err)
	}
	if err := s.client.Set(ctx, s.keys.dlqEntry(entryID.String()), data, 0).Err(); err != nil {
		return fmt.Errorf("crontab/redis: replay dlq: %w", err)
	}
	return nil
}

// PurgeDLQ removes DLQ entries with FailedAt before the given time.
func (s *Store) PurgeDLQ(ctx context.Context, before time.Time) (int64, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.keys.dlqIndex(), &goredis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatFloat(dlqScore(before), 'f', -1, 64),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("crontab/redis: purge dlq range: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, len(ids))
	members := make([]any, len(ids))
	for i, eID := range ids {
		keys[i] = s.keys.dlqEntry(eID)
		members[i] = eID
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keys...)
	removed := pipe.ZRem(ctx, s.keys.dlqIndex(), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("crontab/redis: purge dlq: %w", err)
	}
	return removed.Val(), nil
}

// CountDLQ returns the total number of entries in the dead letter queue.
func (s *Store) CountDLQ(ctx context.Context) (int64, error) {
	count, err := s.client.ZCard(ctx, s.keys.dlqIndex()).Result()
	if err != nil {
		return 0, fmt.Errorf("crontab/redis: count dlq: %w", err)
	}
	return count, nil
}

// dlqScore orders entries by failure time at millisecond resolution.
func dlqScore(t time.Time) float64 {
	return float64(t.UnixMilli())
}
