package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	goredis "github.com/redis/go-redis/v9"
)

// popScript removes the head of a bucket and drops the index entry once the
// bucket is empty.
//
// KEYS[1] bucket, KEYS[2] delay index, ARGV[1] due.
var popScript = goredis.NewScript(`
local v = redis.call('LPOP', KEYS[1])
if redis.call('LLEN', KEYS[1]) == 0 then
	redis.call('ZREM', KEYS[2], ARGV[1])
end
return v
`)

// cancelScript empties a bucket, unindexes it and removes due from an
// occurrence set.
//
// KEYS[1] bucket, KEYS[2] delay index, KEYS[3] occurrence set, ARGV[1] due.
var cancelScript = goredis.NewScript(`
redis.call('DEL', KEYS[1])
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('SREM', KEYS[3], ARGV[1])
return 1
`)

// AddDelayed appends data to the bucket at due, indexes due and records it
// under nameHash.
func (s *Store) AddDelayed(ctx context.Context, due int64, nameHash string, data []byte) error {
	member := strconv.FormatInt(due, 10)

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.keys.bucket(due), data)
	pipe.ZAdd(ctx, s.keys.delayIndex(), goredis.Z{Score: float64(due), Member: member})
	pipe.SAdd(ctx, s.keys.occurrences(nameHash), member)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("crontab/redis: add delayed: %w", err)
	}
	return nil
}

// NextDue returns the smallest indexed timestamp not after now.
func (s *Store) NextDue(ctx context.Context, now int64) (int64, bool, error) {
	members, err := s.client.ZRangeByScore(ctx, s.keys.delayIndex(), &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now, 10),
		Count: 1,
	}).Result()
	if err != nil {
		return 0, false, fmt.Errorf("crontab/redis: next due: %w", err)
	}
	if len(members) == 0 {
		return 0, false, nil
	}
	due, err := strconv.ParseInt(members[0], 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("crontab/redis: next due %q: %w", members[0], err)
	}
	return due, true, nil
}

// PopDelayed atomically removes the head of the bucket at due.
func (s *Store) PopDelayed(ctx context.Context, due int64) ([]byte, bool, error) {
	keys := []string{s.keys.bucket(due), s.keys.delayIndex()}
	data, err := popScript.Run(ctx, s.client, keys, strconv.FormatInt(due, 10)).Text()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("crontab/redis: pop delayed %d: %w", due, err)
	}
	return []byte(data), true, nil
}

// RemoveOccurrence removes due from the occurrence set of nameHash.
func (s *Store) RemoveOccurrence(ctx context.Context, nameHash string, due int64) error {
	if err := s.client.SRem(ctx, s.keys.occurrences(nameHash), strconv.FormatInt(due, 10)).Err(); err != nil {
		return fmt.Errorf("crontab/redis: remove occurrence: %w", err)
	}
	return nil
}

// CancelDelayed atomically empties the bucket at due, drops it from the
// index and removes the occurrence of nameHash.
func (s *Store) CancelDelayed(ctx context.Context, nameHash string, due int64) error {
	keys := []string{s.keys.bucket(due), s.keys.delayIndex(), s.keys.occurrences(nameHash)}
	if err := cancelScript.Run(ctx, s.client, keys, strconv.FormatInt(due, 10)).Err(); err != nil {
		return fmt.Errorf("crontab/redis: cancel delayed %d: %w", due, err)
	}
	return nil
}

// CancelAllDelayed cancels every recorded occurrence of nameHash and
// deletes the occurrence set.
func (s *Store) CancelAllDelayed(ctx context.Context, nameHash string) ([]int64, error) {
	dues, err := s.Occurrences(ctx, nameHash)
	if err != nil {
		return nil, err
	}
	for _, due := range dues {
		if err := s.CancelDelayed(ctx, nameHash, due); err != nil {
			return nil, err
		}
	}
	if err := s.client.Del(ctx, s.keys.occurrences(nameHash)).Err(); err != nil {
		return nil, fmt.Errorf("crontab/redis: cancel all delayed: %w", err)
	}
	return dues, nil
}

// Occurrences returns the timestamps recorded for nameHash, ascending.
func (s *Store) Occurrences(ctx context.Context, nameHash string) ([]int64, error) {
	members, err := s.client.SMembers(ctx, s.keys.occurrences(nameHash)).Result()
	if err != nil {
		return nil, fmt.Errorf("crontab/redis: occurrences: %w", err)
	}
	out := parseTimestamps(members)
	sort.Slice(out, func(i, k int) bool { return out[i] < out[k] })
	return out, nil
}

// BucketLen returns the number of jobs in the bucket at due.
func (s *Store) BucketLen(ctx context.Context, due int64) (int64, error) {
	n, err := s.client.LLen(ctx, s.keys.bucket(due)).Result()
	if err != nil {
		return 0, fmt.Errorf("crontab/redis: bucket len: %w", err)
	}
	return n, nil
}

// DelayIndex returns every indexed timestamp, ascending.
func (s *Store) DelayIndex(ctx context.Context) ([]int64, error) {
	members, err := s.client.ZRange(ctx, s.keys.delayIndex(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("crontab/redis: delay index: %w", err)
	}
	return parseTimestamps(members), nil
}

func parseTimestamps(members []string) []int64 {
	out := make([]int64, 0, len(members))
	for _, m := range members {
		v, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
