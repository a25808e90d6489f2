package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/crontab/job"
	"github.com/xraph/crontab/listener"
)

// EnqueueOption configures a request built by Enqueue.
type EnqueueOption func(*listener.Request)

// At schedules the job for t.
func At(t time.Time) EnqueueOption {
	return func(r *listener.Request) { r.Time = t.Unix() }
}

// In schedules the job d from now.
func In(d time.Duration) EnqueueOption {
	return func(r *listener.Request) { r.Time = time.Now().Add(d).Unix() }
}

// OnQueue sets the queue the job runs on.
func OnQueue(queue string) EnqueueOption {
	return func(r *listener.Request) { r.Queue = queue }
}

// RetryTimes asks the server to expand n retries with its backoff.
func RetryTimes(n int) EnqueueOption {
	return func(r *listener.Request) { r.Count = listener.RetryTimes(n) }
}

// RetryAt sets explicit retry times. The last one is tried first.
func RetryAt(times ...time.Time) EnqueueOption {
	return func(r *listener.Request) {
		stack := make([]int64, len(times))
		for i, t := range times {
			stack[i] = t.Unix()
		}
		r.Count = listener.Retries(stack...)
	}
}

// Enqueue submits name with payload encoded as JSON. Without At or In the
// job runs as soon as it reaches its queue.
func (c *Client) Enqueue(ctx context.Context, name string, payload any, opts ...EnqueueOption) error {
	args, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("crontab/client: marshal payload: %w", err)
	}

	r := &listener.Request{
		Name:  name,
		Args:  args,
		Queue: c.queue,
		Count: listener.Retries(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return c.Submit(ctx, r)
}

// Cancel removes every pending occurrence of name.
func (c *Client) Cancel(ctx context.Context, name string) error {
	return c.CancelAt(ctx, name, time.Time{})
}

// CancelAt removes the occurrence of name due at t. A zero t cancels every
// occurrence.
func (c *Client) CancelAt(ctx context.Context, name string, t time.Time) error {
	var at int64
	if !t.IsZero() {
		at = t.Unix()
	}
	return c.Submit(ctx, &listener.Request{
		Name:  name,
		Args:  job.CancelArgs,
		Time:  at,
		Queue: c.queue,
		Count: listener.Retries(),
	})
}
