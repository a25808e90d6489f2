package queue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/crontab/job"
)

// Dispatcher routes a dequeued job. worker.Executor satisfies it.
type Dispatcher interface {
	Execute(ctx context.Context, queue string, j *job.Job)
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithInterval sets how often the consumer drains the queues.
func WithInterval(d time.Duration) ConsumerOption {
	return func(c *Consumer) { c.interval = d }
}

// WithLogger sets the consumer's logger.
func WithLogger(l *slog.Logger) ConsumerOption {
	return func(c *Consumer) { c.logger = l }
}

// Consumer periodically drains the ready queues named by the active index.
type Consumer struct {
	store      Store
	dispatcher Dispatcher
	interval   time.Duration
	logger     *slog.Logger

	running atomic.Bool
	stopCh  chan struct{}
	stopped sync.Once
}

// NewConsumer creates a Consumer.
func NewConsumer(store Store, dispatcher Dispatcher, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		store:      store,
		dispatcher: dispatcher,
		interval:   time.Second,
		logger:     slog.Default(),
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run fires RunOnce on every interval until ctx is done or Stop is called.
func (c *Consumer) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info("queue consumer started", slog.Duration("interval", c.interval))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.stopCh:
			return nil
		case <-ticker.C:
			if _, err := c.RunOnce(ctx); err != nil {
				c.logger.Error("consume tick abandoned", slog.String("error", err.Error()))
			}
		}
	}
}

// Stop ends Run.
func (c *Consumer) Stop() {
	c.stopped.Do(func() { close(c.stopCh) })
}

// RunOnce drains queues until the active index is empty and returns how
// many jobs were handed to the dispatcher. A run that overlaps another
// returns immediately. A store error abandons the rest of the run.
func (c *Consumer) RunOnce(ctx context.Context) (int, error) {
	if !c.running.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer c.running.Store(false)

	dispatched := 0
	for {
		name, ok, err := c.store.PopActive(ctx)
		if err != nil {
			return dispatched, err
		}
		if !ok {
			return dispatched, nil
		}
		n, err := c.drain(ctx, name)
		dispatched += n
		if err != nil {
			return dispatched, err
		}
	}
}

func (c *Consumer) drain(ctx context.Context, name string) (int, error) {
	n := 0
	for {
		data, ok, err := c.store.PopReady(ctx, name)
		if err != nil {
			return n, err
		}
		if !ok {
			return n, nil
		}

		j, err := job.Decode(data)
		if err != nil {
			c.logger.Warn("discarding undecodable job",
				slog.String("queue", name),
				slog.String("error", err.Error()),
			)
			continue
		}
		if j.Name == "" {
			continue
		}
		j.Queue = name

		c.dispatcher.Execute(ctx, name, j)
		n++
	}
}
