package delay

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/crontab/job"
)

// PromoteFunc moves a due job into its ready queue. The engine provides the
// implementation, which routes through the scheduling API with the
// promotion flag set.
type PromoteFunc func(ctx context.Context, j *job.Job, due int64) error

// TickerOption configures a Ticker.
type TickerOption func(*Ticker)

// WithInterval sets how often the ticker promotes due buckets.
func WithInterval(d time.Duration) TickerOption {
	return func(t *Ticker) { t.interval = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) TickerOption {
	return func(t *Ticker) { t.now = now }
}

// WithLogger sets the ticker's logger.
func WithLogger(l *slog.Logger) TickerOption {
	return func(t *Ticker) { t.logger = l }
}

// Ticker periodically promotes due buckets into ready queues.
type Ticker struct {
	store    Store
	promote  PromoteFunc
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	running atomic.Bool
	stopCh  chan struct{}
	stopped sync.Once
}

// NewTicker creates a Ticker.
func NewTicker(store Store, promote PromoteFunc, opts ...TickerOption) *Ticker {
	t := &Ticker{
		store:    store,
		promote:  promote,
		interval: 3 * time.Second,
		now:      time.Now,
		logger:   slog.Default(),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run fires RunOnce on every interval until ctx is done or Stop is called.
func (t *Ticker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info("delay ticker started", slog.Duration("interval", t.interval))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.stopCh:
			return nil
		case <-ticker.C:
			if _, err := t.RunOnce(ctx); err != nil {
				t.logger.Error("delay tick abandoned", slog.String("error", err.Error()))
			}
		}
	}
}

// Stop ends Run.
func (t *Ticker) Stop() {
	t.stopped.Do(func() { close(t.stopCh) })
}

// RunOnce promotes every job whose due time is not after now and returns
// how many were promoted. A run that overlaps another returns immediately.
// A store error abandons the rest of the run.
func (t *Ticker) RunOnce(ctx context.Context) (int, error) {
	if !t.running.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer t.running.Store(false)

	now := t.now().Unix()
	promoted := 0
	for {
		due, ok, err := t.store.NextDue(ctx, now)
		if err != nil {
			return promoted, err
		}
		if !ok {
			return promoted, nil
		}
		n, err := t.drain(ctx, due)
		promoted += n
		if err != nil {
			return promoted, err
		}
	}
}

func (t *Ticker) drain(ctx context.Context, due int64) (int, error) {
	n := 0
	for {
		data, ok, err := t.store.PopDelayed(ctx, due)
		if err != nil {
			return n, err
		}
		if !ok {
			return n, nil
		}

		j, err := job.Decode(data)
		if err != nil {
			t.logger.Warn("discarding undecodable delayed job",
				slog.Int64("due", due),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := t.promote(ctx, j, due); err != nil {
			t.logger.Error("promote failed",
				slog.String("job_name", j.Name),
				slog.Int64("due", due),
				slog.String("job", string(data)),
				slog.String("error", err.Error()),
			)
			return n, err
		}
		n++
	}
}
