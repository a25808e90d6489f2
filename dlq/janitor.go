package dlq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// Janitor purges dead-letter entries older than a retention window on a
// cron schedule.
type Janitor struct {
	store     Store
	schedule  string
	retention time.Duration
	logger    *slog.Logger
	cron      *cronlib.Cron
	now       func() time.Time
}

// cronParser supports standard 5-field cron and descriptors like "@every 1h".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// NewJanitor creates a Janitor. schedule is a cron expression or
// descriptor.
func NewJanitor(store Store, schedule string, retention time.Duration, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		store:     store,
		schedule:  schedule,
		retention: retention,
		logger:    logger,
		cron:      cronlib.New(cronlib.WithParser(cronParser)),
		now:       time.Now,
	}
}

// Start validates the schedule and starts purging in the background.
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, func() {
		if _, err := j.Purge(context.Background()); err != nil {
			j.logger.Error("dlq purge failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return fmt.Errorf("crontab/dlq: parse schedule %q: %w", j.schedule, err)
	}
	j.cron.Start()
	j.logger.Info("dlq janitor started",
		slog.String("schedule", j.schedule),
		slog.Duration("retention", j.retention),
	)
	return nil
}

// Stop stops the schedule and waits for a running purge to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Purge removes entries that failed before now minus the retention.
func (j *Janitor) Purge(ctx context.Context) (int64, error) {
	before := j.now().UTC().Add(-j.retention)
	n, err := j.store.PurgeDLQ(ctx, before)
	if err != nil {
		return n, err
	}
	if n > 0 {
		j.logger.Info("dlq purged", slog.Int64("removed", n))
	}
	return n, nil
}
