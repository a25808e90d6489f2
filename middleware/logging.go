package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/crontab/job"
)

// Logging returns middleware that logs each handler call at debug level and
// failures at warn level. Retry decisions are logged by the retrier.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		logger.Debug("job started",
			slog.String("job_name", j.Name),
			slog.String("queue", j.Queue),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Warn("job not performed",
				slog.String("job_name", j.Name),
				slog.String("queue", j.Queue),
				slog.Duration("elapsed", elapsed),
				slog.Int("retries_left", len(j.RetryStack)),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Debug("job completed",
				slog.String("job_name", j.Name),
				slog.String("queue", j.Queue),
				slog.Duration("elapsed", elapsed),
			)
		}
		return err
	}
}
