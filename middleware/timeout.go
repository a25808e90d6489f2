package middleware

import (
	"context"
	"time"

	"github.com/xraph/crontab/job"
)

// Timeout returns middleware that bounds every handler call by d. Handlers
// observe the deadline through ctx. A non-positive d disables the bound.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, _ *job.Job, next Handler) error {
		if d <= 0 {
			return next(ctx)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(ctx)
	}
}
