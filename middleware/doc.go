// Package middleware provides composable middleware for local handler calls.
//
// A [Middleware] is a function that wraps a job handler. Middleware are
// composed into a chain using [Chain] and applied around each local
// dispatch. They are applied right-to-left: the first middleware in the
// slice is the outermost wrapper.
//
//	// recover → logging → handler
//	chain := middleware.Chain(middleware.Recover(logger), middleware.Logging(logger))
//
// # Built-in Middleware
//
//   - [Logging]: logs job name, queue, duration, and outcome at each call
//   - [Recover]: catches panics and converts them to errors
//   - [Timeout]: cancels the handler context after a fixed duration
//   - [Tracing]: wraps the call in an OpenTelemetry span
//   - [Metrics]: records per-job duration and outcome counters
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, j *job.Job, next middleware.Handler) error {
//	        // pre-processing
//	        err := next(ctx)
//	        // post-processing
//	        return err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting.
package middleware
