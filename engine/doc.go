// Package engine wires the crontab subsystems together and provides the
// application-level API for registering handlers and submitting jobs.
//
// # Building an Engine
//
//	eng, err := engine.New(redisstore.New(client),
//	    engine.WithLogger(logger),
//	    engine.WithExtension(myExtension),
//	    engine.WithMiddleware(middleware.Logging(logger)),
//	    engine.WithBackoff(backoff.NewExponential(time.Minute, time.Hour)),
//	    engine.WithQueueConfig(queue.Config{
//	        Name:           "webhooks",
//	        MaxConcurrency: 8,
//	        RateLimit:      50,
//	    }),
//	)
//
// # Registering Handlers
//
//	engine.Register(eng, job.NewDefinition("Mailer", SendMail))
//	eng.Registry().RegisterFunc("Report", "build", BuildReport)
//
// # Submitting Jobs
//
//	// Run now on the default queue.
//	engine.Enqueue(ctx, eng, "Mailer/send", EmailInput{To: "user@example.com"})
//
//	// Run in five minutes, retry twice.
//	eng.Submit(ctx, job.NewSubmission("Mailer/send", payload,
//	    job.WithRunAt(time.Now().Add(5*time.Minute)),
//	    job.WithRetryStack(eng.RetryStack(2)),
//	))
//
//	// Cancel every scheduled occurrence.
//	eng.Cancel(ctx, "Mailer/send", 0)
//
// Names beginning with a remote marker ("http://" or "https://" by default)
// are posted to that address instead of a local handler.
//
// # Options
//
//   - [WithConfig]: intervals, default queue, remote markers, timeouts
//   - [WithExtension]: register a lifecycle extension
//   - [WithMiddleware]: add a middleware to the local handler chain
//   - [WithBackoff]: set the strategy for expanding retry counts
//   - [WithQueueConfig]: per-queue rate limits and concurrency for remote calls
//   - [WithDLQ], [WithDLQJanitor]: dead-letter permanently failed jobs
//   - [WithTracerProvider], [WithMeterProvider]: OpenTelemetry providers
package engine
