// Package dlq keeps jobs that failed after exhausting their retry stack so
// they can be inspected, replayed, or purged.
//
// The retry manager logs every permanent failure. When a [Service] is
// configured it also calls [Service.Push], which records the queue, the job
// as it was on its final attempt, and the final error.
//
// # Replay
//
// [Service.Replay] resubmits the recorded job to run immediately on its
// original queue with an empty retry stack, then marks the entry replayed.
//
// # Retention
//
// [Janitor] purges entries older than a retention window on a cron
// schedule (github.com/robfig/cron/v3):
//
//	j := dlq.NewJanitor(store, "@hourly", 7*24*time.Hour, logger)
//	j.Start()
//	defer j.Stop()
package dlq
