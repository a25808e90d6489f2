// Package worker dispatches jobs drained from the ready queues.
//
// The [Executor] routes each job either to a remote address, through a
// [RemoteInvoker] in a tracked goroutine, or to a local handler resolved
// from a job.Registry and invoked synchronously through the middleware
// chain. Failures are handed to the [Retrier], which resubmits the job at
// the next timestamp of its retry stack or, once the stack is empty, logs
// the permanent failure and records it in the dead letter queue.
package worker
