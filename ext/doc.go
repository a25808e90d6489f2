// Package ext defines the extension system for crontab.
//
// Extensions are notified of lifecycle events and can react to them, for
// example by recording metrics or writing audit logs. Each lifecycle hook is
// a separate interface so extensions opt in only to the events they care
// about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnJobFailed(ctx context.Context, queue string, j *job.Job, err error) error {
//	    log.Printf("job %s on %s gave up: %v", j.Name, queue, err)
//	    return nil
//	}
//
// # Scheduling Hooks
//
//   - [JobScheduled]: job was placed in a delay bucket
//   - [JobQueued]: job was pushed onto a ready queue
//   - [JobCancelled]: scheduled occurrences of a job name were cancelled
//
// # Dispatch Hooks
//
//   - [JobSucceeded]: handler reported the job performed
//   - [JobRetrying]: job was resubmitted from its retry stack
//   - [JobFailed]: job failed with no retries remaining
//   - [JobDropped]: no local handler matched the job's name
//
// # Other Hooks
//
//   - [Shutdown]: the engine is shutting down gracefully
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface.
package ext
