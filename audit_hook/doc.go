// Package audithook is a crontab extension that turns lifecycle events into
// audit records.
//
// Every scheduling and dispatch hook emits a structured [AuditEvent]
// through the [Recorder] interface, with a severity (info for normal
// operations, warning for retries and drops, critical for permanent
// failures) and metadata such as queue, due time, elapsed time and error.
//
// # Logging recorder
//
//	engine.WithExtension(audithook.New(audithook.NewLogRecorder(logger)))
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionJobCancelled,
//	        audithook.ActionJobFailed,
//	    ),
//	)
package audithook
