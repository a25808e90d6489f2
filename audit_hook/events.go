package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionJobScheduled = "job.scheduled"
	ActionJobQueued    = "job.queued"
	ActionJobCancelled = "job.cancelled"
	ActionJobSucceeded = "job.succeeded"
	ActionJobRetrying  = "job.retrying"
	ActionJobFailed    = "job.failed"
	ActionJobDropped   = "job.dropped"
)

// Audit event categories group related actions.
const (
	CategorySchedule = "crontab.schedule"
	CategoryDispatch = "crontab.dispatch"
)

// ResourceJob is the Resource field of every event. The resource ID is the
// job name.
const ResourceJob = "job"

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionJobScheduled,
		ActionJobQueued,
		ActionJobCancelled,
		ActionJobSucceeded,
		ActionJobRetrying,
		ActionJobFailed,
		ActionJobDropped,
	}
}
