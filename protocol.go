package crontab

// Reply tokens shared by the submission protocol and remote handlers.
const (
	// ReplySuccess acknowledges an accepted submission. A remote handler
	// must answer with exactly this body for a job to count as performed.
	ReplySuccess = "success"

	// ReplyError rejects a malformed or failed submission.
	ReplyError = "error"
)
