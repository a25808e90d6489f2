package crontab

import "errors"

var (
	// Store errors.
	ErrNoStore     = errors.New("crontab: no store configured")
	ErrStoreClosed = errors.New("crontab: store closed")

	// Submission errors.
	ErrInvalidRequest = errors.New("crontab: invalid request")
	ErrRejected       = errors.New("crontab: request rejected")
	ErrClientClosed   = errors.New("crontab: client closed")

	// Dispatch errors.
	ErrNotPerformed     = errors.New("crontab: handler did not perform job")
	ErrRemoteRejected   = errors.New("crontab: remote handler did not acknowledge")
	ErrRetriesExhausted = errors.New("crontab: retries exhausted")

	// Not found errors.
	ErrDLQNotFound = errors.New("crontab: dlq entry not found")
)
