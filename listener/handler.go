package listener

import (
	"context"
	"log/slog"

	"github.com/xraph/crontab"
	"github.com/xraph/crontab/job"
)

// Submitter is the scheduling API the listener feeds. engine.Engine
// satisfies it.
type Submitter interface {
	Submit(ctx context.Context, s job.Submission) error

	// RetryStack expands a retry count into absolute retry timestamps.
	RetryStack(attempts int) []int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler's logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// Handler validates requests and forwards them to a Submitter. It is
// shared by every transport.
type Handler struct {
	sub    Submitter
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(sub Submitter, opts ...Option) *Handler {
	h := &Handler{
		sub:    sub,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle decodes data with codec, submits it and returns the reply token.
func (h *Handler) Handle(ctx context.Context, codec Codec, data []byte) string {
	req, err := codec.Decode(data)
	if err != nil {
		h.logger.Warn("rejected request",
			slog.String("codec", codec.Name()),
			slog.String("error", err.Error()),
		)
		return crontab.ReplyError
	}

	if err := h.sub.Submit(ctx, req.Submission(h.sub.RetryStack)); err != nil {
		h.logger.Error("submit failed",
			slog.String("job_name", req.Name),
			slog.String("queue", req.Queue),
			slog.String("error", err.Error()),
		)
		return crontab.ReplyError
	}

	h.logger.Debug("request accepted",
		slog.String("job_name", req.Name),
		slog.String("queue", req.Queue),
		slog.Int64("time", req.Time),
	)
	return crontab.ReplySuccess
}
