package client

import (
	"log/slog"
	"time"

	"github.com/xraph/crontab/listener"
)

// Option configures a Client.
type Option func(*Client)

// WithFormat sets the wire format. Supported values: "json" (default),
// sent as text frames, and "msgpack", sent as binary frames.
func WithFormat(format string) Option {
	return func(c *Client) { c.codec = listener.GetCodec(format) }
}

// WithDefaultQueue sets the queue used when Enqueue names none.
func WithDefaultQueue(queue string) Option {
	return func(c *Client) { c.queue = queue }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithReconnect redials a dropped connection on the next request, trying
// up to maxRetries times with exponential backoff starting at baseDelay.
func WithReconnect(maxRetries int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.reconnect = true
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
	}
}
