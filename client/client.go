// Package client submits jobs to a remote crontab listener over WebSocket.
//
// Usage:
//
//	c, err := client.Dial("ws://localhost:8080/ws")
//	defer c.Close()
//
//	// Run Mailer/send in ten minutes with two retries.
//	err = c.Enqueue(ctx, "Mailer/send", payload,
//	    client.In(10*time.Minute),
//	    client.OnQueue("mail"),
//	    client.RetryTimes(2),
//	)
//
//	// Cancel every pending occurrence.
//	err = c.Cancel(ctx, "Mailer/send")
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/xraph/crontab"
	"github.com/xraph/crontab/listener"
)

// Client sends submission requests and waits for the listener's reply.
// Requests on one Client are serialized; replies arrive in order.
type Client struct {
	url    string
	codec  listener.Codec
	queue  string
	logger *slog.Logger

	// Reconnection.
	reconnect  bool
	maxRetries int
	baseDelay  time.Duration

	// reqMu serializes request and reply exchanges; connMu guards conn so
	// Close can interrupt an exchange in flight.
	reqMu  sync.Mutex
	connMu sync.Mutex
	conn   net.Conn
	closed atomic.Bool
}

// Dial connects to a crontab WebSocket listener.
func Dial(url string, opts ...Option) (*Client, error) {
	return DialContext(context.Background(), url, opts...)
}

// DialContext connects to a crontab WebSocket listener with a context.
func DialContext(ctx context.Context, url string, opts ...Option) (*Client, error) {
	c := &Client{
		url:        url,
		codec:      listener.GetCodec(listener.CodecNameJSON),
		queue:      crontab.DefaultConfig().DefaultQueue,
		logger:     slog.Default(),
		maxRetries: 5,
		baseDelay:  time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("crontab/client: dial: %w", err)
	}
	c.conn = conn
	c.logger.Debug("crontab client connected",
		slog.String("url", url),
		slog.String("format", c.codec.Name()),
	)
	return c, nil
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	conn, _, _, err := ws.Dial(ctx, c.url)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// Submit sends r and waits for the reply. A rejected request returns an
// error wrapping crontab.ErrRejected.
func (c *Client) Submit(ctx context.Context, r *listener.Request) error {
	data, err := c.codec.Encode(r)
	if err != nil {
		return fmt.Errorf("crontab/client: encode: %w", err)
	}

	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	if c.closed.Load() {
		return crontab.ErrClientClosed
	}
	conn := c.current()
	if conn == nil {
		if conn, err = c.redial(ctx); err != nil {
			return err
		}
	}

	reply, err := c.roundTrip(ctx, conn, data)
	if err != nil {
		// The stream is out of step after a failed exchange.
		c.drop(conn)
		if c.closed.Load() {
			return crontab.ErrClientClosed
		}
		return fmt.Errorf("crontab/client: submit %s: %w", r.Name, err)
	}

	switch reply {
	case crontab.ReplySuccess:
		return nil
	case crontab.ReplyError:
		return fmt.Errorf("crontab/client: submit %s: %w", r.Name, crontab.ErrRejected)
	default:
		return fmt.Errorf("crontab/client: submit %s: unexpected reply %q", r.Name, reply)
	}
}

func (c *Client) current() net.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

func (c *Client) drop(conn net.Conn) {
	_ = conn.Close()
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
}

func (c *Client) roundTrip(ctx context.Context, conn net.Conn, data []byte) (string, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{}) //nolint:errcheck // best effort reset
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	op := ws.OpText
	if c.codec.Name() == listener.CodecNameMsgpack {
		op = ws.OpBinary
	}
	if err := wsutil.WriteClientMessage(conn, op, data); err != nil {
		return "", c.ctxErr(ctx, fmt.Errorf("write: %w", err))
	}
	reply, _, err := wsutil.ReadServerData(conn)
	if err != nil {
		return "", c.ctxErr(ctx, fmt.Errorf("read: %w", err))
	}
	return string(reply), nil
}

// ctxErr prefers the context error when the deadline was forced by ctx.
func (c *Client) ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// redial reconnects with exponential backoff. Callers hold c.reqMu.
func (c *Client) redial(ctx context.Context) (net.Conn, error) {
	if !c.reconnect {
		return nil, crontab.ErrClientClosed
	}

	delay := c.baseDelay
	var lastErr error
	for i := range c.maxRetries {
		conn, err := c.dial(ctx)
		if err == nil {
			c.connMu.Lock()
			if c.closed.Load() {
				c.connMu.Unlock()
				_ = conn.Close()
				return nil, crontab.ErrClientClosed
			}
			c.conn = conn
			c.connMu.Unlock()
			c.logger.Info("crontab client reconnected", slog.Int("attempt", i+1))
			return conn, nil
		}
		lastErr = err
		c.logger.Warn("crontab client reconnect failed",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay = min(delay*2, 30*time.Second)
	}
	return nil, fmt.Errorf("crontab/client: reconnect: %w", errors.Join(crontab.ErrClientClosed, lastErr))
}

// Close closes the connection. Further requests fail with
// crontab.ErrClientClosed.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
