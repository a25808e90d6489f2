package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxRemoteBody caps how much of a remote response is read.
const maxRemoteBody = 1 << 20

// RemoteInvoker posts a job payload to a remote address and returns the
// response body.
type RemoteInvoker interface {
	Post(ctx context.Context, url string, payload []byte) ([]byte, error)
}

// HTTPOption configures an HTTPInvoker.
type HTTPOption func(*HTTPInvoker)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPInvoker) { h.client = c }
}

// WithHTTPTimeout bounds each remote call. A client set by WithHTTPClient
// is copied, never modified.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPInvoker) {
		c := http.Client{}
		if h.client != nil {
			c = *h.client
		}
		c.Timeout = d
		h.client = &c
	}
}

// WithContentType sets the request content type.
func WithContentType(ct string) HTTPOption {
	return func(h *HTTPInvoker) { h.contentType = ct }
}

// HTTPInvoker is a RemoteInvoker that POSTs the payload as the request
// body. The response status is ignored; only the body decides success.
type HTTPInvoker struct {
	client      *http.Client
	contentType string
}

// NewHTTPInvoker creates an HTTPInvoker with a 30s timeout.
func NewHTTPInvoker(opts ...HTTPOption) *HTTPInvoker {
	h := &HTTPInvoker{
		client:      &http.Client{Timeout: 30 * time.Second},
		contentType: "application/json",
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.client == nil {
		h.client = http.DefaultClient
	}
	return h
}

// Post implements RemoteInvoker.
func (h *HTTPInvoker) Post(ctx context.Context, url string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", h.contentType)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
