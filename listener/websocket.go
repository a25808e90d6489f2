package listener

import (
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// WSHandler upgrades HTTP requests to WebSocket and answers each frame
// with a reply token in a text frame.
type WSHandler struct {
	handler *Handler
	json    Codec
	msgpack Codec
	logger  *slog.Logger

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
}

// NewWSHandler creates a WebSocket endpoint for h.
func NewWSHandler(h *Handler) *WSHandler {
	return &WSHandler{
		handler: h,
		json:    GetCodec(CodecNameJSON),
		msgpack: GetCodec(CodecNameMsgpack),
		logger:  h.logger,
		conns:   make(map[net.Conn]struct{}),
	}
}

func (w *WSHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, rw)
	if err != nil {
		w.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	if !w.track(conn) {
		_ = conn.Close()
		return
	}
	defer w.untrack(conn)
	defer conn.Close()

	ctx := r.Context()
	for {
		data, op, err := wsutil.ReadClientData(conn)
		if err != nil {
			return
		}

		codec := w.json
		if op == ws.OpBinary {
			codec = w.msgpack
		}
		reply := w.handler.Handle(ctx, codec, data)
		if err := wsutil.WriteServerMessage(conn, ws.OpText, []byte(reply)); err != nil {
			return
		}
	}
}

// Close closes every open WebSocket connection and refuses new ones.
// http.Server.Shutdown does not track hijacked connections.
func (w *WSHandler) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	for c := range w.conns {
		_ = c.Close()
	}
	return nil
}

func (w *WSHandler) track(c net.Conn) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	w.conns[c] = struct{}{}
	return true
}

func (w *WSHandler) untrack(c net.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.conns, c)
}
