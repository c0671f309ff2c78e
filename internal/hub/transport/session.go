// Package transport wraps a WebSocket connection into a session with
// decoupled inbound/outbound queues, per §4.1. Grounded in shape on
// original_source/src-tauri/src/utils/ws.rs's WebSocketFuture (tolerant
// JSON reads, fatal binary frames, ping/pong transparency) and on the
// teacher's two-task-per-connection idiom; the transport itself uses
// gorilla/websocket rather than the teacher's SIP-only stack.
package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// CloseReason explains why a session ended, for logging.
type CloseReason string

const (
	CloseReasonRemote             CloseReason = "remote close"
	CloseReasonLocal              CloseReason = "local close"
	CloseReasonUnexpectedBinary   CloseReason = "unexpected binary message"
	CloseReasonWriteFailure       CloseReason = "write failure"
)

// Session wraps one WebSocket connection. Callers read decoded frames
// from Inbound() and enqueue frames to send via Send(); Session owns
// the reader/writer goroutines and the socket itself.
type Session struct {
	ID   string
	conn *websocket.Conn
	addr string

	inbound  *UnboundedQueue[json.RawMessage]
	outbound *UnboundedQueue[any]

	closeOnce sync.Once
	closed    chan struct{}
	onClose   func(reason CloseReason)
}

// New wraps an accepted connection and starts its reader/writer tasks.
func New(conn *websocket.Conn) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		conn:     conn,
		addr:     conn.RemoteAddr().String(),
		inbound:  NewUnboundedQueue[json.RawMessage](),
		outbound: NewUnboundedQueue[any](),
		closed:   make(chan struct{}),
	}
	go s.readLoop()
	go s.writeLoop()
	return s
}

// RemoteAddr is the socket's peer address.
func (s *Session) RemoteAddr() string { return s.addr }

// Inbound delivers decoded application messages in arrival order.
func (s *Session) Inbound() <-chan json.RawMessage { return s.inbound.Out() }

// Send enqueues a value for outbound serialization; never blocks.
func (s *Session) Send(v any) { s.outbound.Push(v) }

// OnClose registers a callback invoked once, after the session's
// sockets are fully torn down.
func (s *Session) OnClose(fn func(reason CloseReason)) { s.onClose = fn }

// Done is closed once the session has fully terminated.
func (s *Session) Done() <-chan struct{} { return s.closed }

// Close drops the outbound queue, which the writer observes as
// end-of-stream; it then closes the socket, which unblocks the reader.
func (s *Session) Close() {
	s.terminate(CloseReasonLocal)
}

func (s *Session) terminate(reason CloseReason) {
	s.closeOnce.Do(func() {
		s.outbound.Close()
		s.inbound.Close()
		_ = s.conn.Close()
		close(s.closed)
		if s.onClose != nil {
			s.onClose(reason)
		}
	})
}

func (s *Session) readLoop() {
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if isConnectionReset(err) {
				slog.Warn("[Transport] connection reset", "session_id", s.ID)
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("[Transport] unexpected close", "session_id", s.ID, "error", err)
			} else if !errors.Is(err, websocket.ErrCloseSent) {
				slog.Debug("[Transport] read ended", "session_id", s.ID, "error", err)
			}
			s.terminate(CloseReasonRemote)
			return
		}

		if msgType == websocket.BinaryMessage {
			slog.Warn("[Transport] unexpected binary message, closing session", "session_id", s.ID)
			s.terminate(CloseReasonUnexpectedBinary)
			return
		}
		if msgType != websocket.TextMessage {
			continue // ping/pong are handled transparently by gorilla's control-frame handlers
		}

		if !json.Valid(data) {
			slog.Warn("[Transport] dropped malformed JSON frame", "session_id", s.ID)
			continue
		}
		s.inbound.Push(json.RawMessage(data))
	}
}

func (s *Session) writeLoop() {
	defer func() {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}()

	for v := range s.outbound.Out() {
		data, err := json.Marshal(v)
		if err != nil {
			slog.Error("[Transport] failed to serialize outbound message, dropping", "session_id", s.ID, "error", err)
			continue
		}
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			if isConnectionReset(err) {
				slog.Warn("[Transport] write: connection reset", "session_id", s.ID)
			} else {
				slog.Error("[Transport] write failed", "session_id", s.ID, "error", err)
			}
			s.terminate(CloseReasonWriteFailure)
			return
		}
	}
}

func isConnectionReset(err error) bool {
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return errors.Is(netErr.Err, syscall.ECONNRESET)
	}
	return errors.Is(err, syscall.ECONNRESET)
}
