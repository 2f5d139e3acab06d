package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/atendimento-dp/feedbackform/internal/form"
	"github.com/atendimento-dp/feedbackform/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// Message types exchanged over /ws
const (
	MessageUpdate = "update"
	MessageSubmit = "submit"
	MessageReset  = "reset"
	MessageState  = "state"
	MessageError  = "error"
)

// ClientMessage is a message sent by the browser
type ClientMessage struct {
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
}

// StateMessage carries a form snapshot to the browser. Cleared is set only
// on the message reporting a successful submission, the one time the
// browser should copy the (now empty) record back into its inputs.
type StateMessage struct {
	Type    string `json:"type"`
	Cleared bool   `json:"cleared,omitempty"`
	form.Snapshot
}

// ErrorMessage reports a rejected client message. It never carries
// submission failures; those travel in StateMessage.Error.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// session is one live form: a WebSocket connection and its own manager
type session struct {
	ctx     context.Context
	id      string
	conn    *websocket.Conn
	manager *form.Manager
	sender  form.Sender

	// lastState is only touched by the OnChange listener
	lastState form.State

	writeMu sync.Mutex
	closed  bool
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	sess := &session{
		ctx:     r.Context(),
		id:      uuid.NewString(),
		conn:    conn,
		manager: form.NewManager(),
		sender:  s.sender,
	}

	s.addSession(sess)
	defer s.removeSession(sess)

	closeGauge := s.metrics.SessionOpened()
	defer closeGauge()

	logging.Info("Form session opened",
		zap.String("session_id", sess.id),
		zap.String("remote_addr", r.RemoteAddr),
	)

	sess.run()

	logging.Info("Form session closed", zap.String("session_id", sess.id))
}

// run serves the session until the peer disconnects or the server closes it
func (sess *session) run() {
	defer sess.close()

	sess.conn.SetReadLimit(maxMessageSize)
	_ = sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	initial := sess.manager.Snapshot()
	sess.lastState = initial.State
	sess.manager.OnChange(func(snap form.Snapshot) {
		cleared := snap.State == form.StateSubmitted && sess.lastState != form.StateSubmitted
		sess.lastState = snap.State
		sess.write(StateMessage{Type: MessageState, Cleared: cleared, Snapshot: snap})
	})
	sess.write(StateMessage{Type: MessageState, Snapshot: initial})

	stop := make(chan struct{})
	defer close(stop)
	go sess.pingLoop(stop)

	for {
		messageType, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Info("Form session read failed",
					zap.String("session_id", sess.id),
					zap.Error(err),
				)
			}
			return
		}

		logging.LogWebSocketMessage(sess.id, "received", messageType, data)
		if messageType != websocket.TextMessage {
			sess.write(ErrorMessage{Type: MessageError, Message: "expected a text message"})
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sess.write(ErrorMessage{Type: MessageError, Message: "invalid JSON message"})
			continue
		}
		sess.handle(msg)
	}
}

func (sess *session) handle(msg ClientMessage) {
	switch msg.Type {
	case MessageUpdate:
		if err := sess.manager.UpdateField(msg.Field, msg.Value); err != nil {
			sess.write(ErrorMessage{Type: MessageError, Message: err.Error()})
		}

	case MessageSubmit:
		// The task pushes its own state messages through OnChange.
		// Closing the tab does not abort it.
		if _, err := sess.manager.Start(sess.ctx, sess.sender); err != nil {
			if errors.Is(err, form.ErrBusy) {
				logging.Debug("Submit ignored while busy", zap.String("session_id", sess.id))
			}
			sess.write(StateMessage{Type: MessageState, Snapshot: sess.manager.Snapshot()})
		}

	case MessageReset:
		if err := sess.manager.Reset(); err != nil {
			sess.write(StateMessage{Type: MessageState, Snapshot: sess.manager.Snapshot()})
		}

	default:
		sess.write(ErrorMessage{Type: MessageError, Message: "unknown message type: " + msg.Type})
	}
}

func (sess *session) pingLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			sess.writeMu.Lock()
			err := sess.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			sess.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// write sends v as a JSON text message. Errors end the session through the
// read loop, so they are only logged.
func (sess *session) write(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error("Failed to encode session message", zap.Error(err))
		return
	}

	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	if sess.closed {
		return
	}

	_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := sess.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logging.Debug("Failed to write session message",
			zap.String("session_id", sess.id),
			zap.Error(err),
		)
		return
	}
	logging.LogWebSocketMessage(sess.id, "sent", websocket.TextMessage, data)
}

// close sends a close frame and releases the connection. Safe to call twice.
func (sess *session) close() {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	if sess.closed {
		return
	}
	sess.closed = true

	_ = sess.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	_ = sess.conn.Close()
}
