// Package transport carries chat events over WebSocket connections and
// drives the session manager with connection lifecycle events.
package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sealor/chat-relay/pkg/relay"
)

// Envelope frames every event on the wire, in either direction.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

const sendBuffer = 16

// Server upgrades HTTP requests to WebSocket connections, assigns each
// one a session ID and relays events between the connection and the
// session manager. It implements relay.Emitter for the outbound
// direction.
type Server struct {
	manager  *relay.Manager
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu    sync.RWMutex
	conns map[string]*conn
}

type conn struct {
	ws   *websocket.Conn
	send chan Envelope
}

func NewServer(manager *relay.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		manager: manager,
		upgrader: websocket.Upgrader{
			// The original service served an open CORS policy; any
			// Origin may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
		conns:  make(map[string]*conn),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "error", err)
		return
	}

	sessionID := uuid.NewString()
	c := &conn{ws: ws, send: make(chan Envelope, sendBuffer)}

	s.mu.Lock()
	s.conns[sessionID] = c
	s.mu.Unlock()

	go c.writeLoop(s.logger)

	s.manager.OnConnect(sessionID)
	s.readLoop(r, sessionID, c)

	s.mu.Lock()
	delete(s.conns, sessionID)
	close(c.send)
	s.mu.Unlock()

	s.manager.OnDisconnect(sessionID)
}

// readLoop decodes inbound envelopes until the connection drops.
// Messages are handed to the manager synchronously, so one connection
// never has two turns in flight.
func (s *Server) readLoop(r *http.Request, sessionID string, c *conn) {
	defer c.ws.Close()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("read failed", "session", sessionID, "error", err)
			}
			return
		}

		var envelope Envelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			s.logger.Debug("malformed envelope", "session", sessionID, "error", err)
			continue
		}

		switch envelope.Event {
		case relay.EventChatMessage:
			var msg relay.ChatMessage
			if err := json.Unmarshal(envelope.Data, &msg); err != nil {
				// Malformed payloads are dropped without a reply.
				s.logger.Debug("malformed chat message", "session", sessionID, "error", err)
				continue
			}
			s.manager.OnUserMessage(r.Context(), sessionID, msg.Text)
		default:
			s.logger.Debug("unknown event", "session", sessionID, "event", envelope.Event)
		}
	}
}

// Emit queues an event for one session's connection. Events for unknown
// sessions are dropped; a connection that cannot keep up loses the
// event rather than blocking the turn.
func (s *Server) Emit(sessionID, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("marshal event", "session", sessionID, "event", event, "error", err)
		return
	}

	// The send stays under the read lock so it cannot overlap the
	// channel close during teardown.
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conns[sessionID]
	if !ok {
		return
	}

	select {
	case c.send <- Envelope{Event: event, Data: data}:
	default:
		s.logger.Warn("dropping event for slow connection", "session", sessionID, "event", event)
	}
}

func (c *conn) writeLoop(logger *slog.Logger) {
	for envelope := range c.send {
		if err := c.ws.WriteJSON(envelope); err != nil {
			logger.Debug("write failed", "error", err)
			return
		}
	}
	c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
