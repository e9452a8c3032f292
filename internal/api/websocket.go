package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/volumod/tracker/internal/auth"
	"github.com/volumod/tracker/internal/notify"
	"github.com/volumod/tracker/internal/record"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4 * 1024
)

// WSMessage is a client-to-server WebSocket message.
type WSMessage struct {
	Type  string `json:"type"`            // subscribe, unsubscribe, ping
	Scope string `json:"scope,omitempty"` // "mine" (default) or "all"
}

// WSHandler manages WebSocket notification streams.
type WSHandler struct {
	upgrader    websocket.Upgrader
	publisher   notify.Publisher
	connections map[*websocket.Conn]*wsConnection
	mu          sync.RWMutex
	logger      *slog.Logger
	server      *Server
}

// wsConnection tracks a single WebSocket connection.
type wsConnection struct {
	conn      *websocket.Conn
	sess      auth.Session
	mu        sync.Mutex // protects scope, eventChan, unsubscribed
	scope     string
	eventChan <-chan notify.Event
	send      chan []byte
	done      chan struct{}
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(pub notify.Publisher, server *Server, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // the dashboard is served from arbitrary origins in development
			},
		},
		publisher:   pub,
		connections: make(map[*websocket.Conn]*wsConnection),
		logger:      logger,
		server:      server,
	}
}

// handleWebSocket authenticates the upgrade request and hands the
// connection to the WSHandler. Browsers cannot set headers on upgrade,
// so the token arrives as a query parameter.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionForToken(r.URL.Query().Get("token"))
	if !ok {
		JSONError(w, "invalid or expired session", http.StatusUnauthorized)
		return
	}
	s.wsHandler.serve(w, r, sess)
}

func (h *WSHandler) serve(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &wsConnection{
		conn: conn,
		sess: sess,
		send: make(chan []byte, 64),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.connections[conn] = c
	h.mu.Unlock()

	// Every connection starts on its own feed.
	h.subscribe(c, "mine")

	go h.readPump(c)
	go h.writePump(c)
}

// readPump reads messages from the WebSocket connection.
func (h *WSHandler) readPump(c *wsConnection) {
	defer h.closeConnection(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("websocket read error", "error", err)
			}
			return
		}
		h.handleMessage(c, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (h *WSHandler) writePump(c *wsConnection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// Drain any queued messages as separate frames.
			n := len(c.send)
			for i := 0; i < n; i++ {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					return
				}
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming WebSocket messages.
func (h *WSHandler) handleMessage(c *wsConnection, data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(c, "invalid message format")
		return
	}

	switch msg.Type {
	case "subscribe":
		scope := msg.Scope
		if scope == "" {
			scope = "mine"
		}
		h.subscribe(c, scope)
	case "unsubscribe":
		h.unsubscribe(c)
	case "ping":
		h.sendJSON(c, map[string]any{"type": "pong"})
	default:
		h.sendError(c, "unknown message type: "+msg.Type)
	}
}

// subscribe switches the connection onto its own feed or, for managers,
// the facility-wide stream.
func (h *WSHandler) subscribe(c *wsConnection, scope string) {
	userID := c.sess.UserID
	if scope == "all" {
		if c.sess.Role != record.RoleManager {
			h.sendError(c, "the facility-wide stream requires the manager role")
			return
		}
		userID = notify.GlobalUserID
	}

	h.unsubscribe(c)

	c.mu.Lock()
	c.scope = userID
	c.eventChan = h.publisher.Subscribe(userID)
	c.mu.Unlock()

	go h.forwardEvents(c)
	h.sendJSON(c, map[string]any{"type": "subscribed", "scope": scope})
	h.logger.Debug("websocket subscribed", "user", c.sess.UserID, "scope", scope)
}

// unsubscribe detaches the connection from its current feed.
func (h *WSHandler) unsubscribe(c *wsConnection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.scope != "" && c.eventChan != nil {
		h.publisher.Unsubscribe(c.scope, c.eventChan)
		c.scope = ""
		c.eventChan = nil
	}
}

// forwardEvents pushes publisher events onto the send channel until the
// subscription or connection ends.
func (h *WSHandler) forwardEvents(c *wsConnection) {
	c.mu.Lock()
	ch := c.eventChan
	c.mu.Unlock()
	if ch == nil {
		return
	}

	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(map[string]any{"type": "event", "event": ev})
			if err != nil {
				continue
			}
			select {
			case c.send <- payload:
			default:
				// Slow consumer; the durable feed catches them up.
			}
		}
	}
}

func (h *WSHandler) sendJSON(c *wsConnection, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (h *WSHandler) sendError(c *wsConnection, message string) {
	h.sendJSON(c, map[string]any{"type": "error", "error": message})
}

// closeConnection tears down a connection's subscription and state.
func (h *WSHandler) closeConnection(c *wsConnection) {
	h.unsubscribe(c)

	h.mu.Lock()
	if _, ok := h.connections[c.conn]; ok {
		delete(h.connections, c.conn)
		close(c.done)
	}
	h.mu.Unlock()

	_ = c.conn.Close()
}
