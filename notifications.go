package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// event is pushed to connected clients.
type event struct {
	Type string `json:"type"` // "info" | "companion"
	From int    `json:"from,omitempty"`
	Data any    `json:"data,omitempty"`
}

type client struct {
	userID int
	conn   *websocket.Conn
	send   chan event
}

// hub fans events out to every socket a user has open.
type hub struct {
	clientsByUser map[int]map[*client]bool
	mu            sync.RWMutex
}

func newHub() *hub {
	return &hub{clientsByUser: make(map[int]map[*client]bool)}
}

func (h *hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clientsByUser[c.userID] == nil {
		h.clientsByUser[c.userID] = make(map[*client]bool)
	}
	h.clientsByUser[c.userID][c] = true
}

func (h *hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if peers, ok := h.clientsByUser[c.userID]; ok {
		if peers[c] {
			delete(peers, c)
			close(c.send)
		}
		if len(peers) == 0 {
			delete(h.clientsByUser, c.userID)
		}
	}
}

// sendToUser never blocks; a client whose buffer is full misses the event.
func (h *hub) sendToUser(userID int, evt event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clientsByUser[userID] {
		select {
		case c.send <- evt:
		default:
		}
	}
}

func (h *hub) connected(userID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clientsByUser[userID])
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// any origin, the token authenticates the socket
	CheckOrigin: func(r *http.Request) bool { return true },
}

// GET /ws/notifications
func (s *server) notificationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.userIDFromRequest(r, true)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Warn("websocket upgrade failed", zap.Int("user_id", userID), zap.Error(err))
			return
		}

		c := &client{userID: userID, conn: conn, send: make(chan event, 16)}
		c.send <- event{Type: "info", Data: "connected"}
		s.hub.register(c)

		go s.writePump(c)
		s.readPump(c)
	}
}

// readPump only services control frames; clients have nothing to say.
func (s *server) readPump(c *client) {
	defer func() {
		s.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("notification socket closed", zap.Int("user_id", c.userID), zap.Error(err))
			}
			return
		}
	}
}

func (s *server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case evt, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
