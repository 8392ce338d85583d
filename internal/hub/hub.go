// Package hub fans probe results out to connected websocket observers.
package hub

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"sitewatch/internal/domain"
)

// Event is the update envelope every observer receives when a target
// finishes a probe.
type Event struct {
	Type   string `json:"type"` // always "siteUpdate"
	SiteID string `json:"siteId"`
	Data   any    `json:"data"`
}

const (
	writeWait      = 5 * time.Second
	sendBufferSize = 16
)

type client struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	quit      chan struct{}
	closeOnce sync.Once
}

// close tears the connection down. The send channel is never closed;
// concurrent broadcasters select on quit instead.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.quit)
		_ = c.conn.Close()
	})
}

// Hub keeps the registry of connected observers, at most one live
// connection per client id. Delivery is best-effort and lossy: an observer
// that cannot keep up is evicted, never waited on.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
}

func New(log *zap.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			// The API already runs behind permissive CORS; the socket
			// follows suit.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// HandleWS upgrades the request and registers the connection. The client
// id comes from the client_id query parameter when given, else the
// browser's Sec-WebSocket-Key, so a reconnecting tab replaces its dead
// predecessor instead of piling up.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("client_id")
	if id == "" {
		id = r.Header.Get("Sec-WebSocket-Key")
	}
	if id == "" {
		id = uuid.NewString()
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws_upgrade_failed", zap.Error(err))
		return
	}

	c := &client{id: id, conn: conn, send: make(chan []byte, sendBufferSize), quit: make(chan struct{})}
	h.register(c)

	go c.writePump()
	go h.readPump(c)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	prev := h.clients[c.id]
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()

	// At most one live observer per id: a new connection under a known id
	// proactively closes the old one.
	if prev != nil {
		h.log.Info("ws_replacing_connection", zap.String("client_id", c.id))
		prev.close()
	}
	h.log.Info("ws_connected", zap.String("client_id", c.id), zap.Int("total", n))
}

// unregister drops c from the registry, unless a newer connection already
// took its id.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if h.clients[c.id] == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
	c.close()
}

// readPump discards inbound frames; its job is noticing the close/error.
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.log.Debug("ws_closed", zap.String("client_id", c.id), zap.Error(err))
			return
		}
	}
}

func (c *client) writePump() {
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.quit:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

// Broadcast pushes one siteUpdate envelope to every live observer. Sends
// are non-blocking: an observer whose buffer is full gets evicted so a
// laggard can never stall the sweep.
func (h *Hub) Broadcast(siteID domain.TargetID, data any) {
	msg, err := json.Marshal(Event{Type: "siteUpdate", SiteID: string(siteID), Data: data})
	if err != nil {
		h.log.Warn("ws_marshal_error", zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- msg:
		case <-c.quit:
		default:
			h.log.Info("ws_evicting_slow_client", zap.String("client_id", c.id))
			h.unregister(c)
		}
	}
}

// Count reports the number of live observers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
