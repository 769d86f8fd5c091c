// Package feed streams the shared health and coverage state to browser views
// over a WebSocket.
//
// A connection first receives the current status and coverage snapshots and then
// every published replacement, in publication order per kind. Clients that cannot
// keep up are disconnected instead of slowing down the publishers.
package feed

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/koreanvocab/vocab-dashboard/internal/coverage"
	"github.com/koreanvocab/vocab-dashboard/internal/health"
)

// Message types
const (
	TypeStatus   = "status"
	TypeCoverage = "coverage"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames
	maxMessageSize = 512

	// Messages queued per client before it is considered too slow
	sendBuffer = 64
)

// Message is the envelope of every frame sent to a client
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// StatusSource is the health state the feed mirrors.
type StatusSource interface {
	Snapshot() health.Snapshot
	Subscribe(fn func(health.Snapshot)) (unsubscribe func())
}

// CoverageSource is the coverage state the feed mirrors.
type CoverageSource interface {
	State() coverage.SyncState
	Subscribe(fn func(coverage.SyncState)) (unsubscribe func())
}

// Option configures the feed handler
type Option func(*Handler)

// WithAllowedOrigins restricts the Origin header of upgrade requests.
// "*" allows any origin. Without it only same-origin requests are accepted.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) {
		h.upgrader.CheckOrigin = checkOrigin(origins)
	}
}

// Handler upgrades requests and fans state changes out to the connected clients.
type Handler struct {
	status   StatusSource
	coverage CoverageSource
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[uuid.UUID]*client
}

// NewHandler creates a feed over the given state sources
func NewHandler(status StatusSource, cov CoverageSource, opts ...Option) *Handler {
	h := &Handler{
		status:   status,
		coverage: cov,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[uuid.UUID]*client),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// ServeHTTP handles GET /ws. It returns when the client disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already replied to the client
		slog.Warn("Failed to upgrade WebSocket connection", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	c := &client{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	// Subscribing and queueing the snapshots under the client lock keeps a
	// replacement published in between from overtaking its own snapshot.
	c.mu.Lock()
	unsubStatus := h.status.Subscribe(func(s health.Snapshot) { c.enqueue(TypeStatus, s) })
	unsubCoverage := h.coverage.Subscribe(func(s coverage.SyncState) { c.enqueue(TypeCoverage, s) })
	c.queueLocked(TypeStatus, h.status.Snapshot())
	c.queueLocked(TypeCoverage, h.coverage.State())
	c.mu.Unlock()

	count := h.register(c)
	slog.Info("Feed client connected", "client_id", c.id, "remote_addr", r.RemoteAddr, "clients", count)

	go c.writePump()
	c.readPump()

	unsubStatus()
	unsubCoverage()
	c.close()

	count = h.unregister(c)
	slog.Info("Feed client disconnected", "client_id", c.id, "clients", count)
}

// Clients returns the number of connected clients
func (h *Handler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client. http.Server.Shutdown does not close hijacked
// connections, so serve calls this during shutdown.
func (h *Handler) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Handler) register(c *client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	return len(h.clients)
}

func (h *Handler) unregister(c *client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.id)
	return len(h.clients)
}

type client struct {
	id   uuid.UUID
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// enqueue runs on the publishing goroutine and never blocks on the network.
func (c *client) enqueue(msgType string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queueLocked(msgType, payload)
}

func (c *client) queueLocked(msgType string, payload any) {
	if c.closed {
		return
	}

	data, err := json.Marshal(Message{Type: msgType, Payload: payload})
	if err != nil {
		slog.Error("Failed to marshal feed message", "type", msgType, "error", err)
		return
	}

	select {
	case c.send <- data:
	default:
		slog.Warn("Feed client too slow, disconnecting", "client_id", c.id)
		c.closeLocked()
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *client) closeLocked() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump discards client frames and keeps the read deadline fresh.
// It returns once the connection fails or is closed.
func (c *client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("Feed connection error", "client_id", c.id, "error", err)
			}
			return
		}
	}
}

// writePump is the only writer of the connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}
