// Package realtime serves live leaderboard sessions over WebSocket. Each
// connection owns its own leaderboard view; filter messages from the
// client drive it and every state change is pushed back.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mbd888/trustboard/internal/fetch"
	"github.com/mbd888/trustboard/internal/logging"
	"github.com/mbd888/trustboard/internal/metrics"
	"github.com/mbd888/trustboard/internal/view"
)

// normalCloseCodes are WebSocket close codes that indicate an expected disconnect.
var normalCloseCodes = []int{
	websocket.CloseNormalClosure,
	websocket.CloseGoingAway,
	websocket.CloseNoStatusReceived,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Allow non-browser clients
		}
		host := r.Host
		return origin == "http://"+host || origin == "https://"+host
	},
}

// DefaultMaxClients caps concurrent sessions when none is configured.
const DefaultMaxClients = 1000

// EventLeaderboard is the type of every pushed frame.
const EventLeaderboard = "leaderboard"

// Event is one frame sent to the client.
type Event struct {
	Type      string                `json:"type"`
	SessionID string                `json:"session_id"`
	Timestamp time.Time             `json:"timestamp"`
	Data      view.LeaderboardModel `json:"data"`
}

// Message is a client request. Without a type it is a filter update where
// absent fields keep their current value.
type Message struct {
	Type      string  `json:"type,omitempty"` // "filter", "select" or "refresh"
	Category  *string `json:"category,omitempty"`
	Chain     *string `json:"chain,omitempty"`
	Dimension string  `json:"dimension,omitempty"`
	Value     string  `json:"value,omitempty"`
}

// Client is one live session.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	board  *view.Leaderboard
	ctx    context.Context
	cancel context.CancelFunc
	dirty  chan struct{} // coalesces state changes into one pending push
	quit   chan struct{}
	once   sync.Once
}

// Hub tracks live sessions.
type Hub struct {
	src        view.Source
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	logger     *slog.Logger
	done       chan struct{} // closed when Run exits; prevents upgrade race
	maxClients int

	// Stats
	totalPushes  atomic.Int64
	totalClients atomic.Int64
	peakClients  atomic.Int64
}

// NewHub creates a hub whose sessions read from src.
func NewHub(src view.Source, maxClients int, logger *slog.Logger) *Hub {
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}
	return &Hub{
		src:        src,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logging.Component(logger, "realtime"),
		done:       make(chan struct{}),
		maxClients: maxClients,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("realtime hub started", "max_clients", h.maxClients)
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("realtime hub shutting down, closing client connections")
			h.mu.Lock()
			for client := range h.clients {
				client.stop()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			metrics.ActiveWebSocketClients.Set(0)
			h.logger.Info("realtime hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalClients.Add(1)
			if current := int64(len(h.clients)); current > h.peakClients.Load() {
				h.peakClients.Store(current)
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.ActiveWebSocketClients.Set(float64(n))
			h.logger.Info("client connected", "session", client.id, "total", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.stop()
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.ActiveWebSocketClients.Set(float64(n))
			h.logger.Info("client disconnected", "session", client.id, "total", n)
		}
	}
}

// Stats returns hub statistics
func (h *Hub) Stats() map[string]any {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]any{
		"connectedClients": len(h.clients),
		"maxClients":       h.maxClients,
		"totalPushes":      h.totalPushes.Load(),
		"totalClients":     h.totalClients.Load(),
		"peakClients":      h.peakClients.Load(),
	}
}

// HandleWebSocket upgrades the request and starts a leaderboard session.
// The initial filter comes from the category and chain query parameters.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	h.mu.RLock()
	n := len(h.clients)
	h.mu.RUnlock()
	if n >= h.maxClients {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(logging.WithRequestID(context.Background(), id))
	initial := fetch.Filter{Category: r.URL.Query().Get("category"), Chain: r.URL.Query().Get("chain")}
	client := &Client{
		id:     id,
		hub:    h,
		conn:   conn,
		board:  view.NewLeaderboard(h.src, h.logger.With("session", id), initial),
		ctx:    ctx,
		cancel: cancel,
		dirty:  make(chan struct{}, 1),
		quit:   make(chan struct{}),
	}
	client.board.OnChange(client.markDirty)

	select {
	case h.register <- client:
	case <-h.done:
		cancel()
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
	client.board.Activate(ctx)
}

func (c *Client) markDirty() {
	select {
	case c.dirty <- struct{}{}:
	default:
	}
}

func (c *Client) stop() {
	c.once.Do(func() {
		c.cancel()
		c.board.Close()
		close(c.quit)
	})
}

// handle applies one client message to the session's leaderboard.
func (c *Client) handle(msg Message) {
	switch msg.Type {
	case "refresh":
		c.board.Activate(c.ctx)
	case "select":
		c.board.Select(fetch.Dimension(msg.Dimension), msg.Value)
	default:
		f := c.board.Filter()
		if msg.Category != nil {
			f.Category = *msg.Category
		}
		if msg.Chain != nil {
			f.Chain = *msg.Chain
		}
		c.board.SetFilter(f)
	}
}

// readPump reads filter messages and pings.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
			c.stop()
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4 * 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, normalCloseCodes...) {
				c.hub.logger.Warn("websocket read error", "session", c.id, "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			c.hub.logger.Debug("ignoring malformed message", "session", c.id, "error", err)
			continue
		}
		c.handle(msg)
	}
}

// writePump pushes the latest model whenever the session changes.
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.quit:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-c.dirty:
			frame, err := json.Marshal(Event{
				Type:      EventLeaderboard,
				SessionID: c.id,
				Timestamp: time.Now().UTC(),
				Data:      c.board.Model(),
			})
			if err != nil {
				c.hub.logger.Error("failed to encode leaderboard frame", "session", c.id, "error", err)
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.hub.logger.Warn("websocket write error", "session", c.id, "error", err)
				return
			}
			c.hub.totalPushes.Add(1)

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.logger.Debug("websocket ping failed", "session", c.id, "error", err)
				return
			}
		}
	}
}
