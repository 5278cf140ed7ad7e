// Package ws implements the dashboard WebSocket hub: it rebroadcasts the
// broker's position_updates_channel and allocations stream to connected
// operator dashboards (SPEC_FULL.md §6's "dashboard push channel").
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/riftline/tradecore/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256

	allocationPollInterval = 15 * time.Second
)

// positionUpdatesTopic mirrors internal/position's outbound topic name.
const positionUpdatesTopic = "position_updates_channel"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client represents a single connected dashboard.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub bridges the broker's position_updates_channel pub/sub topic and the
// allocations stream to every connected WebSocket client; every client
// receives every message, there is no per-client channel filtering.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	broker     domain.Broker
	mu         sync.RWMutex
	logger     *slog.Logger
	startedAt  time.Time
}

// NewHub creates a new dashboard WebSocket hub backed by broker.
func NewHub(broker domain.Broker, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		broker:     broker,
		logger:     logger.With(slog.String("component", "ws_hub")),
		startedAt:  time.Now().UTC(),
	}
}

// Run starts the hub's event loop: it subscribes to position_updates_channel,
// polls the allocations stream, and fans both out to every connected client.
// It blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	go h.subscribePositions(ctx)
	go h.pollAllocations(ctx)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", slog.Int("total_clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", slog.Int("total_clients", n))

		case data := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					h.logger.Warn("dropping message for slow client")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// subscribePositions forwards every position_updates_channel message onto
// the broadcast channel, wrapped in an envelope naming its type.
func (h *Hub) subscribePositions(ctx context.Context) {
	msgCh, err := h.broker.Subscribe(ctx, positionUpdatesTopic)
	if err != nil {
		h.logger.Error("subscribe position_updates_channel failed", slog.String("error", err.Error()))
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-msgCh:
			if !ok {
				return
			}
			h.forward("position_update", raw)
		}
	}
}

// pollAllocations reads the most recent allocations stream entry on a fixed
// interval and forwards it. A poll loop is used rather than a blocking
// stream read because XREAD here would otherwise contend with the
// executor's own consumer loop on the same stream.
func (h *Hub) pollAllocations(ctx context.Context) {
	ticker := time.NewTicker(allocationPollInterval)
	defer ticker.Stop()
	lastID := "0"
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var latest *domain.StreamMessage
			for {
				msgs, err := h.broker.StreamRead(ctx, "allocations", lastID, 100, 0)
				if err != nil {
					h.logger.Warn("poll allocations failed", slog.String("error", err.Error()))
					break
				}
				if len(msgs) == 0 {
					break
				}
				latest = &msgs[len(msgs)-1]
				lastID = latest.ID
			}
			if latest != nil {
				h.forward("allocation_snapshot", latest.Payload)
			}
		}
	}
}

func (h *Hub) forward(kind string, payload []byte) {
	envelope, err := json.Marshal(struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}{Type: kind, Payload: payload})
	if err != nil {
		h.logger.Warn("marshal envelope failed", slog.String("error", err.Error()))
		return
	}
	select {
	case h.broadcast <- envelope:
	default:
		h.logger.Warn("broadcast channel full, dropping message", slog.String("type", kind))
	}
}

// HandleWS upgrades the request to a WebSocket connection and registers the
// client with the hub.
//
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBufferSize)}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

// readPump drains and discards client frames; this hub is push-only but must
// still read to process control frames (ping/pong/close) and detect
// disconnects.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
