package feed

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"odds_grid/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	hubWriteTimeout = 2 * time.Second
	hubPingInterval = 30 * time.Second
)

// Hub fans odds change envelopes out to connected websocket clients.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*websocket.Conn

	connections prometheus.Gauge
	sent        prometheus.Counter
}

// NewHub creates a hub and registers its collectors with reg.
func NewHub(reg prometheus.Registerer) (*Hub, error) {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*websocket.Conn),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feed_ws_connections",
			Help: "Connected websocket clients",
		}),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_ws_messages_sent_total",
			Help: "Odds change messages written to websocket clients",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{h.connections, h.sent} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return h, nil
}

// ServeHTTP upgrades the request and keeps the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", slog.Any("error", err))
		return
	}

	id := uuid.NewString()
	h.add(id, conn)

	// Clients only listen; reading detects the close.
	go func() {
		defer h.remove(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) add(id string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[id] = conn
	h.connections.Inc()
	slog.Info("Websocket client connected", slog.String("client_id", id))
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(id)
}

func (h *Hub) removeLocked(id string) {
	conn, ok := h.clients[id]
	if !ok {
		return
	}
	_ = conn.Close()
	delete(h.clients, id)
	h.connections.Dec()
	slog.Info("Websocket client disconnected", slog.String("client_id", id))
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast writes ev to every client. Clients that fail the write are dropped.
func (h *Hub) Broadcast(ev domain.OddsChangeEvent) error {
	msg, err := EncodeEvent(ev)
	if err != nil {
		return err
	}
	h.writeAll(websocket.TextMessage, msg)
	return nil
}

func (h *Hub) writeAll(messageType int, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		c.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
		if err := c.WriteMessage(messageType, msg); err != nil {
			slog.Warn("Websocket write failed", slog.String("client_id", id), slog.Any("error", err))
			h.removeLocked(id)
			continue
		}
		if messageType == websocket.TextMessage {
			h.sent.Inc()
		}
	}
}

// RunPinger keeps idle clients alive until ctx ends.
func (h *Hub) RunPinger(ctx context.Context) {
	ticker := time.NewTicker(hubPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.writeAll(websocket.PingMessage, nil)
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		h.removeLocked(id)
	}
}
