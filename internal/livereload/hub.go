package livereload

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/vango-dev/devstatic/internal/metrics"
)

// Client is a connected notification peer.
type Client interface {
	// ID identifies the client within the hub.
	ID() string

	// Send delivers one message. Implementations must be safe to call from
	// several goroutines.
	Send(msg any) error
}

// Hub is the registry of connected clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]Client

	serverName string
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithMetrics sets the collectors broadcasts are counted in.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

// WithServerName sets the name announced in the hello handshake.
func WithServerName(name string) Option {
	return func(h *Hub) {
		h.serverName = name
	}
}

// New creates an empty Hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[string]Client),
		serverName: "devstatic",
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default().With("component", "livereload")
	}
	return h
}

// Register adds c to the registry, replacing any client with the same id.
func (h *Hub) Register(c Client) {
	h.mu.Lock()
	_, replaced := h.clients[c.ID()]
	h.clients[c.ID()] = c
	h.mu.Unlock()

	if !replaced {
		h.metrics.RecordClientConnect()
	}
	h.logger.Debug("client connected", "id", c.ID())
}

// Unregister removes the client with id. Unknown ids are ignored.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	_, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()

	if ok {
		h.metrics.RecordClientDisconnect()
		h.logger.Debug("client disconnected", "id", id)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Clients returns the ids of connected clients, sorted.
func (h *Hub) Clients() []string {
	h.mu.RLock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// BroadcastAll sends msg to every connected client.
func (h *Hub) BroadcastAll(msg any) {
	h.broadcast("all", "", msg)
}

// BroadcastExcept sends msg to every connected client except senderID.
func (h *Hub) BroadcastExcept(senderID string, msg any) {
	h.broadcast("except", senderID, msg)
}

// AssetCompiled broadcasts a reload for ev to every client.
// It is the hub's single subscription to asset compiled events.
func (h *Hub) AssetCompiled(ev AssetEvent) {
	h.metrics.RecordAssetEvent(ev.Type)
	h.logger.Info("asset compiled", "type", ev.Type, "name", ev.Name, "clients", h.ClientCount())
	h.BroadcastAll(NewReloadMessage(ev.Path()))
}

// broadcast sends outside the lock; a failing client is logged and skipped,
// it stays registered until its transport reports the disconnect.
func (h *Hub) broadcast(kind, exclude string, msg any) {
	h.mu.RLock()
	targets := make([]Client, 0, len(h.clients))
	for id, c := range h.clients {
		if exclude != "" && id == exclude {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered, failed := 0, 0
	for _, c := range targets {
		if err := c.Send(msg); err != nil {
			failed++
			h.logger.Warn("send failed", "id", c.ID(), "error", err)
			continue
		}
		delivered++
	}
	h.metrics.RecordBroadcast(kind, delivered, failed)
}
