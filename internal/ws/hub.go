package ws

import (
	"log/slog"
	"strings"
	"sync"

	"landmarket/internal/metrics"
	"landmarket/internal/stream"
)

// Hub tracks connected clients and hands them subscriptions on the change
// stream.
type Hub struct {
	broker stream.Broker
	log    *slog.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub(broker stream.Broker, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		broker:  broker,
		log:     log,
		clients: make(map[*Client]struct{}),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Inc()
	h.log.Debug("ws client connected", "user_id", c.UserID, "clients", n)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		metrics.WSConnections.Dec()
		h.log.Debug("ws client disconnected", "user_id", c.UserID)
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.close()
	}
}

// defaultTopics are subscribed for every connection.
func defaultTopics(userID string) []string {
	return []string{
		stream.TopicLobby,
		stream.AccountTopic(userID),
		stream.OffersTopic(userID),
	}
}

// allowed reports whether userID may follow topic. Account and offer topics
// are private to their user; auctions and parcels are public.
func allowed(userID, topic string) bool {
	if kind, id, ok := strings.Cut(topic, ":"); ok && id != "" && (kind == "auction" || kind == "land") {
		return true
	}
	return topic == stream.TopicLobby ||
		topic == stream.AccountTopic(userID) ||
		topic == stream.OffersTopic(userID)
}
