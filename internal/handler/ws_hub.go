package handler

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub tracks every live client across transports.
type Hub struct {
	mu          sync.RWMutex
	connections map[*Client]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{connections: make(map[*Client]bool)}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections, c)
}

// CloseTransport closes every client connected over transport.
func (h *Hub) CloseTransport(transport string) int {
	h.mu.RLock()
	var victims []*Client
	for c := range h.connections {
		if c.transport == transport {
			victims = append(victims, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range victims {
		c.Close()
	}
	if len(victims) > 0 {
		log.Info().Str("transport", transport).Int("count", len(victims)).Msg("Closed client connections")
	}
	return len(victims)
}

// CloseAll closes every client.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	all := make([]*Client, 0, len(h.connections))
	for c := range h.connections {
		all = append(all, c)
	}
	h.mu.RUnlock()
	for _, c := range all {
		c.Close()
	}
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// TransportCount returns the number of active connections on transport.
func (h *Hub) TransportCount(transport string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.connections {
		if c.transport == transport {
			n++
		}
	}
	return n
}
