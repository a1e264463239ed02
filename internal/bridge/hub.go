package bridge

import (
	"log"
	"sync"

	"github.com/dayuer/agentchat/internal/bus"
)

// Conn is one connected external client.
type Conn interface {
	ID() string
	Send(env bus.Envelope) error
	Close() error
}

// Hub is the set of live client connections.
type Hub struct {
	mu    sync.Mutex
	conns map[string]Conn
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]Conn)}
}

// Add registers c.
func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	h.conns[c.ID()] = c
	h.mu.Unlock()
}

// Remove unregisters the connection with id. It reports whether it was present.
func (h *Hub) Remove(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[id]; !ok {
		return false
	}
	delete(h.conns, id)
	return true
}

// Len returns the number of live connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Snapshot returns the current connections.
func (h *Hub) Snapshot() []Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Conn, 0, len(h.conns))
	for _, c := range h.conns {
		out = append(out, c)
	}
	return out
}

// Broadcast sends env to every connection and returns how many accepted it.
// A connection whose send fails is closed and dropped; the rest still get
// the message.
func (h *Hub) Broadcast(env bus.Envelope) int {
	sent := 0
	for _, c := range h.Snapshot() {
		if err := c.Send(env); err != nil {
			log.Printf("[Bridge] ⚠️ Dropping connection %s: %v", c.ID(), err)
			h.Drop(c)
			continue
		}
		sent++
	}
	return sent
}

// Drop removes and closes c.
func (h *Hub) Drop(c Conn) {
	if h.Remove(c.ID()) {
		c.Close()
	}
}

// CloseAll closes and removes every connection.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[string]Conn)
	h.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}
