package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"fieldops-backend/internal/dispatch"
)

// Hub maintains the fan-out groups: a named set of live connections per
// agent, per manager, and the shared "managers" group. Joins, leaves, and
// broadcasts happen concurrently from unrelated connections, so all access
// to the registry goes through the mutex.
type Hub struct {
	mu sync.RWMutex

	// groups maps group key -> member set
	groups map[string]map[*Client]bool

	// memberships maps each connection to the groups it joined, so a leave
	// can remove it everywhere without the caller knowing the keys
	memberships map[*Client][]string
}

// NewHub creates an empty registry.
func NewHub() *Hub {
	return &Hub{
		groups:      make(map[string]map[*Client]bool),
		memberships: make(map[*Client][]string),
	}
}

// Join adds the connection to a group.
func (h *Hub) Join(group string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.groups[group]
	if !ok {
		members = make(map[*Client]bool)
		h.groups[group] = members
	}
	members[c] = true
	h.memberships[c] = append(h.memberships[c], group)

	log.Printf("✅ [WEBSOCKET] %s (%s) joined group %q (%d members)", c.UserID, c.UserRole, group, len(members))
}

// Remove takes the connection out of every group it joined and signals its
// write pump to shut down. Safe to call for a connection that never joined,
// and safe to call more than once.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	groups, ok := h.memberships[c]
	if !ok {
		return
	}
	delete(h.memberships, c)
	for _, group := range groups {
		if members, ok := h.groups[group]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.groups, group)
			}
		}
	}
	c.closeDone()

	log.Printf("🔴 [WEBSOCKET] %s (%s) left %d group(s)", c.UserID, c.UserRole, len(groups))
}

// Broadcast delivers the event to every connection in the group at the
// moment of the call. Delivery is best-effort per connection: a member
// whose send buffer is full is treated as dead and pruned without blocking
// delivery to the others.
func (h *Hub) Broadcast(group string, event dispatch.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("❌ Failed to marshal %s event: %v", event.Type, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var dead []*Client
	for c := range h.groups[group] {
		select {
		case c.send <- data:
		default:
			dead = append(dead, c)
		}
	}
	for _, c := range dead {
		log.Printf("⚠️  Client buffer full, disconnecting: %s", c.UserID)
		h.removeLocked(c)
	}
}

// GroupCount returns the number of live connections in a group.
func (h *Hub) GroupCount(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// ClientCount returns the total number of tracked connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.memberships)
}
