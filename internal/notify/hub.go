// Package notify persists in-app notifications and pushes them to connected
// sessions. The session registry is an explicit process-wide object created
// at startup, never a bare module-level map.
package notify

import "sync"

// Hub tracks which live connections belong to which user. It is safe for
// concurrent use; one Hub exists per process.
type Hub struct {
	mu    sync.RWMutex
	conns map[string][]string // user id -> connection ids
}

// NewHub creates an empty session registry.
func NewHub() *Hub {
	return &Hub{conns: make(map[string][]string)}
}

// Register records a connection for userID.
func (h *Hub) Register(userID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[userID] = append(h.conns[userID], connID)
}

// Unregister drops one connection for userID. The user's entry is removed
// entirely once its last connection goes away.
func (h *Hub) Unregister(userID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	remaining := h.conns[userID][:0]
	for _, id := range h.conns[userID] {
		if id != connID {
			remaining = append(remaining, id)
		}
	}
	if len(remaining) == 0 {
		delete(h.conns, userID)
	} else {
		h.conns[userID] = remaining
	}
}

// ConnectionsFor returns a copy of userID's live connection ids.
func (h *Hub) ConnectionsFor(userID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := h.conns[userID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Reset drops all registrations. Called at shutdown.
func (h *Hub) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns = make(map[string][]string)
}
