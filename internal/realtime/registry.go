package realtime

import (
	"sync"

	"github.com/spec-kit/issue-notify-service/internal/domain"
)

// Envelope is a server-to-client event as delivered on the wire.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Sender hands an envelope to a connection's transport. It must not block;
// it reports false when the envelope was dropped.
type Sender interface {
	Send(env Envelope) bool
}

type entry struct {
	conn   domain.Connection
	sender Sender
}

// Registry is the single shared record of live authenticated connections.
// All mutations are atomic with respect to each other; room membership is
// always derived from its current state.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register upserts the connection keyed by its connection id. Registering
// the same id twice replaces the previous entry.
func (r *Registry) Register(conn domain.Connection, sender Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[conn.ConnectionID] = entry{conn: conn, sender: sender}
}

// Unregister removes the entry. No-op if the id is absent.
func (r *Registry) Unregister(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, connectionID)
}

// ListAll returns a snapshot of the live connections. The snapshot does not
// track later mutations.
func (r *Registry) ListAll() []domain.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Connection, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.conn)
	}
	return out
}

// CountByUser returns the number of live connections held by the user.
func (r *Registry) CountByUser(userID int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.entries {
		if e.conn.UserID == userID {
			n++
		}
	}
	return n
}

// CountAll returns the number of live connections.
func (r *Registry) CountAll() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// snapshot returns entries matching the filter. Fan-out iterates the
// snapshot, so a connection unregistering mid-broadcast is either included
// or excluded, never half-delivered.
func (r *Registry) snapshot(match func(domain.Connection) bool) []entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entry, 0, len(r.entries))
	for _, e := range r.entries {
		if match == nil || match(e.conn) {
			out = append(out, e)
		}
	}
	return out
}
