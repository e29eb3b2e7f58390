package chat

import (
	"net"
	"sync"

	"github.com/samber/lo"
)

// Registry is the set of live sessions. Every operation holds the same lock;
// no I/O is done while holding it.
type Registry struct {
	mu       sync.Mutex
	byConn   map[net.Conn]*Session
	sessions []*Session // join order
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[net.Conn]*Session),
	}
}

// Register adds s. It fails with ErrAlreadyRegistered if a session with the
// same connection is already present.
func (r *Registry) Register(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byConn[s.Conn]; exists {
		return ErrAlreadyRegistered
	}
	r.byConn[s.Conn] = s
	r.sessions = append(r.sessions, s)
	ConnectedSessions.Set(float64(len(r.sessions)))
	return nil
}

// Deregister removes s and reports whether it was present. Removing an absent
// session is a no-op.
func (r *Registry) Deregister(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byConn[s.Conn]
	if !ok || current != s {
		return false
	}
	delete(r.byConn, s.Conn)
	r.sessions = lo.Without(r.sessions, s)
	ConnectedSessions.Set(float64(len(r.sessions)))
	return true
}

// Snapshot returns a point-in-time copy of the live sessions in join order.
func (r *Registry) Snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Session, len(r.sessions))
	copy(out, r.sessions)
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
