package deposit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session couples a monitor with its owner and session identity.
type Session struct {
	ID        uuid.UUID
	UserID    string
	Monitor   *Monitor
	CreatedAt time.Time
}

// Registry tracks live deposit sessions, one monitor per deposit.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*Session)}
}

// Add registers a session.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// Get returns the session for the id, if present.
func (r *Registry) Get(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove drops the session and resets its monitor so no stale identifier
// is polled afterward.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Monitor.Reset()
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// SweepSettled removes sessions whose monitor reached a terminal state
// before the retention cutoff. Returns how many were reaped.
func (r *Registry) SweepSettled(now time.Time, retention time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		settled := s.Monitor.SettledAt()
		if !settled.IsZero() && now.Sub(settled) > retention {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
