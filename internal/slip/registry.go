package slip

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry tracks the live slip sessions. Each slip is owned by one
// client session; the registry only maps identifiers to controllers.
type Registry struct {
	mu    sync.RWMutex
	slips map[uuid.UUID]*Controller
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{slips: make(map[uuid.UUID]*Controller)}
}

// Add registers a controller under its own id.
func (r *Registry) Add(c *Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slips[c.ID()] = c
}

// Get returns the controller for the id, if present.
func (r *Registry) Get(id uuid.UUID) (*Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.slips[id]
	return c, ok
}

// Remove drops the controller for the id.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slips, id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slips)
}

// SweepExpired removes sessions whose game deadline has passed. A slip
// is destroyed when its deadline passes; returns how many were dropped.
func (r *Registry) SweepExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, c := range r.slips {
		if !c.Game().Open(now) {
			delete(r.slips, id)
			removed++
		}
	}
	return removed
}
