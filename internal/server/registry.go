package server

import (
	"sync"

	"github.com/google/uuid"

	"github.com/sells-group/invoice-agent/internal/apperr"
	"github.com/sells-group/invoice-agent/internal/editor"
)

// Registry tracks open editor sessions by id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*editor.Session
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*editor.Session)}
}

// Add stores s under a new id.
func (r *Registry) Add(s *editor.Session) string {
	id := uuid.New().String()
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return id
}

// Get returns the session for id.
func (r *Registry) Get(id string) (*editor.Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "editor session %s not found", id)
	}
	return s, nil
}

// Remove closes and forgets the session for id.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "editor session %s not found", id)
	}
	s.Close()
	return nil
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll closes every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		s.Close()
		delete(r.sessions, id)
	}
}
