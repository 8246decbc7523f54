package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for an unknown or expired session id.
var ErrSessionNotFound = errors.New("session not found")

type session struct {
	ctrl     *Controller
	lastSeen time.Time
}

// Registry keeps one controller per open dashboard page.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session

	newController func() *Controller
	idle          time.Duration

	now func() time.Time
}

// NewRegistry creates a registry. Sessions unused for longer than idle are
// removed by Sweep; idle <= 0 keeps them until deleted.
func NewRegistry(newController func() *Controller, idle time.Duration) *Registry {
	return &Registry{
		sessions:      make(map[string]*session),
		newController: newController,
		idle:          idle,
		now:           time.Now,
	}
}

// Create opens a session and runs its startup load.
func (r *Registry) Create(ctx context.Context) (string, *Controller) {
	ctrl := r.newController()
	ctrl.Start(ctx)

	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &session{ctrl: ctrl, lastSeen: r.now()}
	return id, ctrl
}

// Get returns the controller of a session and marks it as used.
func (r *Registry) Get(id string) (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.lastSeen = r.now()
	return s.ctrl, nil
}

// Delete closes a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

// Sweep removes idle sessions and returns how many were removed.
func (r *Registry) Sweep() int {
	if r.idle <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idle)
	removed := 0
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
