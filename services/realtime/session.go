package realtime

import (
	"sync"

	"campuspark/models"

	"github.com/google/uuid"
)

// Session binds one chat connection to the identity watched on its behalf.
// The identity may be unknown when the connection opens.
type Session struct {
	ID string

	watcher *OccupancyWatcher

	mu       sync.Mutex
	identity *models.Identity
	closed   bool
}

func (w *OccupancyWatcher) NewSession() *Session {
	return &Session{ID: uuid.NewString(), watcher: w}
}

// Identify binds the session to identity. A different identity, or the same
// one under a new display name, replaces the previous watch. It reports
// whether the binding changed.
func (s *Session) Identify(identity models.Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if s.identity != nil && s.identity.ID == identity.ID && s.identity.DisplayName == identity.DisplayName {
		return false
	}
	if s.identity != nil {
		s.watcher.Release(s.identity.ID)
	}
	s.watcher.Watch(identity)
	s.identity = &identity
	return true
}

// Identity returns the bound identity, if any.
func (s *Session) Identity() (models.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return models.Identity{}, false
	}
	return *s.identity, true
}

// Close releases the session's watch. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.identity != nil {
		s.watcher.Release(s.identity.ID)
		s.identity = nil
	}
}

// Prompters fans a prompt out to several surfaces.
type Prompters []Prompter

func (ps Prompters) Prompt(identityID string, p models.PendingVerification) {
	for _, pr := range ps {
		pr.Prompt(identityID, p)
	}
}
