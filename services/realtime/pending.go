package realtime

import (
	"sync"

	"campuspark/models"

	"go.uber.org/zap"
)

// PendingStore keeps at most one open verification question per identity.
type PendingStore struct {
	mu     sync.Mutex
	items  map[string]models.PendingVerification
	logger *zap.Logger
}

func NewPendingStore(logger *zap.Logger) *PendingStore {
	return &PendingStore{items: make(map[string]models.PendingVerification), logger: logger}
}

// Put records p, replacing any earlier question for the same identity.
func (s *PendingStore) Put(p models.PendingVerification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.items[p.IdentityID]; ok && prev.SpaceID != p.SpaceID {
		s.logger.Warn("Pending verification superseded",
			zap.String("identity", p.IdentityID),
			zap.String("previous_space", prev.SpaceName),
			zap.String("space", p.SpaceName),
		)
	}
	s.items[p.IdentityID] = p
}

func (s *PendingStore) Get(identityID string) (models.PendingVerification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[identityID]
	return p, ok
}

func (s *PendingStore) Remove(identityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, identityID)
}

// RemoveIf removes the identity's question only when it is about spaceID.
func (s *PendingStore) RemoveIf(identityID, spaceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[identityID]
	if !ok || p.SpaceID != spaceID {
		return false
	}
	delete(s.items, identityID)
	return true
}
