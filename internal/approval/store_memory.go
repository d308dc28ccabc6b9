package approval

import (
	"context"
	"sync"

	id "payguard/pkg/domain"
	"payguard/pkg/platform/sentinel"
)

// InMemoryStore keeps entities in a map guarded by one mutex. The version
// check happens under the same lock, so it gives the identical conflict
// semantics as the PostgreSQL conditional update.
type InMemoryStore struct {
	mu       sync.RWMutex
	entities map[id.EntityID]*Entity
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entities: make(map[id.EntityID]*Entity)}
}

func (s *InMemoryStore) Create(_ context.Context, e *Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entities[e.ID]; exists {
		return sentinel.ErrConflict
	}
	s.entities[e.ID] = e.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, entityID id.EntityID) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entities[entityID]; ok {
		return e.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) CompareAndSet(_ context.Context, e *Entity, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.entities[e.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return sentinel.ErrConflict
	}
	s.entities[e.ID] = e.Clone()
	return nil
}
