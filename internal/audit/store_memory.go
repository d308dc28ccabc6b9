package audit

import (
	"context"
	"sort"
	"sync"

	id "payguard/pkg/domain"
)

// InMemoryStore keeps entries in an append-only slice per entity. It
// intentionally favors clarity over performance.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.EntityID][]Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.EntityID][]Entry)}
}

func (s *InMemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.EntityID] = append(s.entries[entry.EntityID], entry)
	return nil
}

func (s *InMemoryStore) ListByEntity(_ context.Context, entityID id.EntityID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.entries[entityID]
	out := make([]Entry, len(stored))
	copy(out, stored)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}
