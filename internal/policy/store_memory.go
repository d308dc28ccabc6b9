package policy

import (
	"context"
	"sync"

	id "payguard/pkg/domain"
	"payguard/pkg/platform/sentinel"
)

// InMemoryStore keeps policies in a map. Tests and local runs use it; the
// postgres store is the production implementation.
type InMemoryStore struct {
	mu       sync.RWMutex
	policies map[policyKey]OrgPolicy
}

type policyKey struct {
	org      id.OrgID
	currency id.Currency
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{policies: make(map[policyKey]OrgPolicy)}
}

func (s *InMemoryStore) Find(_ context.Context, orgID id.OrgID, currency id.Currency) (OrgPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.policies[policyKey{orgID, currency}]; ok {
		return p, nil
	}
	return OrgPolicy{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Upsert(_ context.Context, p OrgPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[policyKey{p.OrgID, p.Currency}] = p
	return nil
}
