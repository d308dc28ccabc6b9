package policy

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "payguard/pkg/domain"
)

// SeedBootstrapPolicy installs a permissive USD policy for a fresh org so
// local runs on memory stores have something to evaluate against.
func SeedBootstrapPolicy(store *InMemoryStore) OrgPolicy {
	p := OrgPolicy{
		OrgID:        id.OrgID(uuid.New()),
		Currency:     id.Currency("USD"),
		AutoApprove:  10_000,
		DualApproval: 500_000,
		UpdatedAt:    time.Now(),
	}
	_ = store.Upsert(context.Background(), p)
	return p
}
