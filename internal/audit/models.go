// Package audit builds and persists the immutable decision trail. One entry
// is written per attempted transition — approvals, rejections, and conflicts
// that reached the engine alike. Entries are append-only: nothing in this
// package updates or deletes.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	id "payguard/pkg/domain"
)

// Entry is a single immutable audit record. Keep it transport-agnostic so
// stores and sinks can fan out.
type Entry struct {
	ID            uuid.UUID       `json:"id"`
	EntityType    string          `json:"entity_type"`
	EntityID      id.EntityID     `json:"entity_id"`
	Action        string          `json:"action"`
	PerformedBy   id.PrincipalID  `json:"performed_by"`
	PreviousState json.RawMessage `json:"previous_state"`
	NewState      json.RawMessage `json:"new_state"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	IPAddress     string          `json:"ip_address,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Store is the persistence contract for audit entries. Append runs inside the
// caller's transaction context; a failed append aborts the whole transition.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByEntity(ctx context.Context, entityID id.EntityID) ([]Entry, error)
}
