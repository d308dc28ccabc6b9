// Package execution delivers the post-commit signal that tells the payout
// collaborator an entity reached a terminal approved state.
//
// The signal is decoupled from the caller's transaction on purpose: the
// orchestrator enqueues it into an outbox inside the same commit as the
// entity and audit writes, and the worker publishes it afterwards. The
// collaborator therefore sees the signal only for decisions that durably
// committed, at least once, keyed by entity and resulting status so replays
// are idempotent downstream.
package execution

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "payguard/pkg/domain"
)

// Signal is the message delivered to the payout-execution collaborator.
type Signal struct {
	EntityID        id.EntityID `json:"entity_id"`
	EntityType      string      `json:"entity_type"`
	ResultingStatus string      `json:"resulting_status"`
	AmountMinor     int64       `json:"amount_minor"`
	Currency        id.Currency `json:"currency"`
}

// Key is the idempotency key: the collaborator deduplicates on it, and the
// worker's redis guard uses it for best-effort suppression of replays.
func (s Signal) Key() string {
	return s.EntityID.String() + ":" + s.ResultingStatus
}

// Enqueuer is the narrow interface the orchestrator sees.
type Enqueuer interface {
	Enqueue(ctx context.Context, signal Signal) error
}

// Row is one outbox entry awaiting publication.
type Row struct {
	ID          uuid.UUID
	Signal      Signal
	Attempts    int
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// OutboxStore persists pending signals. Enqueue joins the caller's
// transaction context; the worker drains with NextBatch/MarkPublished.
type OutboxStore interface {
	Enqueue(ctx context.Context, signal Signal) error
	NextBatch(ctx context.Context, limit int) ([]Row, error)
	MarkPublished(ctx context.Context, rowID uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, rowID uuid.UUID) error
}

// Publisher hands a signal to the transport (Kafka in production).
type Publisher interface {
	Publish(ctx context.Context, signal Signal) error
}
