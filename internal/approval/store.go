package approval

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	id "payguard/pkg/domain"
)

// EntityStore is the persistence contract for approvable entities. Stores are
// interface-driven to keep the domain logic testable and to allow swapping
// in-memory and PostgreSQL persistence without rewiring business code.
//
// CompareAndSet is the only mutation path after creation: it persists the
// entity iff the stored version equals expectedVersion, returning
// sentinel.ErrConflict otherwise. That conditional write is what linearizes
// all transitions for a single entity — two racing approvals can never both
// observe "no first approver" and both win.
type EntityStore interface {
	Create(ctx context.Context, e *Entity) error
	FindByID(ctx context.Context, entityID id.EntityID) (*Entity, error)
	CompareAndSet(ctx context.Context, e *Entity, expectedVersion int64) error
}

// StoreTx runs fn within a single atomic persistence boundary. The entity
// write, its audit entry, and the execution outbox row commit together or not
// at all; partial success must never be observable.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// noopTx is the transaction boundary for the in-memory stores: each store op
// is atomic on its own, and the version check plus the append-only audit
// store cannot partially fail in-process.
type noopTx struct{}

// NewNoopTx returns the in-memory StoreTx.
func NewNoopTx() StoreTx {
	return noopTx{}
}

func (noopTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}
