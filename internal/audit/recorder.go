package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	id "payguard/pkg/domain"
	dErrors "payguard/pkg/domain-errors"
	"payguard/pkg/requestcontext"
)

// Recorder assigns identity and timestamp to entries and appends them through
// the store. The timestamp is set exactly once, at record time, and is clamped
// so it never decreases across any entries recorded by this process — a single
// watermark rather than per-entity state, so memory stays constant no matter
// how many entities pass through. Transitions for one entity are serialized
// upstream, so the process-wide clamp keeps each trail ordered even when the
// wall clock steps backwards.
type Recorder struct {
	store Store

	mu   sync.Mutex
	last time.Time
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record fills in ID and timestamp and appends the entry. It returns the
// stored entry so callers can surface it. A store failure aborts the caller's
// transaction: a state change without its audit record must not happen.
func (r *Recorder) Record(ctx context.Context, entry Entry) (Entry, error) {
	entry.ID = uuid.New()
	entry.Timestamp = r.stamp(requestcontext.Now(ctx))

	if err := r.store.Append(ctx, entry); err != nil {
		return Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append audit entry")
	}
	return entry, nil
}

// Trail returns the audit entries for an entity in timestamp order.
func (r *Recorder) Trail(ctx context.Context, entityID id.EntityID) ([]Entry, error) {
	entries, err := r.store.ListByEntity(ctx, entityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}

func (r *Recorder) stamp(now time.Time) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if now.Before(r.last) {
		now = r.last
	}
	r.last = now
	return now
}
