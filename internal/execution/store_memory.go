package execution

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"payguard/pkg/platform/sentinel"
	"payguard/pkg/requestcontext"
)

// InMemoryOutbox backs tests and store-less local runs.
type InMemoryOutbox struct {
	mu   sync.Mutex
	rows []*Row
}

func NewInMemoryOutbox() *InMemoryOutbox {
	return &InMemoryOutbox{}
}

func (s *InMemoryOutbox) Enqueue(ctx context.Context, signal Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, &Row{
		ID:        uuid.New(),
		Signal:    signal,
		CreatedAt: requestcontext.Now(ctx),
	})
	return nil
}

func (s *InMemoryOutbox) NextBatch(_ context.Context, limit int) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Row
	for _, row := range s.rows {
		if row.PublishedAt != nil {
			continue
		}
		out = append(out, *row)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryOutbox) MarkPublished(_ context.Context, rowID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == rowID {
			published := at
			row.PublishedAt = &published
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *InMemoryOutbox) MarkFailed(_ context.Context, rowID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == rowID {
			row.Attempts++
			return nil
		}
	}
	return sentinel.ErrNotFound
}
