package execution

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "payguard/pkg/domain"
	txcontext "payguard/pkg/platform/tx"
	"payguard/pkg/requestcontext"
)

// PostgresOutbox persists execution signals using the transactional outbox
// pattern: Enqueue resolves the executor from context so the row commits with
// the entity and audit writes it belongs to.
type PostgresOutbox struct {
	db *sql.DB
}

func NewPostgresOutbox(db *sql.DB) *PostgresOutbox {
	return &PostgresOutbox{db: db}
}

func (s *PostgresOutbox) Enqueue(ctx context.Context, signal Signal) error {
	payload, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("marshal execution signal: %w", err)
	}

	query := `
		INSERT INTO execution_outbox (id, entity_id, dedupe_key, payload, attempts, created_at)
		VALUES ($1, $2, $3, $4, 0, $5)
	`
	_, err = txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.New(),
		uuid.UUID(signal.EntityID),
		signal.Key(),
		payload,
		requestcontext.Now(ctx),
	)
	if err != nil {
		return fmt.Errorf("insert outbox row: %w", err)
	}
	return nil
}

func (s *PostgresOutbox) NextBatch(ctx context.Context, limit int) ([]Row, error) {
	// This runs in autocommit, so the SKIP LOCKED row locks release at
	// statement end and concurrent workers can fetch the same rows. Delivery
	// is at-least-once either way; the dedupe guard absorbs the overlap.
	query := `
		SELECT id, payload, attempts, created_at
		FROM execution_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			row     Row
			payload []byte
		)
		if err := rows.Scan(&row.ID, &payload, &row.Attempts, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		if err := json.Unmarshal(payload, &row.Signal); err != nil {
			return nil, fmt.Errorf("unmarshal execution signal: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}
	return out, nil
}

func (s *PostgresOutbox) MarkPublished(ctx context.Context, rowID uuid.UUID, at time.Time) error {
	query := `UPDATE execution_outbox SET published_at = $1 WHERE id = $2`
	if _, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query, at, rowID); err != nil {
		return fmt.Errorf("mark outbox row published: %w", err)
	}
	return nil
}

func (s *PostgresOutbox) MarkFailed(ctx context.Context, rowID uuid.UUID) error {
	query := `UPDATE execution_outbox SET attempts = attempts + 1 WHERE id = $1`
	if _, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query, rowID); err != nil {
		return fmt.Errorf("mark outbox row failed: %w", err)
	}
	return nil
}

// PendingForEntity reports how many unpublished signals exist for an entity;
// the health endpoint and tests use it.
func (s *PostgresOutbox) PendingForEntity(ctx context.Context, entityID id.EntityID) (int, error) {
	query := `SELECT COUNT(*) FROM execution_outbox WHERE entity_id = $1 AND published_at IS NULL`
	var n int
	if err := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(entityID)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending outbox rows: %w", err)
	}
	return n, nil
}
