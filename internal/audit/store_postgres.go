package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	id "payguard/pkg/domain"
	txcontext "payguard/pkg/platform/tx"
)

// PostgresStore persists audit entries. Append resolves the executor from the
// context so it joins the orchestrator's transaction; there is no update or
// delete path, matching the append-only contract.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	query := `
		INSERT INTO audit_entries (
			id, entity_type, entity_id, action, performed_by,
			previous_state, new_state, metadata, ip_address, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		entry.ID,
		entry.EntityType,
		uuid.UUID(entry.EntityID),
		entry.Action,
		uuid.UUID(entry.PerformedBy),
		[]byte(entry.PreviousState),
		[]byte(entry.NewState),
		metadata,
		nullableString(entry.IPAddress),
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByEntity(ctx context.Context, entityID id.EntityID) ([]Entry, error) {
	query := `
		SELECT id, entity_type, entity_id, action, performed_by,
			   previous_state, new_state, metadata, ip_address, created_at
		FROM audit_entries
		WHERE entity_id = $1
		ORDER BY created_at, id
	`

	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, uuid.UUID(entityID))
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry       Entry
			rawEntityID uuid.UUID
			performedBy uuid.UUID
			metadata    []byte
			ipAddress   sql.NullString
		)
		err := rows.Scan(
			&entry.ID,
			&entry.EntityType,
			&rawEntityID,
			&entry.Action,
			&performedBy,
			&entry.PreviousState,
			&entry.NewState,
			&metadata,
			&ipAddress,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		entry.EntityID = id.EntityID(rawEntityID)
		entry.PerformedBy = id.PrincipalID(performedBy)
		entry.IPAddress = ipAddress.String
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
