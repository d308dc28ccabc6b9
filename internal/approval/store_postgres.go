package approval

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	id "payguard/pkg/domain"
	"payguard/pkg/platform/sentinel"
	txcontext "payguard/pkg/platform/tx"
)

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

// PostgresStore persists entities in PostgreSQL. CompareAndSet relies on a
// conditional UPDATE (WHERE version = expected) so the database arbitrates
// concurrent transitions; no row lock is held across the engine evaluation.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, e *Entity) error {
	query := `
		INSERT INTO entities (
			id, entity_type, org_id, amount_minor, currency, status,
			expense_type, initiated_by, first_approver, version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(e.ID),
		string(e.Type),
		uuid.UUID(e.OrgID),
		e.AmountMinor,
		e.Currency.String(),
		string(e.Status),
		nullableEnum(string(e.ExpenseType)),
		nullablePrincipal(principalOrNil(e)),
		nullablePrincipal(e.FirstApprover),
		e.Version,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert entity: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, entityID id.EntityID) (*Entity, error) {
	query := `
		SELECT id, entity_type, org_id, amount_minor, currency, status,
			   expense_type, initiated_by, first_approver, version, created_at, updated_at
		FROM entities
		WHERE id = $1
	`

	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(entityID))
	return scanEntity(row)
}

// CompareAndSet persists e iff the stored version equals expectedVersion.
// The losing writer in a race observes sentinel.ErrConflict, never a silent
// overwrite.
func (s *PostgresStore) CompareAndSet(ctx context.Context, e *Entity, expectedVersion int64) error {
	query := `
		UPDATE entities
		SET status = $1, first_approver = $2, version = $3, updated_at = $4
		WHERE id = $5 AND version = $6
	`

	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		string(e.Status),
		nullablePrincipal(e.FirstApprover),
		e.Version,
		e.UpdatedAt,
		uuid.UUID(e.ID),
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update entity: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("entity rows affected: %w", err)
	}
	if affected == 0 {
		// Either the entity is gone or another writer won the version race.
		if _, findErr := s.FindByID(ctx, e.ID); errors.Is(findErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*Entity, error) {
	var (
		e             Entity
		rawID         uuid.UUID
		entityType    string
		rawOrgID      uuid.UUID
		currency      string
		status        string
		expenseType   sql.NullString
		initiatedBy   *uuid.UUID
		firstApprover *uuid.UUID
		createdAt     time.Time
		updatedAt     time.Time
	)

	err := row.Scan(
		&rawID, &entityType, &rawOrgID, &e.AmountMinor, &currency, &status,
		&expenseType, &initiatedBy, &firstApprover, &e.Version, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan entity: %w", err)
	}

	e.ID = id.EntityID(rawID)
	e.Type = EntityType(entityType)
	e.OrgID = id.OrgID(rawOrgID)
	e.Currency = id.Currency(currency)
	e.Status = Status(status)
	e.ExpenseType = ExpenseType(expenseType.String)
	if initiatedBy != nil {
		e.InitiatedBy = id.PrincipalID(*initiatedBy)
	}
	if firstApprover != nil {
		fa := id.PrincipalID(*firstApprover)
		e.FirstApprover = &fa
	}
	e.CreatedAt = createdAt
	e.UpdatedAt = updatedAt
	return &e, nil
}

func principalOrNil(e *Entity) *id.PrincipalID {
	if e.Type != TypePayout {
		return nil
	}
	p := e.InitiatedBy
	return &p
}

func nullablePrincipal(p *id.PrincipalID) any {
	if p == nil {
		return nil
	}
	return uuid.UUID(*p)
}

func nullableEnum(s string) any {
	if s == "" {
		return nil
	}
	return s
}
