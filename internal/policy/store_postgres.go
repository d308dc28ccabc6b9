package policy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "payguard/pkg/domain"
	"payguard/pkg/platform/sentinel"
	txcontext "payguard/pkg/platform/tx"
)

// PostgresStore persists organization policies in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Find(ctx context.Context, orgID id.OrgID, currency id.Currency) (OrgPolicy, error) {
	query := `
		SELECT org_id, currency, auto_approve_threshold, dual_approval_threshold, updated_at
		FROM org_policies
		WHERE org_id = $1 AND currency = $2
	`

	var (
		p     OrgPolicy
		rawID uuid.UUID
		cur   string
	)
	err := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(orgID), currency.String()).
		Scan(&rawID, &cur, &p.AutoApprove, &p.DualApproval, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return OrgPolicy{}, sentinel.ErrNotFound
	}
	if err != nil {
		return OrgPolicy{}, fmt.Errorf("query org policy: %w", err)
	}

	p.OrgID = id.OrgID(rawID)
	p.Currency = id.Currency(cur)
	return p, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, p OrgPolicy) error {
	query := `
		INSERT INTO org_policies (org_id, currency, auto_approve_threshold, dual_approval_threshold, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (org_id, currency) DO UPDATE SET
			auto_approve_threshold = EXCLUDED.auto_approve_threshold,
			dual_approval_threshold = EXCLUDED.dual_approval_threshold,
			updated_at = EXCLUDED.updated_at
	`

	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.OrgID),
		p.Currency.String(),
		p.AutoApprove,
		p.DualApproval,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert org policy: %w", err)
	}
	return nil
}
