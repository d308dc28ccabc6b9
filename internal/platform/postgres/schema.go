// Package postgres owns the relational schema for the approval engine.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is idempotent DDL for every table the stores touch. The audit table
// deliberately has no UPDATE path in code and no foreign keys that could
// cascade a delete into it.
const Schema = `
CREATE TABLE IF NOT EXISTS entities (
	id             UUID PRIMARY KEY,
	entity_type    TEXT NOT NULL,
	org_id         UUID NOT NULL,
	amount_minor   BIGINT NOT NULL,
	currency       TEXT NOT NULL,
	status         TEXT NOT NULL,
	expense_type   TEXT,
	initiated_by   UUID,
	first_approver UUID,
	version        BIGINT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entities_org ON entities (org_id);

CREATE TABLE IF NOT EXISTS audit_entries (
	id             UUID PRIMARY KEY,
	entity_type    TEXT NOT NULL,
	entity_id      UUID NOT NULL,
	action         TEXT NOT NULL,
	performed_by   UUID,
	previous_state JSONB,
	new_state      JSONB,
	metadata       JSONB,
	ip_address     TEXT,
	created_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_entries (entity_id, created_at);

CREATE TABLE IF NOT EXISTS org_policies (
	org_id                  UUID NOT NULL,
	currency                TEXT NOT NULL,
	auto_approve_threshold  BIGINT NOT NULL,
	dual_approval_threshold BIGINT NOT NULL,
	updated_at              TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (org_id, currency)
);

CREATE TABLE IF NOT EXISTS execution_outbox (
	id           UUID PRIMARY KEY,
	entity_id    UUID NOT NULL,
	dedupe_key   TEXT NOT NULL,
	payload      JSONB NOT NULL,
	attempts     INT NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL,
	published_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_outbox_pending ON execution_outbox (created_at) WHERE published_at IS NULL;
`

// EnsureSchema applies the DDL. Safe to run on every start.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
