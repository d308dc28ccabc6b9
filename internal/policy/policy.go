// Package policy resolves auto-approval and dual-approval cutoffs per
// organization and currency.
package policy

import (
	"context"
	"errors"
	"log/slog"
	"time"

	id "payguard/pkg/domain"
	"payguard/pkg/platform/sentinel"
)

// Defaults applied when an organization has no configured policy. Absence of
// policy must not block evaluation, but it must bias toward safety: nothing
// auto-passes, and anything at or above 5000 minor units needs dual control.
const (
	DefaultAutoApproveThreshold  int64 = 0
	DefaultDualApprovalThreshold int64 = 5000
)

// Thresholds are the resolved cutoffs for one organization/currency pair,
// expressed in currency minor units.
type Thresholds struct {
	AutoApprove  int64
	DualApproval int64
}

// OrgPolicy is the persisted per-organization configuration.
type OrgPolicy struct {
	OrgID        id.OrgID    `json:"org_id"`
	Currency     id.Currency `json:"currency"`
	AutoApprove  int64       `json:"auto_approve_threshold"`
	DualApproval int64       `json:"dual_approval_threshold"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Store is the persistence contract for organization policies. Find returns
// sentinel.ErrNotFound when no policy is configured.
type Store interface {
	Find(ctx context.Context, orgID id.OrgID, currency id.Currency) (OrgPolicy, error)
	Upsert(ctx context.Context, p OrgPolicy) error
}

// Resolver looks up thresholds with a documented default fallback. It never
// fails: a missing policy or an unavailable store yields the defaults, since
// absence of policy must not block evaluation of low-risk items.
type Resolver struct {
	store  Store
	logger *slog.Logger
}

func NewResolver(store Store, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Resolve returns the thresholds for the organization/currency pair. The
// second return reports whether the defaults were used.
func (r *Resolver) Resolve(ctx context.Context, orgID id.OrgID, currency id.Currency) (Thresholds, bool) {
	defaults := Thresholds{
		AutoApprove:  DefaultAutoApproveThreshold,
		DualApproval: DefaultDualApprovalThreshold,
	}

	p, err := r.store.Find(ctx, orgID, currency)
	if err != nil {
		// Not found is the expected shape of "unconfigured"; anything else is
		// a store fault. Both fall back, but only faults are worth a warning.
		if r.logger != nil && !errors.Is(err, sentinel.ErrNotFound) {
			r.logger.WarnContext(ctx, "policy store unavailable, using default thresholds",
				"org_id", orgID,
				"currency", currency,
				"error", err,
			)
		}
		return defaults, true
	}

	return Thresholds{AutoApprove: p.AutoApprove, DualApproval: p.DualApproval}, false
}
