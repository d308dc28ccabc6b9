// Package approval is the core of the engine: entity state, the pure decision
// functions, and the orchestrator that ties decisions to durable state and the
// audit trail.
package approval

import (
	"encoding/json"
	"time"

	id "payguard/pkg/domain"
	dErrors "payguard/pkg/domain-errors"
)

// EntityType discriminates the two approvable variants.
type EntityType string

const (
	TypeExpense EntityType = "expense"
	TypePayout  EntityType = "payout"
)

// Status is the lifecycle state of an approvable entity.
//
// Transitions are monotonic toward a terminal state: approved and rejected
// are final, and nothing re-enters pending.
type Status string

const (
	StatusPending               Status = "pending"
	StatusPendingSecondApproval Status = "pending_second_approval"
	StatusApproved              Status = "approved"
	StatusRejected              Status = "rejected"
)

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransitionTo enforces the monotonic lifecycle.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected ||
			next == StatusPendingSecondApproval || next == StatusPending
	case StatusPendingSecondApproval:
		return next == StatusApproved || next == StatusRejected
	default:
		return false
	}
}

// ExpenseType distinguishes reimbursement of money already spent from a
// request to spend.
type ExpenseType string

const (
	// ExpenseSpent — already incurred, reimbursement only. There is no future
	// financial exposure to gate, so these always auto-approve.
	ExpenseSpent ExpenseType = "spent"
	// ExpenseRequest — a request to spend; gated by the auto-approve
	// threshold.
	ExpenseRequest ExpenseType = "request"
)

// ParseExpenseType constructs an ExpenseType from external input.
func ParseExpenseType(s string) (ExpenseType, error) {
	switch ExpenseType(s) {
	case ExpenseSpent, ExpenseRequest:
		return ExpenseType(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "expense type must be spent or request")
	}
}

// Action is what a caller asks the orchestrator to do with an entity.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	// ActionEvaluate is recorded when a freshly submitted expense runs
	// through the auto-approval path.
	ActionEvaluate Action = "evaluate"
	// ActionSubmit is recorded when an entity enters the system.
	ActionSubmit Action = "submit"
)

// ParseAction constructs an Action from external input. Only approve and
// reject are accepted over the wire; evaluate and submit are internal.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionApprove, ActionReject:
		return Action(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "action must be approve or reject")
	}
}

// Entity is an approvable monetary action: an expense claim or a payout.
//
// Invariants:
//   - AmountMinor > 0; Currency is a valid three-letter code
//   - ExpenseType is set iff Type == expense
//   - InitiatedBy is set iff Type == payout; FirstApprover only ever set on
//     payouts that passed the first dual-approval leg
//   - Status transitions are monotonic toward approved/rejected
//   - Version increases by exactly one per committed transition
//
// Entities are created pending by the submission flow, mutated exclusively by
// the orchestrator, and never destroyed.
type Entity struct {
	ID          id.EntityID `json:"id"`
	Type        EntityType  `json:"type"`
	OrgID       id.OrgID    `json:"org_id"`
	AmountMinor int64       `json:"amount_minor"`
	Currency    id.Currency `json:"currency"`
	Status      Status      `json:"status"`

	// Expense only.
	ExpenseType ExpenseType `json:"expense_type,omitempty"`

	// Payout only.
	InitiatedBy   id.PrincipalID  `json:"initiated_by,omitempty"`
	FirstApprover *id.PrincipalID `json:"first_approver,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewExpense builds a pending expense claim.
func NewExpense(entityID id.EntityID, orgID id.OrgID, amountMinor int64, currency id.Currency, expenseType ExpenseType, now time.Time) (*Entity, error) {
	if err := validateAmount(amountMinor); err != nil {
		return nil, err
	}
	return &Entity{
		ID:          entityID,
		Type:        TypeExpense,
		OrgID:       orgID,
		AmountMinor: amountMinor,
		Currency:    currency,
		Status:      StatusPending,
		ExpenseType: expenseType,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// NewPayout builds a pending payout initiated by the given principal.
func NewPayout(entityID id.EntityID, orgID id.OrgID, amountMinor int64, currency id.Currency, initiatedBy id.PrincipalID, now time.Time) (*Entity, error) {
	if err := validateAmount(amountMinor); err != nil {
		return nil, err
	}
	if initiatedBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "payout initiator is required")
	}
	return &Entity{
		ID:          entityID,
		Type:        TypePayout,
		OrgID:       orgID,
		AmountMinor: amountMinor,
		Currency:    currency,
		Status:      StatusPending,
		InitiatedBy: initiatedBy,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func validateAmount(amountMinor int64) error {
	if amountMinor <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "amount must be positive")
	}
	return nil
}

// Clone returns an independent copy so the engine result can be applied
// without mutating the loaded state before commit.
func (e *Entity) Clone() *Entity {
	clone := *e
	if e.FirstApprover != nil {
		fa := *e.FirstApprover
		clone.FirstApprover = &fa
	}
	return &clone
}

// Snapshot renders the audit-relevant state as JSON for the trail.
func (e *Entity) Snapshot() json.RawMessage {
	snap := struct {
		Status        Status          `json:"status"`
		AmountMinor   int64           `json:"amount_minor"`
		Currency      id.Currency     `json:"currency"`
		FirstApprover *id.PrincipalID `json:"first_approver,omitempty"`
		Version       int64           `json:"version"`
	}{
		Status:        e.Status,
		AmountMinor:   e.AmountMinor,
		Currency:      e.Currency,
		FirstApprover: e.FirstApprover,
		Version:       e.Version,
	}
	raw, _ := json.Marshal(snap)
	return raw
}

// Decision is the engine's verdict on one evaluation. It is produced fresh on
// every call and never persisted directly; the audit trail captures the state
// snapshots instead.
type Decision struct {
	ResultingStatus      Status `json:"resulting_status"`
	AutoApproved         bool   `json:"auto_approved"`
	RequiresDualApproval bool   `json:"requires_dual_approval"`
	Reason               string `json:"reason,omitempty"`
}

// Decision reasons. These reach users and the audit trail; tests pin the
// self-approval wording.
const (
	ReasonAlreadySpent       = "Already spent"
	ReasonBelowThreshold     = "Below threshold"
	ReasonSelfApproval       = "Initiator cannot approve own payout"
	ReasonNeedsSecondLeg     = "High-value payout requires second approval"
	ReasonSameSecondApprover = "Second approver must be different from first"
	ReasonApprovedByApprover = "Approved by approver"
	ReasonRejectedByApprover = "Rejected by approver"
)
