package handler

import (
	"payguard/internal/approval"
	id "payguard/pkg/domain"
	dErrors "payguard/pkg/domain-errors"
)

// submitExpenseRequest creates an expense claim.
type submitExpenseRequest struct {
	OrgID       string `json:"org_id"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	ExpenseType string `json:"expense_type"`
}

func (r submitExpenseRequest) parse() (id.OrgID, id.Currency, approval.ExpenseType, error) {
	orgID, err := id.ParseOrgID(r.OrgID)
	if err != nil {
		return id.OrgID{}, "", "", err
	}
	currency, err := id.ParseCurrency(r.Currency)
	if err != nil {
		return id.OrgID{}, "", "", err
	}
	expenseType, err := approval.ParseExpenseType(r.ExpenseType)
	if err != nil {
		return id.OrgID{}, "", "", err
	}
	return orgID, currency, expenseType, nil
}

// submitPayoutRequest creates a payout initiated by the caller.
type submitPayoutRequest struct {
	OrgID       string `json:"org_id"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
}

func (r submitPayoutRequest) parse() (id.OrgID, id.Currency, error) {
	orgID, err := id.ParseOrgID(r.OrgID)
	if err != nil {
		return id.OrgID{}, "", err
	}
	currency, err := id.ParseCurrency(r.Currency)
	if err != nil {
		return id.OrgID{}, "", err
	}
	return orgID, currency, nil
}

// decisionRequest applies an approve or reject action to an entity.
type decisionRequest struct {
	Action   string         `json:"action"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (r decisionRequest) parse() (approval.Action, error) {
	if r.Action == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "action is required")
	}
	return approval.ParseAction(r.Action)
}
