package handler

import (
	"encoding/json"
	"time"

	"payguard/internal/approval"
	"payguard/internal/audit"
)

// entityResponse is the wire shape for an approvable entity. Variant-specific
// fields are omitted when they do not apply.
type entityResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	OrgID       string    `json:"org_id"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	ExpenseType string    `json:"expense_type,omitempty"`
	InitiatedBy string    `json:"initiated_by,omitempty"`
	FirstBy     string    `json:"first_approver,omitempty"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toEntityResponse(e *approval.Entity) entityResponse {
	resp := entityResponse{
		ID:          e.ID.String(),
		Type:        string(e.Type),
		OrgID:       e.OrgID.String(),
		AmountMinor: e.AmountMinor,
		Currency:    string(e.Currency),
		Status:      string(e.Status),
		ExpenseType: string(e.ExpenseType),
		Version:     e.Version,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if !e.InitiatedBy.IsNil() {
		resp.InitiatedBy = e.InitiatedBy.String()
	}
	if e.FirstApprover != nil {
		resp.FirstBy = e.FirstApprover.String()
	}
	return resp
}

// decisionResponse pairs the committed entity with the engine's verdict.
type decisionResponse struct {
	Entity               entityResponse `json:"entity"`
	ResultingStatus      string         `json:"resulting_status"`
	AutoApproved         bool           `json:"auto_approved"`
	RequiresDualApproval bool           `json:"requires_dual_approval"`
	Reason               string         `json:"reason,omitempty"`
}

func toDecisionResponse(result *approval.Result) decisionResponse {
	return decisionResponse{
		Entity:               toEntityResponse(result.Entity),
		ResultingStatus:      string(result.Decision.ResultingStatus),
		AutoApproved:         result.Decision.AutoApproved,
		RequiresDualApproval: result.Decision.RequiresDualApproval,
		Reason:               result.Decision.Reason,
	}
}

// trailEntryResponse is one audit entry on the wire.
type trailEntryResponse struct {
	ID            string          `json:"id"`
	EntityType    string          `json:"entity_type"`
	EntityID      string          `json:"entity_id"`
	Action        string          `json:"action"`
	PerformedBy   string          `json:"performed_by"`
	PreviousState json.RawMessage `json:"previous_state,omitempty"`
	NewState      json.RawMessage `json:"new_state,omitempty"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	IPAddress     string          `json:"ip_address,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

func toTrailResponse(entries []audit.Entry) []trailEntryResponse {
	out := make([]trailEntryResponse, 0, len(entries))
	for _, e := range entries {
		item := trailEntryResponse{
			ID:            e.ID.String(),
			EntityType:    e.EntityType,
			EntityID:      e.EntityID.String(),
			Action:        e.Action,
			PreviousState: e.PreviousState,
			NewState:      e.NewState,
			Metadata:      e.Metadata,
			IPAddress:     e.IPAddress,
			Timestamp:     e.Timestamp,
		}
		if !e.PerformedBy.IsNil() {
			item.PerformedBy = e.PerformedBy.String()
		}
		out = append(out, item)
	}
	return out
}
