package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"payguard/internal/approval"
	"payguard/internal/audit"
	id "payguard/pkg/domain"
	"payguard/pkg/platform/httputil"
)

// Service defines the approval operations the handler needs.
type Service interface {
	SubmitExpense(ctx context.Context, orgID id.OrgID, amountMinor int64, currency id.Currency, expenseType approval.ExpenseType) (*approval.Result, error)
	SubmitPayout(ctx context.Context, orgID id.OrgID, amountMinor int64, currency id.Currency) (*approval.Result, error)
	SubmitDecision(ctx context.Context, entityID id.EntityID, action approval.Action, metadata map[string]any) (*approval.Result, error)
	GetEntity(ctx context.Context, entityID id.EntityID) (*approval.Entity, error)
	Trail(ctx context.Context, entityID id.EntityID) ([]audit.Entry, error)
}

// Handler exposes the approval endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the approval routes onto the router. Authentication and
// request metadata middleware are applied by the caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/expenses", h.handleSubmitExpense)
	r.Post("/payouts", h.handleSubmitPayout)
	r.Post("/entities/{entityID}/decision", h.handleSubmitDecision)
	r.Get("/entities/{entityID}", h.handleGetEntity)
	r.Get("/entities/{entityID}/trail", h.handleGetTrail)
}

func (h *Handler) handleSubmitExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[submitExpenseRequest](w, r, h.logger)
	if !ok {
		return
	}
	orgID, currency, expenseType, err := req.parse()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.SubmitExpense(ctx, orgID, req.AmountMinor, currency, expenseType)
	if err != nil {
		h.logger.WarnContext(ctx, "expense submission failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toDecisionResponse(result))
}

func (h *Handler) handleSubmitPayout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[submitPayoutRequest](w, r, h.logger)
	if !ok {
		return
	}
	orgID, currency, err := req.parse()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.SubmitPayout(ctx, orgID, req.AmountMinor, currency)
	if err != nil {
		h.logger.WarnContext(ctx, "payout submission failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toDecisionResponse(result))
}

func (h *Handler) handleSubmitDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entityID, err := id.ParseEntityID(chi.URLParam(r, "entityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.Decode[decisionRequest](w, r, h.logger)
	if !ok {
		return
	}
	action, err := req.parse()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.SubmitDecision(ctx, entityID, action, req.Metadata)
	if err != nil {
		h.logger.WarnContext(ctx, "decision submission failed",
			"entity_id", entityID,
			"action", action,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDecisionResponse(result))
}

func (h *Handler) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	entityID, err := id.ParseEntityID(chi.URLParam(r, "entityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entity, err := h.service.GetEntity(r.Context(), entityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEntityResponse(entity))
}

func (h *Handler) handleGetTrail(w http.ResponseWriter, r *http.Request) {
	entityID, err := id.ParseEntityID(chi.URLParam(r, "entityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.service.Trail(r.Context(), entityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTrailResponse(entries))
}
