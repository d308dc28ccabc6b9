package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"payguard/internal/audit"
	"payguard/internal/policy"
	id "payguard/pkg/domain"
	dErrors "payguard/pkg/domain-errors"
	"payguard/pkg/platform/httputil"
	"payguard/pkg/requestcontext"
)

// TxRunner is the atomic persistence boundary for policy writes. The upsert
// and its audit entry commit together or not at all.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// Handler exposes the threshold administration endpoints. Reads go through
// the resolver so callers see exactly what evaluation would use; writes are
// audited in the same transaction as the upsert.
type Handler struct {
	store    policy.Store
	resolver *policy.Resolver
	recorder *audit.Recorder
	txRunner TxRunner
	logger   *slog.Logger
}

func New(store policy.Store, resolver *policy.Resolver, recorder *audit.Recorder, txRunner TxRunner, logger *slog.Logger) *Handler {
	return &Handler{store: store, resolver: resolver, recorder: recorder, txRunner: txRunner, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/orgs/{orgID}/policies/{currency}", h.handleGetPolicy)
	r.Put("/orgs/{orgID}/policies/{currency}", h.handlePutPolicy)
}

type policyResponse struct {
	OrgID                 string `json:"org_id"`
	Currency              string `json:"currency"`
	AutoApproveThreshold  int64  `json:"auto_approve_threshold"`
	DualApprovalThreshold int64  `json:"dual_approval_threshold"`
	Defaults              bool   `json:"defaults"`
}

type putPolicyRequest struct {
	AutoApproveThreshold  int64 `json:"auto_approve_threshold"`
	DualApprovalThreshold int64 `json:"dual_approval_threshold"`
}

func (h *Handler) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	orgID, currency, err := parsePath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	thresholds, defaults := h.resolver.Resolve(r.Context(), orgID, currency)
	httputil.WriteJSON(w, http.StatusOK, policyResponse{
		OrgID:                 orgID.String(),
		Currency:              string(currency),
		AutoApproveThreshold:  thresholds.AutoApprove,
		DualApprovalThreshold: thresholds.DualApproval,
		Defaults:              defaults,
	})
}

func (h *Handler) handlePutPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orgID, currency, err := parsePath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	principal := requestcontext.Principal(ctx)
	if principal.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "no authenticated principal"))
		return
	}

	req, ok := httputil.Decode[putPolicyRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.AutoApproveThreshold < 0 || req.DualApprovalThreshold < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "thresholds must be non-negative"))
		return
	}
	if req.DualApprovalThreshold < req.AutoApproveThreshold {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest,
			"dual approval threshold must not be below auto-approve threshold"))
		return
	}

	p := policy.OrgPolicy{
		OrgID:        orgID,
		Currency:     currency,
		AutoApprove:  req.AutoApproveThreshold,
		DualApproval: req.DualApprovalThreshold,
		UpdatedAt:    requestcontext.Now(ctx),
	}
	// Threshold changes alter who can approve what, so they land in the same
	// trail as the decisions they shape, committed with the upsert: new
	// thresholds must never be durable without their audit record.
	err = h.txRunner.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := h.recorder.Record(txCtx, audit.Entry{
			EntityType:  "org_policy",
			EntityID:    id.EntityID(orgID),
			Action:      "policy_update",
			PerformedBy: principal,
			Metadata: map[string]any{
				"currency":                string(currency),
				"auto_approve_threshold":  req.AutoApproveThreshold,
				"dual_approval_threshold": req.DualApprovalThreshold,
			},
			IPAddress: requestcontext.ClientIP(txCtx),
		}); err != nil {
			return err
		}
		if err := h.store.Upsert(txCtx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store policy")
		}
		return nil
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "policy update failed", "org_id", orgID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, policyResponse{
		OrgID:                 orgID.String(),
		Currency:              string(currency),
		AutoApproveThreshold:  p.AutoApprove,
		DualApprovalThreshold: p.DualApproval,
	})
}

func parsePath(r *http.Request) (id.OrgID, id.Currency, error) {
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		return id.OrgID{}, "", err
	}
	currency, err := id.ParseCurrency(chi.URLParam(r, "currency"))
	if err != nil {
		return id.OrgID{}, "", err
	}
	return orgID, currency, nil
}
