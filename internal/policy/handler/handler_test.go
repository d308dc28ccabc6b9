package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payguard/internal/approval"
	"payguard/internal/audit"
	"payguard/internal/policy"
	policyhandler "payguard/internal/policy/handler"
	id "payguard/pkg/domain"
	dErrors "payguard/pkg/domain-errors"
	"payguard/pkg/platform/sentinel"
	"payguard/pkg/testutil"
)

type harness struct {
	router     chi.Router
	store      *policy.InMemoryStore
	auditStore *audit.InMemoryStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	store := policy.NewInMemoryStore()
	auditStore := audit.NewInMemoryStore()

	r := chi.NewRouter()
	policyhandler.New(
		store,
		policy.NewResolver(store, logger),
		audit.NewRecorder(auditStore),
		approval.NewNoopTx(),
		logger,
	).Register(r)

	return &harness{router: r, store: store, auditStore: auditStore}
}

// brokenAuditStore refuses every append so tests can exercise the atomic
// write path.
type brokenAuditStore struct{}

func (brokenAuditStore) Append(context.Context, audit.Entry) error {
	return errors.New("disk full")
}

func (brokenAuditStore) ListByEntity(context.Context, id.EntityID) ([]audit.Entry, error) {
	return nil, nil
}

func TestGetPolicy_DefaultsWhenUnconfigured(t *testing.T) {
	h := newHarness(t)
	orgID := uuid.NewString()

	rr := testutil.DoRequest(h.router,
		testutil.NewRequest(t, http.MethodGet, "/orgs/"+orgID+"/policies/EUR"))

	testutil.AssertStatusOK(t, rr)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, float64(policy.DefaultDualApprovalThreshold), got["dual_approval_threshold"])
	assert.Equal(t, true, got["defaults"])
}

func TestPutPolicy(t *testing.T) {
	t.Run("stores thresholds and audits the change", func(t *testing.T) {
		h := newHarness(t)
		orgID := uuid.New()
		principalID := uuid.NewString()

		req := testutil.NewJSONRequest(t, http.MethodPut, "/orgs/"+orgID.String()+"/policies/EUR",
			map[string]any{
				"auto_approve_threshold":  100,
				"dual_approval_threshold": 10_000,
			})
		rr := testutil.DoRequest(h.router, testutil.WithPrincipal(req, principalID))

		testutil.AssertStatusOK(t, rr)

		stored, err := h.store.Find(context.Background(), id.OrgID(orgID), "EUR")
		require.NoError(t, err)
		assert.Equal(t, int64(100), stored.AutoApprove)
		assert.Equal(t, int64(10_000), stored.DualApproval)

		entries, err := h.auditStore.ListByEntity(context.Background(), id.EntityID(orgID))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "policy_update", entries[0].Action)
		assert.Equal(t, principalID, entries[0].PerformedBy.String())
	})

	t.Run("unauthenticated write is 401", func(t *testing.T) {
		h := newHarness(t)

		req := testutil.NewJSONRequest(t, http.MethodPut, "/orgs/"+uuid.NewString()+"/policies/EUR",
			map[string]any{"auto_approve_threshold": 100, "dual_approval_threshold": 10_000})
		rr := testutil.DoRequest(h.router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})

	t.Run("dual below auto is 400", func(t *testing.T) {
		h := newHarness(t)

		req := testutil.NewJSONRequest(t, http.MethodPut, "/orgs/"+uuid.NewString()+"/policies/EUR",
			map[string]any{"auto_approve_threshold": 500, "dual_approval_threshold": 100})
		rr := testutil.DoRequest(h.router, testutil.WithPrincipal(req, uuid.NewString()))

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("negative threshold is 400", func(t *testing.T) {
		h := newHarness(t)

		req := testutil.NewJSONRequest(t, http.MethodPut, "/orgs/"+uuid.NewString()+"/policies/EUR",
			map[string]any{"auto_approve_threshold": -1, "dual_approval_threshold": 100})
		rr := testutil.DoRequest(h.router, testutil.WithPrincipal(req, uuid.NewString()))

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("audit failure leaves thresholds unchanged", func(t *testing.T) {
		logger := slog.New(slog.DiscardHandler)
		store := policy.NewInMemoryStore()

		r := chi.NewRouter()
		policyhandler.New(
			store,
			policy.NewResolver(store, logger),
			audit.NewRecorder(brokenAuditStore{}),
			approval.NewNoopTx(),
			logger,
		).Register(r)

		orgID := uuid.New()
		req := testutil.NewJSONRequest(t, http.MethodPut, "/orgs/"+orgID.String()+"/policies/EUR",
			map[string]any{"auto_approve_threshold": 100, "dual_approval_threshold": 9_000})
		rr := testutil.DoRequest(r, testutil.WithPrincipal(req, uuid.NewString()))

		testutil.AssertStatus(t, rr, http.StatusInternalServerError)

		_, err := store.Find(context.Background(), id.OrgID(orgID), "EUR")
		assert.ErrorIs(t, err, sentinel.ErrNotFound,
			"thresholds must not be durable when their audit record is not")
	})

	t.Run("updated policy is visible to reads", func(t *testing.T) {
		h := newHarness(t)
		orgID := uuid.NewString()

		req := testutil.NewJSONRequest(t, http.MethodPut, "/orgs/"+orgID+"/policies/GBP",
			map[string]any{"auto_approve_threshold": 42, "dual_approval_threshold": 4_200})
		testutil.DoRequest(h.router, testutil.WithPrincipal(req, uuid.NewString()))

		rr := testutil.DoRequest(h.router,
			testutil.NewRequest(t, http.MethodGet, "/orgs/"+orgID+"/policies/GBP"))

		testutil.AssertStatusOK(t, rr)
		var got map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, float64(42), got["auto_approve_threshold"])
		assert.Equal(t, false, got["defaults"])
	})
}
