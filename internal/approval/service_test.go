package approval_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"payguard/internal/approval"
	"payguard/internal/approval/mocks"
	"payguard/internal/audit"
	"payguard/internal/execution"
	"payguard/internal/policy"
	id "payguard/pkg/domain"
	dErrors "payguard/pkg/domain-errors"
	"payguard/pkg/platform/sentinel"
	"payguard/pkg/requestcontext"
)

type fixture struct {
	service    *approval.Service
	entities   *approval.InMemoryStore
	auditStore *audit.InMemoryStore
	policies   *policy.InMemoryStore
	outbox     *execution.InMemoryOutbox
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	entities := approval.NewInMemoryStore()
	auditStore := audit.NewInMemoryStore()
	policies := policy.NewInMemoryStore()
	outbox := execution.NewInMemoryOutbox()

	service := approval.NewService(
		entities,
		audit.NewRecorder(auditStore),
		policy.NewResolver(policies, logger),
		outbox,
		approval.NewNoopTx(),
		nil,
		logger,
	)
	return &fixture{
		service:    service,
		entities:   entities,
		auditStore: auditStore,
		policies:   policies,
		outbox:     outbox,
	}
}

func asPrincipal(ctx context.Context, p id.PrincipalID) context.Context {
	return requestcontext.WithPrincipal(ctx, p)
}

func newPrincipal() id.PrincipalID {
	return id.PrincipalID(uuid.New())
}

func newOrg() id.OrgID {
	return id.OrgID(uuid.New())
}

func setPolicy(t *testing.T, f *fixture, orgID id.OrgID, auto, dual int64) {
	t.Helper()
	err := f.policies.Upsert(context.Background(), policy.OrgPolicy{
		OrgID:        orgID,
		Currency:     "EUR",
		AutoApprove:  auto,
		DualApproval: dual,
		UpdatedAt:    time.Now(),
	})
	require.NoError(t, err)
}

func TestSubmitExpense(t *testing.T) {
	t.Run("spent expense auto-approves with audit trail", func(t *testing.T) {
		f := newFixture(t)
		ctx := asPrincipal(context.Background(), newPrincipal())

		result, err := f.service.SubmitExpense(ctx, newOrg(), 100_000, "EUR", approval.ExpenseSpent)
		require.NoError(t, err)

		assert.Equal(t, approval.StatusApproved, result.Entity.Status)
		assert.True(t, result.Decision.AutoApproved)
		assert.Equal(t, approval.ReasonAlreadySpent, result.Decision.Reason)

		entries, err := f.auditStore.ListByEntity(ctx, result.Entity.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, string(approval.ActionSubmit), entries[0].Action)
		assert.Equal(t, string(approval.ActionEvaluate), entries[1].Action)

		rows, err := f.outbox.NextBatch(ctx, 10)
		require.NoError(t, err)
		require.Len(t, rows, 1, "auto-approved expense must enqueue its execution signal")
		assert.Equal(t, result.Entity.ID, rows[0].Signal.EntityID)
		assert.Equal(t, string(approval.TypeExpense), rows[0].Signal.EntityType)
	})

	t.Run("request above threshold stays pending", func(t *testing.T) {
		f := newFixture(t)
		orgID := newOrg()
		setPolicy(t, f, orgID, 100, 5_000)
		ctx := asPrincipal(context.Background(), newPrincipal())

		result, err := f.service.SubmitExpense(ctx, orgID, 101, "EUR", approval.ExpenseRequest)
		require.NoError(t, err)

		assert.Equal(t, approval.StatusPending, result.Entity.Status)
		assert.False(t, result.Decision.AutoApproved)

		rows, err := f.outbox.NextBatch(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, rows, "pending expense must not signal execution")
	})

	t.Run("defaults apply when no policy configured", func(t *testing.T) {
		f := newFixture(t)
		ctx := asPrincipal(context.Background(), newPrincipal())

		// Default auto-approve threshold is zero: every request needs review.
		result, err := f.service.SubmitExpense(ctx, newOrg(), 1, "EUR", approval.ExpenseRequest)
		require.NoError(t, err)
		assert.Equal(t, approval.StatusPending, result.Entity.Status)
	})

	t.Run("unauthenticated submission is refused", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.SubmitExpense(context.Background(), newOrg(), 100, "EUR", approval.ExpenseSpent)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestSubmitDecision_Expense(t *testing.T) {
	f := newFixture(t)
	orgID := newOrg()
	setPolicy(t, f, orgID, 100, 5_000)

	submitter := asPrincipal(context.Background(), newPrincipal())
	pendingExpense, err := f.service.SubmitExpense(submitter, orgID, 500, "EUR", approval.ExpenseRequest)
	require.NoError(t, err)
	require.Equal(t, approval.StatusPending, pendingExpense.Entity.Status)

	t.Run("human approval of pending expense is not auto-approval", func(t *testing.T) {
		ctx := asPrincipal(context.Background(), newPrincipal())

		result, err := f.service.SubmitDecision(ctx, pendingExpense.Entity.ID, approval.ActionApprove, nil)
		require.NoError(t, err)

		assert.Equal(t, approval.StatusApproved, result.Entity.Status)
		assert.False(t, result.Decision.AutoApproved)
		assert.Equal(t, pendingExpense.Entity.Version+1, result.Entity.Version)

		rows, err := f.outbox.NextBatch(ctx, 10)
		require.NoError(t, err)
		require.Len(t, rows, 1, "approved expense must enqueue its execution signal")
		assert.Equal(t, pendingExpense.Entity.ID, rows[0].Signal.EntityID)
		assert.Equal(t, string(approval.TypeExpense), rows[0].Signal.EntityType)
	})

	t.Run("decision on terminal expense is refused without audit", func(t *testing.T) {
		ctx := asPrincipal(context.Background(), newPrincipal())

		before, err := f.auditStore.ListByEntity(ctx, pendingExpense.Entity.ID)
		require.NoError(t, err)

		_, err = f.service.SubmitDecision(ctx, pendingExpense.Entity.ID, approval.ActionReject, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

		after, err := f.auditStore.ListByEntity(ctx, pendingExpense.Entity.ID)
		require.NoError(t, err)
		assert.Len(t, after, len(before), "refused decision must not add audit entries")
	})
}

func TestSubmitDecision_IllegalTransitionRefused(t *testing.T) {
	f := newFixture(t)
	orgID := newOrg()
	setPolicy(t, f, orgID, 0, 5_000)

	// An entity waiting on its second approval but with no recorded first
	// approver is a shape the engine can only answer with another first leg,
	// which the lifecycle forbids. Seed it directly to prove the orchestrator
	// refuses to commit rather than trusting the engine output blindly.
	entity, err := approval.NewPayout(id.NewEntityID(), orgID, 9_000, "EUR", newPrincipal(), time.Now())
	require.NoError(t, err)
	entity.Status = approval.StatusPendingSecondApproval
	require.NoError(t, f.entities.Create(context.Background(), entity))

	_, err = f.service.SubmitDecision(
		asPrincipal(context.Background(), newPrincipal()),
		entity.ID, approval.ActionApprove, nil,
	)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	entries, err := f.auditStore.ListByEntity(context.Background(), entity.ID)
	require.NoError(t, err)
	assert.Empty(t, entries, "a refused transition must not touch the trail")

	reloaded, err := f.entities.FindByID(context.Background(), entity.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.Version, reloaded.Version)
	assert.Equal(t, approval.StatusPendingSecondApproval, reloaded.Status)
}

func TestSubmitDecision_Payout(t *testing.T) {
	t.Run("low-value payout approved by single non-initiator", func(t *testing.T) {
		f := newFixture(t)
		orgID := newOrg()
		setPolicy(t, f, orgID, 0, 5_000)

		initiator := newPrincipal()
		submitted, err := f.service.SubmitPayout(asPrincipal(context.Background(), initiator), orgID, 1_000, "EUR")
		require.NoError(t, err)

		result, err := f.service.SubmitDecision(
			asPrincipal(context.Background(), newPrincipal()),
			submitted.Entity.ID, approval.ActionApprove, nil,
		)
		require.NoError(t, err)

		assert.Equal(t, approval.StatusApproved, result.Entity.Status)
		assert.Nil(t, result.Entity.FirstApprover)

		rows, err := f.outbox.NextBatch(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, rows, 1, "approved payout must enqueue exactly one execution signal")
		assert.Equal(t, submitted.Entity.ID, rows[0].Signal.EntityID)
		assert.Equal(t, string(approval.StatusApproved), rows[0].Signal.ResultingStatus)
	})

	t.Run("self-approval rejects with documented reason", func(t *testing.T) {
		f := newFixture(t)
		orgID := newOrg()
		setPolicy(t, f, orgID, 0, 5_000)

		initiator := newPrincipal()
		ctx := asPrincipal(context.Background(), initiator)
		submitted, err := f.service.SubmitPayout(ctx, orgID, 1_000, "EUR")
		require.NoError(t, err)

		result, err := f.service.SubmitDecision(ctx, submitted.Entity.ID, approval.ActionApprove, nil)
		require.NoError(t, err, "a business rejection is a normal outcome, not an error")

		assert.Equal(t, approval.StatusRejected, result.Entity.Status)
		assert.Equal(t, approval.ReasonSelfApproval, result.Decision.Reason)

		rows, err := f.outbox.NextBatch(context.Background(), 10)
		require.NoError(t, err)
		assert.Empty(t, rows, "rejections never signal execution")
	})

	t.Run("high-value payout requires two distinct approvers", func(t *testing.T) {
		f := newFixture(t)
		orgID := newOrg()
		setPolicy(t, f, orgID, 0, 5_000)

		initiator := newPrincipal()
		first := newPrincipal()
		second := newPrincipal()

		submitted, err := f.service.SubmitPayout(asPrincipal(context.Background(), initiator), orgID, 5_000, "EUR")
		require.NoError(t, err)

		leg1, err := f.service.SubmitDecision(
			asPrincipal(context.Background(), first),
			submitted.Entity.ID, approval.ActionApprove, nil,
		)
		require.NoError(t, err)
		assert.Equal(t, approval.StatusPendingSecondApproval, leg1.Entity.Status)
		require.NotNil(t, leg1.Entity.FirstApprover)
		assert.Equal(t, first, *leg1.Entity.FirstApprover)

		rows, err := f.outbox.NextBatch(context.Background(), 10)
		require.NoError(t, err)
		assert.Empty(t, rows, "first leg must not signal execution")

		leg2, err := f.service.SubmitDecision(
			asPrincipal(context.Background(), second),
			submitted.Entity.ID, approval.ActionApprove, nil,
		)
		require.NoError(t, err)
		assert.Equal(t, approval.StatusApproved, leg2.Entity.Status)

		rows, err = f.outbox.NextBatch(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("same approver cannot complete both legs", func(t *testing.T) {
		f := newFixture(t)
		orgID := newOrg()
		setPolicy(t, f, orgID, 0, 5_000)

		first := newPrincipal()
		submitted, err := f.service.SubmitPayout(asPrincipal(context.Background(), newPrincipal()), orgID, 9_000, "EUR")
		require.NoError(t, err)

		_, err = f.service.SubmitDecision(asPrincipal(context.Background(), first), submitted.Entity.ID, approval.ActionApprove, nil)
		require.NoError(t, err)

		result, err := f.service.SubmitDecision(asPrincipal(context.Background(), first), submitted.Entity.ID, approval.ActionApprove, nil)
		require.NoError(t, err)
		assert.Equal(t, approval.StatusRejected, result.Entity.Status)
		assert.Equal(t, approval.ReasonSameSecondApprover, result.Decision.Reason)
	})

	t.Run("reject is honored at any live state", func(t *testing.T) {
		f := newFixture(t)
		orgID := newOrg()
		setPolicy(t, f, orgID, 0, 5_000)

		submitted, err := f.service.SubmitPayout(asPrincipal(context.Background(), newPrincipal()), orgID, 9_000, "EUR")
		require.NoError(t, err)

		_, err = f.service.SubmitDecision(asPrincipal(context.Background(), newPrincipal()), submitted.Entity.ID, approval.ActionApprove, nil)
		require.NoError(t, err)

		result, err := f.service.SubmitDecision(asPrincipal(context.Background(), newPrincipal()), submitted.Entity.ID, approval.ActionReject, nil)
		require.NoError(t, err)
		assert.Equal(t, approval.StatusRejected, result.Entity.Status)
		assert.Equal(t, approval.ReasonRejectedByApprover, result.Decision.Reason)
	})

	t.Run("unknown entity yields not found", func(t *testing.T) {
		f := newFixture(t)
		ctx := asPrincipal(context.Background(), newPrincipal())

		_, err := f.service.SubmitDecision(ctx, id.NewEntityID(), approval.ActionApprove, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestSubmitDecision_AuditInvariants(t *testing.T) {
	f := newFixture(t)
	orgID := newOrg()
	setPolicy(t, f, orgID, 0, 5_000)

	submitted, err := f.service.SubmitPayout(asPrincipal(context.Background(), newPrincipal()), orgID, 9_000, "EUR")
	require.NoError(t, err)

	first := newPrincipal()
	second := newPrincipal()
	_, err = f.service.SubmitDecision(asPrincipal(context.Background(), first), submitted.Entity.ID, approval.ActionApprove, nil)
	require.NoError(t, err)
	_, err = f.service.SubmitDecision(asPrincipal(context.Background(), second), submitted.Entity.ID, approval.ActionApprove, nil)
	require.NoError(t, err)

	entries, err := f.auditStore.ListByEntity(context.Background(), submitted.Entity.ID)
	require.NoError(t, err)

	// Submission plus one entry per decision that reached the engine.
	require.Len(t, entries, 3)
	assert.Equal(t, string(approval.ActionSubmit), entries[0].Action)
	assert.Equal(t, first, entries[1].PerformedBy)
	assert.Equal(t, second, entries[2].PerformedBy)

	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].Timestamp.Before(entries[i-1].Timestamp),
			"trail timestamps must be non-decreasing")
	}
}

func TestSubmitDecision_VersionConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := slog.New(slog.DiscardHandler)

	initiator := newPrincipal()
	stale, err := approval.NewPayout(id.NewEntityID(), newOrg(), 1_000, "EUR", initiator, time.Now())
	require.NoError(t, err)

	entities := mocks.NewMockEntityStore(ctrl)
	entities.EXPECT().FindByID(gomock.Any(), stale.ID).Return(stale, nil)
	entities.EXPECT().CompareAndSet(gomock.Any(), gomock.Any(), stale.Version).Return(sentinel.ErrConflict)

	auditStore := audit.NewInMemoryStore()
	service := approval.NewService(
		entities,
		audit.NewRecorder(auditStore),
		policy.NewResolver(policy.NewInMemoryStore(), logger),
		execution.NewInMemoryOutbox(),
		approval.NewNoopTx(),
		nil,
		logger,
	)

	ctx := asPrincipal(context.Background(), newPrincipal())
	_, err = service.SubmitDecision(ctx, stale.ID, approval.ActionApprove, nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	entries, listErr := auditStore.ListByEntity(context.Background(), stale.ID)
	require.NoError(t, listErr)
	assert.Empty(t, entries, "a lost race must not leave audit entries")
}

func TestSubmitDecision_ConcurrentFirstLeg(t *testing.T) {
	f := newFixture(t)
	orgID := newOrg()
	setPolicy(t, f, orgID, 0, 5_000)

	submitted, err := f.service.SubmitPayout(asPrincipal(context.Background(), newPrincipal()), orgID, 9_000, "EUR")
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ctx := asPrincipal(context.Background(), newPrincipal())
			_, results[n] = f.service.SubmitDecision(ctx, submitted.Entity.ID, approval.ActionApprove, nil)
		}(i)
	}
	wg.Wait()

	var succeeded, conflicted, invalidState int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case dErrors.HasCode(err, dErrors.CodeConflict):
			conflicted++
		case dErrors.HasCode(err, dErrors.CodeInvalidState):
			invalidState++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, attempts, succeeded+conflicted+invalidState)
	assert.GreaterOrEqual(t, succeeded, 1)

	// Whatever the interleaving, each commit bumped the version exactly once
	// and left exactly one audit entry.
	final, err := f.service.GetEntity(asPrincipal(context.Background(), newPrincipal()), submitted.Entity.ID)
	require.NoError(t, err)
	entries, err := f.auditStore.ListByEntity(context.Background(), submitted.Entity.ID)
	require.NoError(t, err)
	assert.Equal(t, final.Version, int64(len(entries)), "one audit entry per committed version")
}

func TestTrail(t *testing.T) {
	f := newFixture(t)
	ctx := asPrincipal(context.Background(), newPrincipal())

	t.Run("unknown entity yields not found", func(t *testing.T) {
		_, err := f.service.Trail(ctx, id.NewEntityID())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("returns entries oldest first", func(t *testing.T) {
		result, err := f.service.SubmitExpense(ctx, newOrg(), 100, "EUR", approval.ExpenseSpent)
		require.NoError(t, err)

		entries, err := f.service.Trail(ctx, result.Entity.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, string(approval.ActionSubmit), entries[0].Action)
	})
}
