package approval

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"payguard/internal/approval/metrics"
	"payguard/internal/audit"
	"payguard/internal/execution"
	"payguard/internal/policy"
	id "payguard/pkg/domain"
	dErrors "payguard/pkg/domain-errors"
	"payguard/pkg/platform/sentinel"
	"payguard/pkg/requestcontext"
)

var tracer = otel.Tracer("payguard/approval")

// Result is what a decision submission returns to the caller: the committed
// entity state and the engine's verdict that produced it. A rejection is a
// Result, not an error.
type Result struct {
	Entity   *Entity
	Decision Decision
}

// Service is the orchestrator. It loads entity state, consults policy, runs
// the pure decision functions, and commits the transition, its audit entry,
// and any execution signal in a single atomic boundary.
//
// Concurrency is handled optimistically: the version observed at load time
// guards the commit, and a lost race surfaces as a conflict for the caller to
// retry against fresh state. The service never retries internally and never
// silently overwrites.
type Service struct {
	entities EntityStore
	recorder *audit.Recorder
	resolver *policy.Resolver
	outbox   execution.Enqueuer
	txRunner StoreTx
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewService(
	entities EntityStore,
	recorder *audit.Recorder,
	resolver *policy.Resolver,
	outbox execution.Enqueuer,
	txRunner StoreTx,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		entities: entities,
		recorder: recorder,
		resolver: resolver,
		outbox:   outbox,
		txRunner: txRunner,
		metrics:  m,
		logger:   logger,
	}
}

// SubmitExpense creates a pending expense claim and immediately runs it
// through the auto-approval evaluation. The submit and the evaluation verdict
// each get an audit entry, committed atomically with the entity; an
// auto-approved claim enqueues its execution signal in the same commit.
func (s *Service) SubmitExpense(ctx context.Context, orgID id.OrgID, amountMinor int64, currency id.Currency, expenseType ExpenseType) (*Result, error) {
	ctx, span := tracer.Start(ctx, "approval.SubmitExpense")
	defer span.End()

	principal := requestcontext.Principal(ctx)
	if principal.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "no authenticated principal")
	}

	now := requestcontext.Now(ctx)
	entity, err := NewExpense(id.NewEntityID(), orgID, amountMinor, currency, expenseType, now)
	if err != nil {
		return nil, err
	}

	thresholds, fellBack := s.resolver.Resolve(ctx, orgID, currency)
	if fellBack {
		s.metrics.IncrementPolicyFallback()
	}
	decision := EvaluateExpense(amountMinor, expenseType, thresholds.AutoApprove)

	submitted := entity.Snapshot()
	if decision.ResultingStatus != StatusPending {
		entity.Status = decision.ResultingStatus
	}

	err = s.txRunner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.entities.Create(txCtx, entity); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create expense")
		}
		if _, err := s.recorder.Record(txCtx, s.entry(txCtx, entity, ActionSubmit, principal, nil, submitted, nil)); err != nil {
			return err
		}
		if _, err := s.recorder.Record(txCtx, s.entry(txCtx, entity, ActionEvaluate, principal, submitted, entity.Snapshot(), decisionMetadata(decision))); err != nil {
			return err
		}
		if entity.Status == StatusApproved {
			if err := s.outbox.Enqueue(txCtx, signalFor(entity)); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to enqueue execution signal")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.finish(span, entity, decision)
	return &Result{Entity: entity, Decision: decision}, nil
}

// SubmitPayout creates a pending payout initiated by the authenticated
// principal. Payouts never auto-approve; evaluation happens on the first
// approval attempt.
func (s *Service) SubmitPayout(ctx context.Context, orgID id.OrgID, amountMinor int64, currency id.Currency) (*Result, error) {
	ctx, span := tracer.Start(ctx, "approval.SubmitPayout")
	defer span.End()

	principal := requestcontext.Principal(ctx)
	if principal.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "no authenticated principal")
	}

	now := requestcontext.Now(ctx)
	entity, err := NewPayout(id.NewEntityID(), orgID, amountMinor, currency, principal, now)
	if err != nil {
		return nil, err
	}

	err = s.txRunner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.entities.Create(txCtx, entity); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create payout")
		}
		if _, err := s.recorder.Record(txCtx, s.entry(txCtx, entity, ActionSubmit, principal, nil, entity.Snapshot(), nil)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	decision := Decision{ResultingStatus: StatusPending}
	s.finish(span, entity, decision)
	return &Result{Entity: entity, Decision: decision}, nil
}

// SubmitDecision applies an approve or reject action to an entity.
//
// The flow is load, gate, decide, commit: terminal entities are refused with
// an invalid-state error before the engine runs, policy resolution never
// blocks (defaults apply when unavailable), and the commit is guarded by the
// version observed at load. Exactly one audit entry is written per submission
// that reaches the engine, inside the same transaction as the state change.
// When the entity lands on approved, its execution signal is enqueued in that
// transaction too.
func (s *Service) SubmitDecision(ctx context.Context, entityID id.EntityID, action Action, metadata map[string]any) (*Result, error) {
	ctx, span := tracer.Start(ctx, "approval.SubmitDecision",
		trace.WithAttributes(attribute.String("entity_id", entityID.String())),
	)
	defer span.End()

	started := time.Now()
	defer func() { s.metrics.ObserveSubmitLatency(time.Since(started)) }()

	principal := requestcontext.Principal(ctx)
	if principal.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "no authenticated principal")
	}

	loaded, err := s.entities.FindByID(ctx, entityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "entity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entity")
	}

	if loaded.Status.IsTerminal() {
		return nil, dErrors.New(dErrors.CodeInvalidState,
			"entity is already "+string(loaded.Status))
	}

	thresholds, fellBack := s.resolver.Resolve(ctx, loaded.OrgID, loaded.Currency)
	if fellBack {
		s.metrics.IncrementPolicyFallback()
	}

	decision := s.decide(loaded, action, principal, thresholds)
	if !loaded.Status.CanTransitionTo(decision.ResultingStatus) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation,
			"illegal transition from "+string(loaded.Status)+" to "+string(decision.ResultingStatus))
	}

	expectedVersion := loaded.Version
	entity := loaded.Clone()
	previous := entity.Snapshot()
	s.apply(entity, decision, principal)
	entity.Version = expectedVersion + 1
	entity.UpdatedAt = requestcontext.Now(ctx)

	err = s.txRunner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.entities.CompareAndSet(txCtx, entity, expectedVersion); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Wrap(err, dErrors.CodeConflict, "entity changed concurrently, retry with fresh state")
			}
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Wrap(err, dErrors.CodeNotFound, "entity not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist transition")
		}
		if _, err := s.recorder.Record(txCtx, s.entry(txCtx, entity, action, principal, previous, entity.Snapshot(), mergeMetadata(metadata, decision))); err != nil {
			return err
		}
		if entity.Status == StatusApproved {
			if err := s.outbox.Enqueue(txCtx, signalFor(entity)); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to enqueue execution signal")
			}
		}
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			s.metrics.IncrementConflict(string(loaded.Type))
		}
		return nil, err
	}

	s.finish(span, entity, decision)
	s.logger.InfoContext(ctx, "decision committed",
		"entity_id", entity.ID,
		"entity_type", entity.Type,
		"action", action,
		"status", entity.Status,
		"version", entity.Version,
	)
	return &Result{Entity: entity, Decision: decision}, nil
}

// GetEntity returns the current state of an entity.
func (s *Service) GetEntity(ctx context.Context, entityID id.EntityID) (*Entity, error) {
	entity, err := s.entities.FindByID(ctx, entityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "entity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entity")
	}
	return entity, nil
}

// Trail returns the audit trail for an entity, oldest first. The entity must
// exist; an empty trail for a live entity would indicate a bug.
func (s *Service) Trail(ctx context.Context, entityID id.EntityID) ([]audit.Entry, error) {
	if _, err := s.GetEntity(ctx, entityID); err != nil {
		return nil, err
	}
	return s.recorder.Trail(ctx, entityID)
}

// decide maps the caller's action onto the pure engine.
//
// Reject is always honored for a live entity. Approve on a payout runs the
// maker-checker evaluation; approve on an expense is a human override of a
// claim the engine left pending, so it approves directly without
// auto-approved semantics.
func (s *Service) decide(e *Entity, action Action, approver id.PrincipalID, t policy.Thresholds) Decision {
	if action == ActionReject {
		return Decision{ResultingStatus: StatusRejected, Reason: ReasonRejectedByApprover}
	}

	if e.Type == TypePayout {
		return EvaluatePayoutApproval(e.AmountMinor, t.DualApproval, e.InitiatedBy, approver, e.FirstApprover)
	}

	return Decision{ResultingStatus: StatusApproved, Reason: ReasonApprovedByApprover}
}

// apply writes the decision onto the entity. The first leg of a dual
// approval records the approver so the second leg can enforce a different
// principal.
func (s *Service) apply(e *Entity, decision Decision, approver id.PrincipalID) {
	if decision.ResultingStatus == StatusPendingSecondApproval && e.FirstApprover == nil {
		fa := approver
		e.FirstApprover = &fa
	}
	e.Status = decision.ResultingStatus
}

func (s *Service) entry(ctx context.Context, e *Entity, action Action, principal id.PrincipalID, previous, next []byte, metadata map[string]any) audit.Entry {
	return audit.Entry{
		EntityType:    string(e.Type),
		EntityID:      e.ID,
		Action:        string(action),
		PerformedBy:   principal,
		PreviousState: previous,
		NewState:      next,
		Metadata:      metadata,
		IPAddress:     requestcontext.ClientIP(ctx),
	}
}

func (s *Service) finish(span trace.Span, e *Entity, decision Decision) {
	span.SetAttributes(
		attribute.String("entity_type", string(e.Type)),
		attribute.String("status", string(e.Status)),
	)
	s.metrics.IncrementOutcome(string(e.Type), string(e.Status))
}

// signalFor builds the execution signal for an entity that reached approved.
// Every approval signals, expense and payout alike; consumers filter on the
// entity type they execute.
func signalFor(e *Entity) execution.Signal {
	return execution.Signal{
		EntityID:        e.ID,
		EntityType:      string(e.Type),
		ResultingStatus: string(e.Status),
		AmountMinor:     e.AmountMinor,
		Currency:        e.Currency,
	}
}

func decisionMetadata(d Decision) map[string]any {
	m := map[string]any{
		"auto_approved": d.AutoApproved,
	}
	if d.Reason != "" {
		m["reason"] = d.Reason
	}
	return m
}

func mergeMetadata(metadata map[string]any, d Decision) map[string]any {
	merged := make(map[string]any, len(metadata)+3)
	for k, v := range metadata {
		merged[k] = v
	}
	if d.Reason != "" {
		merged["reason"] = d.Reason
	}
	if d.RequiresDualApproval {
		merged["requires_dual_approval"] = true
	}
	return merged
}
