package approval_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"payguard/internal/approval"
	id "payguard/pkg/domain"
	"payguard/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *approval.InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = approval.NewInMemoryStore()
}

func (s *InMemoryStoreSuite) newEntity() *approval.Entity {
	e, err := approval.NewExpense(
		id.NewEntityID(),
		id.OrgID(uuid.New()),
		500,
		"USD",
		approval.ExpenseRequest,
		time.Now(),
	)
	s.Require().NoError(err)
	return e
}

func (s *InMemoryStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	e := s.newEntity()

	s.Require().NoError(s.store.Create(ctx, e))

	found, err := s.store.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(e.ID, found.ID)
	s.Equal(approval.StatusPending, found.Status)
}

func (s *InMemoryStoreSuite) TestCreateDuplicate() {
	ctx := context.Background()
	e := s.newEntity()

	s.Require().NoError(s.store.Create(ctx, e))
	s.True(errors.Is(s.store.Create(ctx, e), sentinel.ErrConflict))
}

func (s *InMemoryStoreSuite) TestFindReturnsCopy() {
	ctx := context.Background()
	e := s.newEntity()
	s.Require().NoError(s.store.Create(ctx, e))

	found, err := s.store.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	found.Status = approval.StatusApproved

	again, err := s.store.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(approval.StatusPending, again.Status, "mutating a result must not leak into the store")
}

func (s *InMemoryStoreSuite) TestCompareAndSet() {
	ctx := context.Background()
	e := s.newEntity()
	s.Require().NoError(s.store.Create(ctx, e))

	next := e.Clone()
	next.Status = approval.StatusApproved
	next.Version = 2
	s.Require().NoError(s.store.CompareAndSet(ctx, next, 1))

	stale := e.Clone()
	stale.Status = approval.StatusRejected
	stale.Version = 2
	s.True(errors.Is(s.store.CompareAndSet(ctx, stale, 1), sentinel.ErrConflict))

	ghost := s.newEntity()
	s.True(errors.Is(s.store.CompareAndSet(ctx, ghost, 1), sentinel.ErrNotFound))
}
