//go:build integration

package approval_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"payguard/internal/approval"
	platformpostgres "payguard/internal/platform/postgres"
	id "payguard/pkg/domain"
	"payguard/pkg/platform/sentinel"
	"payguard/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *approval.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(platformpostgres.EnsureSchema(context.Background(), s.postgres.DB))
	s.store = approval.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "entities"))
}

func newStoredPayout(initiator id.PrincipalID) *approval.Entity {
	e, err := approval.NewPayout(
		id.NewEntityID(),
		id.OrgID(uuid.New()),
		9_000,
		"EUR",
		initiator,
		time.Now().UTC().Truncate(time.Microsecond),
	)
	if err != nil {
		panic(err)
	}
	return e
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	initiator := id.PrincipalID(uuid.New())
	e := newStoredPayout(initiator)

	s.Require().NoError(s.store.Create(ctx, e))

	found, err := s.store.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(e.ID, found.ID)
	s.Equal(approval.TypePayout, found.Type)
	s.Equal(approval.StatusPending, found.Status)
	s.Equal(initiator, found.InitiatedBy)
	s.Nil(found.FirstApprover)
	s.Equal(int64(1), found.Version)
}

func (s *PostgresStoreSuite) TestCreateDuplicateConflicts() {
	ctx := context.Background()
	e := newStoredPayout(id.PrincipalID(uuid.New()))

	s.Require().NoError(s.store.Create(ctx, e))
	err := s.store.Create(ctx, e)
	s.True(errors.Is(err, sentinel.ErrConflict))
}

func (s *PostgresStoreSuite) TestFindUnknownReturnsNotFound() {
	_, err := s.store.FindByID(context.Background(), id.NewEntityID())
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestCompareAndSet() {
	ctx := context.Background()
	e := newStoredPayout(id.PrincipalID(uuid.New()))
	s.Require().NoError(s.store.Create(ctx, e))

	approver := id.PrincipalID(uuid.New())
	next := e.Clone()
	next.Status = approval.StatusPendingSecondApproval
	next.FirstApprover = &approver
	next.Version = 2
	next.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

	s.Require().NoError(s.store.CompareAndSet(ctx, next, 1))

	found, err := s.store.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(approval.StatusPendingSecondApproval, found.Status)
	s.Require().NotNil(found.FirstApprover)
	s.Equal(approver, *found.FirstApprover)
	s.Equal(int64(2), found.Version)

	s.Run("stale version conflicts", func() {
		stale := e.Clone()
		stale.Status = approval.StatusApproved
		stale.Version = 2
		err := s.store.CompareAndSet(ctx, stale, 1)
		s.True(errors.Is(err, sentinel.ErrConflict))
	})

	s.Run("unknown entity is not found", func() {
		ghost := newStoredPayout(id.PrincipalID(uuid.New()))
		err := s.store.CompareAndSet(ctx, ghost, 1)
		s.True(errors.Is(err, sentinel.ErrNotFound))
	})
}

// TestConcurrentCompareAndSet verifies the database arbitrates racing
// transitions: exactly one writer per version wins.
func (s *PostgresStoreSuite) TestConcurrentCompareAndSet() {
	ctx := context.Background()
	e := newStoredPayout(id.PrincipalID(uuid.New()))
	s.Require().NoError(s.store.Create(ctx, e))

	const goroutines = 20
	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			approver := id.PrincipalID(uuid.New())
			next := e.Clone()
			next.Status = approval.StatusPendingSecondApproval
			next.FirstApprover = &approver
			next.Version = 2
			next.UpdatedAt = time.Now().UTC()

			err := s.store.CompareAndSet(ctx, next, 1)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one transition should win")
	s.Equal(int32(goroutines-1), conflictCount.Load())

	found, err := s.store.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), found.Version)
}
