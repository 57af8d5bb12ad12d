//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"depositgate/internal/registration/models"
	"depositgate/internal/registration/store"
	id "depositgate/pkg/domain"
	"depositgate/pkg/platform/sentinel"
	"depositgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "registration_transitions", "registrations")
	s.Require().NoError(err)
}

func newTestRegistration(s *PostgresStoreSuite, tenancy id.TenancyID) *models.Registration {
	reg, err := models.NewRegistration(
		id.RegistrationID(uuid.New()),
		tenancy,
		id.PropertyID(uuid.New()),
		id.UserID(uuid.New()),
		id.SchemeDPS,
		id.ProtectionCustodial,
		models.ModeAPI,
		120000,
		time.Now().UTC(),
	)
	s.Require().NoError(err)
	return reg
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	reg := newTestRegistration(s, id.TenancyID(uuid.New()))
	s.Require().NoError(s.store.Create(ctx, reg))

	found, err := s.store.FindByID(ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(reg.TenancyID, found.TenancyID)
	s.Equal(models.StatusPending, found.Status)
	s.Nil(found.CredentialID)
	s.Nil(found.ExpiryDate)
}

// TestConcurrentCreateForTenancy verifies the partial unique index lets
// exactly one of many racing creates through.
func (s *PostgresStoreSuite) TestConcurrentCreateForTenancy() {
	ctx := context.Background()
	tenancy := id.TenancyID(uuid.New())
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, newTestRegistration(s, tenancy))
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create must win")
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

// TestConcurrentExecute verifies that FOR UPDATE serializes competing
// transitions so exactly one dispatch succeeds.
func (s *PostgresStoreSuite) TestConcurrentExecute() {
	ctx := context.Background()
	reg := newTestRegistration(s, id.TenancyID(uuid.New()))
	s.Require().NoError(s.store.Create(ctx, reg))

	const goroutines = 10
	var wg sync.WaitGroup
	var successCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(ctx, reg.ID, "dispatch",
				func(r *models.Registration) error { return r.CanDispatch() },
				func(r *models.Registration) { r.ApplyDispatch(nil, time.Now().UTC()) },
			)
			if err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one dispatch must win")

	history, err := s.store.History(ctx, reg.ID)
	s.Require().NoError(err)
	s.Len(history, 1)
}

func (s *PostgresStoreSuite) TestExecuteRecordsHistory() {
	ctx := context.Background()
	reg := newTestRegistration(s, id.TenancyID(uuid.New()))
	s.Require().NoError(s.store.Create(ctx, reg))

	_, err := s.store.Execute(ctx, reg.ID, "dispatch",
		func(r *models.Registration) error { return r.CanDispatch() },
		func(r *models.Registration) { r.ApplyDispatch(nil, time.Now().UTC()) },
	)
	s.Require().NoError(err)

	_, err = s.store.Execute(ctx, reg.ID, "register_failed",
		func(r *models.Registration) error { return r.CanFail() },
		func(r *models.Registration) {
			r.ApplyFailed("scheme timeout", time.Now().UTC())
		},
	)
	s.Require().NoError(err)

	history, err := s.store.History(ctx, reg.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal("dispatch", history[0].Trigger)
	s.Equal(models.StatusPending, history[0].FromStatus)
	s.Equal(models.StatusInProgress, history[0].ToStatus)
	s.Equal("register_failed", history[1].Trigger)
	s.Equal("scheme timeout", history[1].ErrorMessage)
}

func (s *PostgresStoreSuite) TestTerminalAllowsNewRegistration() {
	ctx := context.Background()
	tenancy := id.TenancyID(uuid.New())
	first := newTestRegistration(s, tenancy)
	s.Require().NoError(s.store.Create(ctx, first))

	s.Require().ErrorIs(s.store.Create(ctx, newTestRegistration(s, tenancy)), sentinel.ErrConflict)

	_, err := s.store.Execute(ctx, first.ID, "dispatch",
		func(r *models.Registration) error { return r.CanDispatch() },
		func(r *models.Registration) { r.ApplyDispatch(nil, time.Now().UTC()) },
	)
	s.Require().NoError(err)
	_, err = s.store.Execute(ctx, first.ID, "register_succeeded",
		func(r *models.Registration) error { return r.CanComplete() },
		func(r *models.Registration) { r.ApplyCompleted("REF-1", "", nil, time.Now().UTC()) },
	)
	s.Require().NoError(err)
	_, err = s.store.Execute(ctx, first.ID, "release",
		func(r *models.Registration) error { return r.CanRelease() },
		func(r *models.Registration) { r.ApplyRelease(time.Now().UTC()) },
	)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Create(ctx, newTestRegistration(s, tenancy)))
}

func (s *PostgresStoreSuite) TestHasActiveAttempt() {
	ctx := context.Background()
	credID := id.CredentialID(uuid.New())

	active, err := s.store.HasActiveAttempt(ctx, credID)
	s.Require().NoError(err)
	s.False(active)

	reg := newTestRegistration(s, id.TenancyID(uuid.New()))
	s.Require().NoError(s.store.Create(ctx, reg))
	_, err = s.store.Execute(ctx, reg.ID, "dispatch",
		func(r *models.Registration) error { return r.CanDispatch() },
		func(r *models.Registration) { r.ApplyDispatch(&credID, time.Now().UTC()) },
	)
	s.Require().NoError(err)

	active, err = s.store.HasActiveAttempt(ctx, credID)
	s.Require().NoError(err)
	s.True(active)
}
