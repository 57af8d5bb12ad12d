package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"depositgate/internal/registration/models"
	id "depositgate/pkg/domain"
	"depositgate/pkg/platform/sentinel"
)

type RegistrationStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *RegistrationStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestRegistrationStoreSuite(t *testing.T) {
	suite.Run(t, new(RegistrationStoreSuite))
}

func (s *RegistrationStoreSuite) newRegistration(tenancy id.TenancyID) *models.Registration {
	reg, err := models.NewRegistration(
		id.RegistrationID(uuid.New()),
		tenancy,
		id.PropertyID(uuid.New()),
		id.UserID(uuid.New()),
		id.SchemeDPS,
		id.ProtectionCustodial,
		models.ModeAPI,
		120000,
		time.Now(),
	)
	s.Require().NoError(err)
	return reg
}

// TestCreationAndLookups verifies basic create and retrieve behavior.
func (s *RegistrationStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds registration by ID", func() {
		reg := s.newRegistration(id.TenancyID(uuid.New()))
		s.Require().NoError(s.store.Create(s.ctx, reg))

		found, err := s.store.FindByID(s.ctx, reg.ID)
		s.Require().NoError(err)
		s.Equal(reg.TenancyID, found.TenancyID)
		s.Equal(models.StatusPending, found.Status)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.RegistrationID(uuid.New()))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned registration is a copy", func() {
		reg := s.newRegistration(id.TenancyID(uuid.New()))
		s.Require().NoError(s.store.Create(s.ctx, reg))

		found, err := s.store.FindByID(s.ctx, reg.ID)
		s.Require().NoError(err)
		found.Status = models.StatusReleased

		again, err := s.store.FindByID(s.ctx, reg.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, again.Status)
	})
}

// TestTenancyUniqueness verifies the one-non-terminal-per-tenancy rule.
func (s *RegistrationStoreSuite) TestTenancyUniqueness() {
	s.Run("rejects second non-terminal registration for same tenancy", func() {
		tenancy := id.TenancyID(uuid.New())
		s.Require().NoError(s.store.Create(s.ctx, s.newRegistration(tenancy)))

		err := s.store.Create(s.ctx, s.newRegistration(tenancy))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("allows new registration once prior is terminal", func() {
		tenancy := id.TenancyID(uuid.New())
		first := s.newRegistration(tenancy)
		s.Require().NoError(s.store.Create(s.ctx, first))

		_, err := s.store.Execute(s.ctx, first.ID, "release",
			func(r *models.Registration) error { return nil },
			func(r *models.Registration) {
				r.Status = models.StatusReleased
			},
		)
		s.Require().NoError(err)

		s.Require().NoError(s.store.Create(s.ctx, s.newRegistration(tenancy)))
	})

	s.Run("finds current non-terminal registration", func() {
		tenancy := id.TenancyID(uuid.New())
		reg := s.newRegistration(tenancy)
		s.Require().NoError(s.store.Create(s.ctx, reg))

		current, err := s.store.FindCurrentByTenancy(s.ctx, tenancy)
		s.Require().NoError(err)
		s.Equal(reg.ID, current.ID)
	})

	s.Run("returns ErrNotFound when only terminal registrations exist", func() {
		tenancy := id.TenancyID(uuid.New())
		reg := s.newRegistration(tenancy)
		s.Require().NoError(s.store.Create(s.ctx, reg))

		_, err := s.store.Execute(s.ctx, reg.ID, "release",
			func(r *models.Registration) error { return nil },
			func(r *models.Registration) { r.Status = models.StatusReleased },
		)
		s.Require().NoError(err)

		_, err = s.store.FindCurrentByTenancy(s.ctx, tenancy)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestExecute verifies the atomic validate-then-mutate contract and the
// transition history it produces.
func (s *RegistrationStoreSuite) TestExecute() {
	s.Run("applies mutation and records transition", func() {
		reg := s.newRegistration(id.TenancyID(uuid.New()))
		s.Require().NoError(s.store.Create(s.ctx, reg))

		updated, err := s.store.Execute(s.ctx, reg.ID, "dispatch",
			func(r *models.Registration) error { return r.CanDispatch() },
			func(r *models.Registration) { r.ApplyDispatch(nil, time.Now()) },
		)
		s.Require().NoError(err)
		s.Equal(models.StatusInProgress, updated.Status)

		history, err := s.store.History(s.ctx, reg.ID)
		s.Require().NoError(err)
		s.Require().Len(history, 1)
		s.Equal(models.StatusPending, history[0].FromStatus)
		s.Equal(models.StatusInProgress, history[0].ToStatus)
		s.Equal("dispatch", history[0].Trigger)
	})

	s.Run("validation failure leaves state and history untouched", func() {
		reg := s.newRegistration(id.TenancyID(uuid.New()))
		s.Require().NoError(s.store.Create(s.ctx, reg))

		_, err := s.store.Execute(s.ctx, reg.ID, "retry",
			func(r *models.Registration) error { return r.CanRetry() },
			func(r *models.Registration) { r.ApplyRetry(nil, time.Now()) },
		)
		s.Require().Error(err)

		found, err := s.store.FindByID(s.ctx, reg.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, found.Status)

		history, err := s.store.History(s.ctx, reg.ID)
		s.Require().NoError(err)
		s.Empty(history)
	})

	s.Run("status-preserving mutation records no transition", func() {
		reg := s.newRegistration(id.TenancyID(uuid.New()))
		s.Require().NoError(s.store.Create(s.ctx, reg))

		dispatchAndComplete(s, reg.ID)

		_, err := s.store.Execute(s.ctx, reg.ID, "prescribed_info",
			func(r *models.Registration) error { return r.CanGenerateDocuments() },
			func(r *models.Registration) {
				r.ApplyPrescribedInfo("https://scheme.example/pi/1", time.Now())
			},
		)
		s.Require().NoError(err)

		history, err := s.store.History(s.ctx, reg.ID)
		s.Require().NoError(err)
		s.Len(history, 2, "only dispatch and complete transitions")
	})

	s.Run("failed transition captures the error message", func() {
		reg := s.newRegistration(id.TenancyID(uuid.New()))
		s.Require().NoError(s.store.Create(s.ctx, reg))

		_, err := s.store.Execute(s.ctx, reg.ID, "dispatch",
			func(r *models.Registration) error { return r.CanDispatch() },
			func(r *models.Registration) { r.ApplyDispatch(nil, time.Now()) },
		)
		s.Require().NoError(err)

		_, err = s.store.Execute(s.ctx, reg.ID, "register_failed",
			func(r *models.Registration) error { return r.CanFail() },
			func(r *models.Registration) {
				r.ApplyFailed("scheme rejected: invalid postcode", time.Now())
			},
		)
		s.Require().NoError(err)

		history, err := s.store.History(s.ctx, reg.ID)
		s.Require().NoError(err)
		s.Require().Len(history, 2)
		s.Equal("scheme rejected: invalid postcode", history[1].ErrorMessage)
	})

	s.Run("returns ErrNotFound for unknown registration", func() {
		_, err := s.store.Execute(s.ctx, id.RegistrationID(uuid.New()), "dispatch",
			func(r *models.Registration) error { return nil },
			func(r *models.Registration) {},
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestOwnerListing verifies ListByOwner ordering and filtering.
func (s *RegistrationStoreSuite) TestOwnerListing() {
	owner := id.UserID(uuid.New())

	first := s.newRegistration(id.TenancyID(uuid.New()))
	first.OwnerUserID = owner
	first.CreatedAt = time.Now().Add(-time.Hour)
	s.Require().NoError(s.store.Create(s.ctx, first))

	second := s.newRegistration(id.TenancyID(uuid.New()))
	second.OwnerUserID = owner
	second.CreatedAt = time.Now()
	s.Require().NoError(s.store.Create(s.ctx, second))

	other := s.newRegistration(id.TenancyID(uuid.New()))
	s.Require().NoError(s.store.Create(s.ctx, other))

	result, err := s.store.ListByOwner(s.ctx, owner)
	s.Require().NoError(err)
	s.Require().Len(result, 2)
	s.Equal(second.ID, result[0].ID, "newest first")
	s.Equal(first.ID, result[1].ID)
}

// TestActiveAttempt verifies the credential-in-use check.
func (s *RegistrationStoreSuite) TestActiveAttempt() {
	credID := id.CredentialID(uuid.New())

	s.Run("no registrations means no active attempt", func() {
		active, err := s.store.HasActiveAttempt(s.ctx, credID)
		s.Require().NoError(err)
		s.False(active)
	})

	s.Run("in-progress attempt referencing the credential is active", func() {
		reg := s.newRegistration(id.TenancyID(uuid.New()))
		s.Require().NoError(s.store.Create(s.ctx, reg))

		_, err := s.store.Execute(s.ctx, reg.ID, "dispatch",
			func(r *models.Registration) error { return r.CanDispatch() },
			func(r *models.Registration) { r.ApplyDispatch(&credID, time.Now()) },
		)
		s.Require().NoError(err)

		active, err := s.store.HasActiveAttempt(s.ctx, credID)
		s.Require().NoError(err)
		s.True(active)
	})

	s.Run("completed attempt is no longer active", func() {
		_, err := s.store.Execute(s.ctx, mustCurrent(s, credID).ID, "register_succeeded",
			func(r *models.Registration) error { return r.CanComplete() },
			func(r *models.Registration) {
				r.ApplyCompleted("REF-1", "", nil, time.Now())
			},
		)
		s.Require().NoError(err)

		active, err := s.store.HasActiveAttempt(s.ctx, credID)
		s.Require().NoError(err)
		s.False(active)
	})
}

func dispatchAndComplete(s *RegistrationStoreSuite, registrationID id.RegistrationID) {
	s.T().Helper()
	_, err := s.store.Execute(s.ctx, registrationID, "dispatch",
		func(r *models.Registration) error { return r.CanDispatch() },
		func(r *models.Registration) { r.ApplyDispatch(nil, time.Now()) },
	)
	s.Require().NoError(err)
	_, err = s.store.Execute(s.ctx, registrationID, "register_succeeded",
		func(r *models.Registration) error { return r.CanComplete() },
		func(r *models.Registration) { r.ApplyCompleted("REF-OK", "", nil, time.Now()) },
	)
	s.Require().NoError(err)
}

func mustCurrent(s *RegistrationStoreSuite, credID id.CredentialID) *models.Registration {
	s.T().Helper()
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	for _, reg := range s.store.registrations {
		if reg.CredentialID != nil && *reg.CredentialID == credID {
			copied := *reg
			return &copied
		}
	}
	s.Require().FailNow("no registration references credential")
	return nil
}
