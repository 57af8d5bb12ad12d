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

	"depositgate/internal/credential/models"
	"depositgate/internal/credential/store"
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
	err := s.postgres.TruncateTables(ctx, "scheme_credentials")
	s.Require().NoError(err)
}

func newTestCredential(owner id.UserID, isDefault bool) *models.SchemeCredential {
	now := time.Now().UTC()
	return &models.SchemeCredential{
		ID:              id.CredentialID(uuid.New()),
		OwnerUserID:     owner,
		Scheme:          id.SchemeDPS,
		ProtectionType:  id.ProtectionCustodial,
		Username:        "landlord@example.com",
		EncryptedSecret: "sealed",
		IsDefault:       isDefault,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	cred := newTestCredential(id.UserID(uuid.New()), true)
	s.Require().NoError(s.store.Create(ctx, cred))

	found, err := s.store.FindByID(ctx, cred.ID)
	s.Require().NoError(err)
	s.Equal(cred.Username, found.Username)
	s.Equal(cred.EncryptedSecret, found.EncryptedSecret)
	s.True(found.IsDefault)
	s.False(found.IsVerified)
	s.Nil(found.LastVerifiedAt)
}

// TestConcurrentDefaultSwap verifies the partial unique index keeps at most
// one default per owner under concurrent swaps.
func (s *PostgresStoreSuite) TestConcurrentDefaultSwap() {
	ctx := context.Background()
	owner := id.UserID(uuid.New())

	creds := make([]*models.SchemeCredential, 5)
	for i := range creds {
		creds[i] = newTestCredential(owner, false)
		s.Require().NoError(s.store.Create(ctx, creds[i]))
	}

	const goroutines = 25
	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.store.SetDefault(ctx, owner, creds[i%len(creds)].ID); err != nil {
				failures.Add(1)
			}
		}(i)
	}
	wg.Wait()

	// Racing swaps may fail on the unique index; the invariant is about
	// the final state, not about every call succeeding.
	all, err := s.store.ListByOwner(ctx, owner)
	s.Require().NoError(err)
	var defaults int
	for _, cred := range all {
		if cred.IsDefault {
			defaults++
		}
	}
	s.LessOrEqual(defaults, 1, "at most one default per owner")
}

func (s *PostgresStoreSuite) TestSetDefaultOwnership() {
	ctx := context.Background()
	owner := id.UserID(uuid.New())
	cred := newTestCredential(owner, false)
	s.Require().NoError(s.store.Create(ctx, cred))

	err := s.store.SetDefault(ctx, id.UserID(uuid.New()), cred.ID)
	s.Require().Error(err)
	s.True(errors.Is(err, sentinel.ErrNotFound))

	s.Require().NoError(s.store.SetDefault(ctx, owner, cred.ID))
	found, err := s.store.FindDefault(ctx, owner)
	s.Require().NoError(err)
	s.Equal(cred.ID, found.ID)
}

func (s *PostgresStoreSuite) TestUpdateVerificationStamps() {
	ctx := context.Background()
	cred := newTestCredential(id.UserID(uuid.New()), false)
	s.Require().NoError(s.store.Create(ctx, cred))

	cred.ApplyVerified(time.Now().UTC())
	s.Require().NoError(s.store.Update(ctx, cred))

	found, err := s.store.FindByID(ctx, cred.ID)
	s.Require().NoError(err)
	s.True(found.IsVerified)
	s.Require().NotNil(found.LastVerifiedAt)
}

func (s *PostgresStoreSuite) TestDelete() {
	ctx := context.Background()
	cred := newTestCredential(id.UserID(uuid.New()), false)
	s.Require().NoError(s.store.Create(ctx, cred))

	s.Require().NoError(s.store.Delete(ctx, cred.ID))
	_, err := s.store.FindByID(ctx, cred.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
