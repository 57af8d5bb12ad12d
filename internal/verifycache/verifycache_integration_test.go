//go:build integration

package verifycache

import (
	"context"
	"testing"
	"time"

	"depositgate/internal/platform/redis"
	"depositgate/internal/scheme"
	id "depositgate/pkg/domain"
	"depositgate/pkg/testutil/containers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type VerifyCacheIntegrationSuite struct {
	suite.Suite
	cache *Cache
	redis *containers.RedisContainer
}

func TestVerifyCacheIntegrationSuite(t *testing.T) {
	suite.Run(t, new(VerifyCacheIntegrationSuite))
}

func (s *VerifyCacheIntegrationSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.cache = New(&redis.Client{Client: s.redis.Client}, time.Minute)
}

func (s *VerifyCacheIntegrationSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *VerifyCacheIntegrationSuite) TestRoundTrip() {
	ctx := context.Background()
	credID := id.CredentialID(uuid.New())

	result, found, err := s.cache.Get(ctx, credID)
	s.Require().NoError(err)
	s.False(found)
	s.Nil(result)

	stored := &scheme.VerificationResult{Success: true, Message: "accepted"}
	s.Require().NoError(s.cache.Set(ctx, credID, stored))

	result, found, err = s.cache.Get(ctx, credID)
	s.Require().NoError(err)
	s.True(found)
	s.Equal(stored, result)
}

func (s *VerifyCacheIntegrationSuite) TestInvalidate() {
	ctx := context.Background()
	credID := id.CredentialID(uuid.New())

	s.Require().NoError(s.cache.Set(ctx, credID, &scheme.VerificationResult{Success: true}))
	s.Require().NoError(s.cache.Invalidate(ctx, credID))

	_, found, err := s.cache.Get(ctx, credID)
	s.Require().NoError(err)
	s.False(found)
}

func (s *VerifyCacheIntegrationSuite) TestExpiry() {
	ctx := context.Background()
	short := New(&redis.Client{Client: s.redis.Client}, 100*time.Millisecond)
	credID := id.CredentialID(uuid.New())

	s.Require().NoError(short.Set(ctx, credID, &scheme.VerificationResult{Success: true}))
	time.Sleep(200 * time.Millisecond)

	_, found, err := short.Get(ctx, credID)
	s.Require().NoError(err)
	s.False(found)
}
