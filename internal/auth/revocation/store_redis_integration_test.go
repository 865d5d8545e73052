//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"haven/internal/auth/revocation"
	"haven/pkg/platform/sentinel"
	"haven/pkg/testutil/containers"
)

type RedisListSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *revocation.RedisList
}

func TestRedisListSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisListSuite))
}

func (s *RedisListSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = revocation.NewRedisList(s.redis.Client)
}

func (s *RedisListSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisListSuite) TestRevokeAndCheck() {
	ctx := context.Background()
	jti := uuid.NewString()

	revoked, err := s.store.IsTokenRevoked(ctx, jti)
	s.Require().NoError(err)
	s.False(revoked, "unknown jti must not read as revoked")

	s.Require().NoError(s.store.Revoke(ctx, jti, time.Hour))

	revoked, err = s.store.IsTokenRevoked(ctx, jti)
	s.Require().NoError(err)
	s.True(revoked)
}

func (s *RedisListSuite) TestEntryExpiresWithToken() {
	ctx := context.Background()
	jti := uuid.NewString()

	s.Require().NoError(s.store.Revoke(ctx, jti, 100*time.Millisecond))

	// Redis owns the expiry; the entry must vanish on its own.
	s.Eventually(func() bool {
		revoked, err := s.store.IsTokenRevoked(ctx, jti)
		return err == nil && !revoked
	}, 2*time.Second, 50*time.Millisecond, "entry should expire with the token")
}

func (s *RedisListSuite) TestEmptyJTIIsNoOp() {
	ctx := context.Background()

	s.Require().NoError(s.store.Revoke(ctx, "", time.Hour))

	revoked, err := s.store.IsTokenRevoked(ctx, "")
	s.Require().NoError(err)
	s.False(revoked)
}

func (s *RedisListSuite) TestRejectsNonPositiveTTL() {
	err := s.store.Revoke(context.Background(), uuid.NewString(), 0)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *RedisListSuite) TestRevocationsAreIndependent() {
	ctx := context.Background()
	first := uuid.NewString()
	second := uuid.NewString()

	s.Require().NoError(s.store.Revoke(ctx, first, time.Hour))

	revoked, err := s.store.IsTokenRevoked(ctx, second)
	s.Require().NoError(err)
	s.False(revoked, "revoking one jti must not affect another")
}
