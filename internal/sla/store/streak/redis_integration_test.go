//go:build integration

package streak_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"haven/internal/sla/store/streak"
	"haven/pkg/testutil/containers"
)

type StreakStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *streak.Store
}

func TestStreakStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(StreakStoreSuite))
}

func (s *StreakStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = streak.New(s.redis.Client)
}

func (s *StreakStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *StreakStoreSuite) TestIncrementCountsUp() {
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.store.Increment(ctx)
		s.Require().NoError(err)
		s.Equal(want, got)
	}
}

func (s *StreakStoreSuite) TestResetClearsTheStreak() {
	ctx := context.Background()

	_, err := s.store.Increment(ctx)
	s.Require().NoError(err)
	_, err = s.store.Increment(ctx)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Reset(ctx))

	got, err := s.store.Increment(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), got, "a reset streak restarts from one")
}

func (s *StreakStoreSuite) TestResetWithoutStreakIsNoOp() {
	s.Require().NoError(s.store.Reset(context.Background()))
}

func (s *StreakStoreSuite) TestUntouchedStreakDecays() {
	ctx := context.Background()
	store := streak.New(s.redis.Client, streak.WithKey("sla:test:decay"), streak.WithTTL(100*time.Millisecond))

	_, err := store.Increment(ctx)
	s.Require().NoError(err)

	// Redis owns the expiry; the streak must vanish without a Reset. The
	// probe interval exceeds the TTL, so each probe sees a fresh key once
	// the previous count has decayed.
	s.Eventually(func() bool {
		got, err := store.Increment(ctx)
		return err == nil && got == 1
	}, 2*time.Second, 300*time.Millisecond, "streak should decay once untouched")
}

func (s *StreakStoreSuite) TestInstancesShareTheCount() {
	ctx := context.Background()
	other := streak.New(s.redis.Client)

	_, err := s.store.Increment(ctx)
	s.Require().NoError(err)

	got, err := other.Increment(ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), got, "a second instance continues the same streak")
}
