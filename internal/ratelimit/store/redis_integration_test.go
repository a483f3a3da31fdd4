//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"badgeissuer/internal/ratelimit/models"
	"badgeissuer/internal/ratelimit/store"
	"badgeissuer/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.Redis
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = store.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestAllowUntilLimit() {
	ctx := context.Background()
	policy := models.Policy{Limit: 3, Window: time.Minute}
	key := models.Key("claim", "account_1")

	for i := range 3 {
		res, err := s.store.Allow(ctx, key, policy)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(2-i, res.Remaining)
	}

	res, err := s.store.Allow(ctx, key, policy)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Positive(res.RetryAfter)

	ttl, err := s.redis.Client.PTTL(ctx, key).Result()
	s.Require().NoError(err)
	s.LessOrEqual(ttl, time.Minute)
}

func (s *RedisStoreSuite) TestReset() {
	ctx := context.Background()
	policy := models.Policy{Limit: 1, Window: time.Minute}
	key := models.Key("claim", "account_2")

	_, err := s.store.Allow(ctx, key, policy)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Reset(ctx, key))

	res, err := s.store.Allow(ctx, key, policy)
	s.Require().NoError(err)
	s.True(res.Allowed)
}
