//go:build integration

package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tourchain/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	container *containers.RedisContainer
	store     *RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.container = containers.NewRedisContainer(s.T())
	s.store = NewRedisStore(s.container.Client)
}

func (s *RedisStoreSuite) TearDownSuite() {
	s.container.Terminate(s.T())
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.container.Client.FlushAll(context.Background()).Err())
}

func (s *RedisStoreSuite) TestFailureWindow() {
	ctx := context.Background()
	now := time.Now()

	count, err := s.store.AddFailure(ctx, "1.2.3.4", now, time.Minute)
	s.Require().NoError(err)
	s.Equal(1, count)

	count, err = s.store.AddFailure(ctx, "1.2.3.4", now.Add(time.Second), time.Minute)
	s.Require().NoError(err)
	s.Equal(2, count)

	// Counting two minutes later drops both out of the window.
	count, err = s.store.FailureCount(ctx, "1.2.3.4", now.Add(2*time.Minute), time.Minute)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *RedisStoreSuite) TestBanRoundTrip() {
	ctx := context.Background()
	now := time.Now()
	until := now.Add(30 * time.Second)

	s.Require().NoError(s.store.Ban(ctx, "1.2.3.4", until))

	got, err := s.store.BannedUntil(ctx, "1.2.3.4", now)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.WithinDuration(until, *got, time.Millisecond)

	// Observed after expiry it reads as no ban.
	got, err = s.store.BannedUntil(ctx, "1.2.3.4", until.Add(time.Second))
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *RedisStoreSuite) TestClear() {
	ctx := context.Background()
	now := time.Now()

	_, err := s.store.AddFailure(ctx, "1.2.3.4", now, time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Ban(ctx, "1.2.3.4", now.Add(time.Minute)))

	s.Require().NoError(s.store.Clear(ctx, "1.2.3.4"))

	count, err := s.store.FailureCount(ctx, "1.2.3.4", now, time.Minute)
	s.Require().NoError(err)
	s.Zero(count)

	banned, err := s.store.BannedUntil(ctx, "1.2.3.4", now)
	s.Require().NoError(err)
	s.Nil(banned)
}
