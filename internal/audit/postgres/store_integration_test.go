//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"tourchain/internal/audit"
	"tourchain/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	container *containers.PostgresContainer
	store     *Store
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.container = containers.NewPostgresContainer(s.T())
	s.store = New(s.container.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) TearDownSuite() {
	s.container.Terminate(s.T())
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.container.DB.ExecContext(context.Background(), "TRUNCATE audit_events")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestAppendAndList() {
	ctx := context.Background()

	first := audit.Event{
		ID:     uuid.NewString(),
		Action: audit.ActionAuthFailure,
		Actor:  "0xabc",
		Origin: "10.0.0.0",
		Device: "Chrome on Linux",
		At:     time.Now().Add(-time.Minute).UTC().Truncate(time.Microsecond),
		Detail: map[string]string{"reason": "invalid_passphrase", "remaining": "4"},
	}
	second := audit.Event{
		ID:     uuid.NewString(),
		Action: audit.ActionAuthSuccess,
		Actor:  "0xabc",
		At:     time.Now().UTC().Truncate(time.Microsecond),
	}

	s.Require().NoError(s.store.Append(ctx, first))
	s.Require().NoError(s.store.Append(ctx, second))

	events, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(events, 2)

	s.Equal(first.ID, events[0].ID)
	s.Equal(audit.ActionAuthFailure, events[0].Action)
	s.Equal("invalid_passphrase", events[0].Detail["reason"])
	s.True(first.At.Equal(events[0].At))

	s.Equal(second.ID, events[1].ID)
	s.Equal(audit.ActionAuthSuccess, events[1].Action)
}

func (s *PostgresStoreSuite) TestListEmpty() {
	events, err := s.store.List(context.Background())
	s.Require().NoError(err)
	s.Empty(events)
}
