// Package guard rate-limits failed authority login attempts per origin. It is
// advisory, single-process state, not a security boundary against distributed
// attackers; the passphrase and the ledger authority flag remain the real
// gates.
package guard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	dErrors "tourchain/pkg/domain-errors"
	"tourchain/pkg/platform/middleware/requesttime"
)

// Policy bounds failures within a sliding window and bans for a fixed
// duration once the budget is exhausted. The ban expires on its own; a
// successful login clears everything early.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
	BanDuration time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		Window:      15 * time.Minute,
		BanDuration: 15 * time.Minute,
	}
}

// Store keeps per-origin attempt state.
type Store interface {
	AddFailure(ctx context.Context, key string, at time.Time, window time.Duration) (count int, err error)
	FailureCount(ctx context.Context, key string, now time.Time, window time.Duration) (int, error)
	Ban(ctx context.Context, key string, until time.Time) error
	BannedUntil(ctx context.Context, key string, now time.Time) (*time.Time, error)
	Clear(ctx context.Context, key string) error
}

// Result reports the state after a recorded failure.
type Result struct {
	Banned      bool
	Remaining   int
	BannedUntil *time.Time
}

type Service struct {
	store  Store
	policy Policy
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithPolicy(policy Policy) Option {
	return func(s *Service) {
		s.policy = policy
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("guard store is required")
	}
	s := &Service{
		store:  store,
		policy: DefaultPolicy(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Check fails fast with banned while a ban is in effect, else passes through.
func (s *Service) Check(ctx context.Context, origin string) error {
	now := requesttime.Now(ctx)
	until, err := s.store.BannedUntil(ctx, origin, now)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "read ban state")
	}
	if until != nil {
		return dErrors.Newf(dErrors.CodeBanned, "too many failed attempts, retry after %s", until.Format(time.RFC3339))
	}
	return nil
}

// RecordFailure counts a failed attempt and bans the origin once the window
// budget is spent.
func (s *Service) RecordFailure(ctx context.Context, origin string) (*Result, error) {
	now := requesttime.Now(ctx)
	count, err := s.store.AddFailure(ctx, origin, now, s.policy.Window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "record failed attempt")
	}

	remaining := s.policy.MaxAttempts - count
	if remaining > 0 {
		return &Result{Remaining: remaining}, nil
	}

	until := now.Add(s.policy.BanDuration)
	if err := s.store.Ban(ctx, origin, until); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "apply ban")
	}
	s.logger.WarnContext(ctx, "origin banned after repeated auth failures",
		"origin", origin,
		"failures", count,
		"banned_until", until,
	)
	return &Result{Banned: true, Remaining: 0, BannedUntil: &until}, nil
}

// Remaining reports the attempt budget left for an origin.
func (s *Service) Remaining(ctx context.Context, origin string) (int, error) {
	now := requesttime.Now(ctx)
	count, err := s.store.FailureCount(ctx, origin, now, s.policy.Window)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "read failure count")
	}
	remaining := s.policy.MaxAttempts - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset restores the full attempt budget. Called on successful login.
func (s *Service) Reset(ctx context.Context, origin string) error {
	if err := s.store.Clear(ctx, origin); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "clear attempt state")
	}
	return nil
}
