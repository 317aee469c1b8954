// Package expiry watches verified credentials and flags the moment they
// lapse. The tracker is advisory: expiry truth is always derived from the
// ledger timestamps at read time, this loop only surfaces the transition in
// the audit trail.
package expiry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tourchain/internal/audit"
	"tourchain/internal/ledger"
)

const defaultInterval = time.Minute

type Tracker struct {
	registry ledger.Registry
	interval time.Duration
	logger   *slog.Logger
	auditor  audit.Publisher

	mu  sync.Mutex
	ids map[string]struct{}
}

type Option func(*Tracker)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(t *Tracker) {
		t.auditor = publisher
	}
}

func WithInterval(interval time.Duration) Option {
	return func(t *Tracker) {
		t.interval = interval
	}
}

func New(registry ledger.Registry, opts ...Option) *Tracker {
	t := &Tracker{
		registry: registry,
		interval: defaultInterval,
		logger:   slog.Default(),
		ids:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track registers a credential for expiry watching.
func (t *Tracker) Track(uniqueID string) {
	if uniqueID == "" {
		return
	}
	t.mu.Lock()
	t.ids[uniqueID] = struct{}{}
	t.mu.Unlock()
}

// Tracked returns the number of credentials currently watched.
func (t *Tracker) Tracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ids)
}

// Run sweeps on every tick until the context is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.Sweep(ctx, now)
		}
	}
}

// Sweep re-reads every tracked record and untracks the ones that expired or
// disappeared. Exported so tests drive it without the ticker.
func (t *Tracker) Sweep(ctx context.Context, now time.Time) {
	t.mu.Lock()
	snapshot := make([]string, 0, len(t.ids))
	for id := range t.ids {
		snapshot = append(snapshot, id)
	}
	t.mu.Unlock()

	for _, id := range snapshot {
		info, err := t.registry.TouristInfo(ctx, id)
		if err != nil {
			t.logger.WarnContext(ctx, "expiry sweep read failed, untracking", "unique_id", id, "error", err)
			t.untrack(id)
			continue
		}
		if info.ExpiresAt == 0 || now.Unix() <= info.ExpiresAt {
			continue
		}

		t.untrack(id)
		t.logger.InfoContext(ctx, "credential expired", "unique_id", id, "expired_at", info.ExpiresAt)
		if t.auditor != nil {
			err := t.auditor.Emit(ctx, audit.Event{
				Action: audit.ActionCredentialExpired,
				Actor:  id,
				Detail: map[string]string{"expired_at": time.Unix(info.ExpiresAt, 0).UTC().Format(time.RFC3339)},
			})
			if err != nil {
				t.logger.ErrorContext(ctx, "audit emit failed", "error", err)
			}
		}
	}
}

func (t *Tracker) untrack(id string) {
	t.mu.Lock()
	delete(t.ids, id)
	t.mu.Unlock()
}
