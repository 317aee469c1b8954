package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Publisher captures structured audit events. Implementations must be
// best-effort from the caller's point of view: an audit failure never fails
// the business operation that produced it (callers log and continue).
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Store persists events append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context) ([]Event, error)
}

// StorePublisher stamps identity and time onto events and hands them to the
// storage layer, so tests can swap sinks easily.
type StorePublisher struct {
	store Store
}

func NewStorePublisher(store Store) *StorePublisher {
	return &StorePublisher{store: store}
}

func (p *StorePublisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}
	return p.store.Append(ctx, event)
}

// MemoryStore is the in-process sink used in development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out, nil
}
