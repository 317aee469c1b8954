package guard

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with an in-memory sliding window per origin.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	failures    []time.Time
	bannedUntil *time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*entry)}
}

func (s *MemoryStore) AddFailure(_ context.Context, key string, at time.Time, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[key]
	if e == nil {
		e = &entry{}
		s.entries[key] = e
	}
	e.prune(at, window)
	e.failures = append(e.failures, at)
	return len(e.failures), nil
}

func (s *MemoryStore) FailureCount(_ context.Context, key string, now time.Time, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[key]
	if e == nil {
		return 0, nil
	}
	e.prune(now, window)
	return len(e.failures), nil
}

func (s *MemoryStore) Ban(_ context.Context, key string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[key]
	if e == nil {
		e = &entry{}
		s.entries[key] = e
	}
	e.bannedUntil = &until
	return nil
}

func (s *MemoryStore) BannedUntil(_ context.Context, key string, now time.Time) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[key]
	if e == nil || e.bannedUntil == nil {
		return nil, nil
	}
	if !now.Before(*e.bannedUntil) {
		e.bannedUntil = nil
		return nil, nil
	}
	until := *e.bannedUntil
	return &until, nil
}

func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// prune drops failures older than the window. Callers hold s.mu.
func (e *entry) prune(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(e.failures); i++ {
		if e.failures[i].After(cutoff) {
			break
		}
	}
	e.failures = e.failures[i:]
}
