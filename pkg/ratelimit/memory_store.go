package ratelimit

import (
	"context"
	"sync"
	"time"
)

type windowEntry struct {
	count    int64
	expireAt time.Time
}

// MemoryStore is an in-process counter store for tests and single-node
// development setups.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	now     func() time.Time
}

// NewMemoryStore returns an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*windowEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) IncrementAndGet(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok || now.After(e.expireAt) {
		e = &windowEntry{expireAt: now.Add(window)}
		s.entries[key] = e
	}
	e.count++
	return e.count, e.expireAt.Sub(now), nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
