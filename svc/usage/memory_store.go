package usage

import (
	"context"
	"sync"

	"github.com/JoseRicoK/SecondBrain-sub001/pkg/limits"
)

// MemoryStore is an in-memory usage Store for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[limits.Feature]int64 // key: uid + "|" + period
}

// NewMemoryStore returns an empty in-memory usage store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]map[limits.Feature]int64)}
}

func key(uid, period string) string {
	return uid + "|" + period
}

func (s *MemoryStore) Get(_ context.Context, uid, period string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := Record{UID: uid, Period: period, Counters: make(map[limits.Feature]int64)}
	for f, n := range s.records[key(uid, period)] {
		rec.Counters[f] = n
	}
	return rec, nil
}

func (s *MemoryStore) Increment(_ context.Context, uid, period string, f limits.Feature, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(uid, period)
	if s.records[k] == nil {
		s.records[k] = make(map[limits.Feature]int64)
	}
	s.records[k][f] += delta
	return nil
}
