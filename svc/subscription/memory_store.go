package subscription

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory ProfileStore used by tests and local
// development. It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewMemoryStore returns an empty in-memory profile store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile)}
}

func (s *MemoryStore) Get(_ context.Context, uid string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[uid]
	if !ok {
		return nil, ErrProfileNotFound
	}
	copied := p
	return &copied, nil
}

func (s *MemoryStore) Save(_ context.Context, profile *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[profile.UID] = *profile
	return nil
}

func (s *MemoryStore) ListPendingCancellation(_ context.Context) ([]*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Profile
	for _, p := range s.profiles {
		if p.Subscription.CancelAtPeriodEnd && p.Subscription.Status == StatusActive {
			copied := p
			result = append(result, &copied)
		}
	}
	return result, nil
}
