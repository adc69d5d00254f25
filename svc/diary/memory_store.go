package diary

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry            // by entry ID
	people  map[string]map[string]int64 // uid -> name -> mentions
}

// NewMemoryStore returns an empty in-memory diary store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		people:  make(map[string]map[string]int64),
	}
}

func (s *MemoryStore) SaveEntry(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = *entry
	return nil
}

func (s *MemoryStore) ListEntries(_ context.Context, uid string, from, to time.Time) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Entry
	for _, e := range s.entries {
		if e.UID != uid {
			continue
		}
		if e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		copied := e
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (s *MemoryStore) UpsertPerson(_ context.Context, uid, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.people[uid] == nil {
		s.people[uid] = make(map[string]int64)
	}
	s.people[uid][name]++
	return nil
}

func (s *MemoryStore) ListPeople(_ context.Context, uid string) ([]*Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Person
	for name, mentions := range s.people[uid] {
		result = append(result, &Person{
			ID:       uuid.NewSHA1(uuid.NameSpaceOID, []byte(uid+"/"+name)).String(),
			UID:      uid,
			Name:     name,
			Mentions: mentions,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Mentions != result[j].Mentions {
			return result[i].Mentions > result[j].Mentions
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (s *MemoryStore) CountPeople(_ context.Context, uid string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.people[uid])), nil
}
