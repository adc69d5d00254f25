package diary

import (
	"context"
	"time"
)

// Store persists entries and people.
type Store interface {
	SaveEntry(ctx context.Context, entry *Entry) error
	ListEntries(ctx context.Context, uid string, from, to time.Time) ([]*Entry, error)

	// UpsertPerson increments the mention count for (uid, name), creating
	// the person on first mention.
	UpsertPerson(ctx context.Context, uid, name string) error
	ListPeople(ctx context.Context, uid string) ([]*Person, error)
	CountPeople(ctx context.Context, uid string) (int64, error)
}
