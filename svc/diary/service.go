package diary

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service owns entry writes and the statistics aggregates.
type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// Option configures a diary Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a diary service. Panics if store is nil.
func NewService(store Store, opts ...Option) *Service {
	if store == nil {
		panic("diary: Store is required")
	}
	s := &Service{
		store: store,
		log:   slog.New(slog.DiscardHandler),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEntryInput carries a new entry's fields.
type CreateEntryInput struct {
	Date   time.Time
	Text   string
	Mood   int
	People []string
}

// CreateEntry stores an entry and bumps the mention count for every person
// named in it. Person names are trimmed and deduplicated per entry.
func (s *Service) CreateEntry(ctx context.Context, uid string, in CreateEntryInput) (*Entry, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, ErrEmptyText
	}
	if in.Mood < 0 || in.Mood > 10 {
		return nil, ErrInvalidMood
	}

	now := s.now()
	date := in.Date
	if date.IsZero() {
		date = now
	}

	seen := make(map[string]struct{}, len(in.People))
	people := make([]string, 0, len(in.People))
	for _, name := range in.People {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		people = append(people, name)
	}

	entry := &Entry{
		ID:        uuid.New().String(),
		UID:       uid,
		Date:      date.UTC(),
		Text:      in.Text,
		Mood:      in.Mood,
		People:    people,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SaveEntry(ctx, entry); err != nil {
		return nil, err
	}

	for _, name := range people {
		if err := s.store.UpsertPerson(ctx, uid, name); err != nil {
			s.log.WarnContext(ctx, "failed to update person mentions",
				slog.String("uid", uid), slog.String("person", name), slog.Any("error", err))
		}
	}
	return entry, nil
}

// ListEntries returns the user's entries in [from, to], oldest first.
func (s *Service) ListEntries(ctx context.Context, uid string, from, to time.Time) ([]*Entry, error) {
	return s.store.ListEntries(ctx, uid, from, to)
}

// MoodStats averages rated entries over the range, overall and per day.
// Entries with no mood rating are skipped.
func (s *Service) MoodStats(ctx context.Context, uid string, from, to time.Time) (MoodStats, error) {
	entries, err := s.store.ListEntries(ctx, uid, from, to)
	if err != nil {
		return MoodStats{}, err
	}

	type daily struct {
		sum   int
		count int
	}
	byDay := make(map[string]*daily)
	var days []string
	var sum, count int

	for _, e := range entries {
		if e.Mood == 0 {
			continue
		}
		sum += e.Mood
		count++

		day := e.Date.UTC().Format("2006-01-02")
		d, ok := byDay[day]
		if !ok {
			d = &daily{}
			byDay[day] = d
			days = append(days, day)
		}
		d.sum += e.Mood
		d.count++
	}

	stats := MoodStats{Days: make([]MoodPoint, 0, len(days))}
	if count > 0 {
		stats.Average = round1(float64(sum) / float64(count))
	}
	for _, day := range days {
		d := byDay[day]
		stats.Days = append(stats.Days, MoodPoint{
			Date:  day,
			Score: round1(float64(d.sum) / float64(d.count)),
		})
	}
	return stats, nil
}

// TopPeople returns the n most-mentioned people.
func (s *Service) TopPeople(ctx context.Context, uid string, n int) ([]*Person, error) {
	people, err := s.store.ListPeople(ctx, uid)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(people) > n {
		people = people[:n]
	}
	return people, nil
}

// CountPeople returns how many distinct people the user tracks. The people
// limit gate compares this against the plan table.
func (s *Service) CountPeople(ctx context.Context, uid string) (int64, error) {
	return s.store.CountPeople(ctx, uid)
}

// EntriesText concatenates the range's entry texts, dated, for AI prompts.
func (s *Service) EntriesText(ctx context.Context, uid string, from, to time.Time) (string, error) {
	entries, err := s.store.ListEntries(ctx, uid, from, to)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(e.Date.UTC().Format("2006-01-02"))
		b.WriteString(": ")
		b.WriteString(e.Text)
	}
	return b.String(), nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
