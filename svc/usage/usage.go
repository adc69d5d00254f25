// Package usage tracks monthly per-user feature counters and combines them
// with the plan gate to answer "may this user do this now".
package usage

import (
	"context"
	"log/slog"
	"time"

	"github.com/JoseRicoK/SecondBrain-sub001/pkg/limits"
)

// PeriodOf returns the month key ("YYYY-MM", UTC) counters are bucketed
// under. Using UTC everywhere makes the monthly rollover unambiguous.
func PeriodOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Record holds one user's counters for one month.
type Record struct {
	UID      string                   `bson:"uid" json:"uid"`
	Period   string                   `bson:"period" json:"period"`
	Counters map[limits.Feature]int64 `bson:"counters" json:"counters"`
}

// Store persists monthly counters.
type Store interface {
	// Get returns the record for (uid, period). A user with no activity in
	// the period yields a zero-valued record, not an error.
	Get(ctx context.Context, uid, period string) (Record, error)
	// Increment atomically adds delta to one feature counter, creating the
	// record on first use in the period.
	Increment(ctx context.Context, uid, period string, f limits.Feature, delta int64) error
}

// Service exposes usage counters keyed to the current month.
type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// Option configures a usage Service.
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

// NewService creates a usage service. Panics if store is nil.
func NewService(store Store, opts ...Option) *Service {
	if store == nil {
		panic("usage: Store is required")
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

// Current returns the counters for uid in the current month. Counters from
// previous months are simply never read again; the month key change is the
// reset.
func (s *Service) Current(ctx context.Context, uid string) (Record, error) {
	return s.store.Get(ctx, uid, PeriodOf(s.now()))
}

// Count returns the current-month counter for a single feature.
func (s *Service) Count(ctx context.Context, uid string, f limits.Feature) (int64, error) {
	rec, err := s.Current(ctx, uid)
	if err != nil {
		return 0, err
	}
	return rec.Counters[f], nil
}

// Increment adds one use of the feature in the current month.
func (s *Service) Increment(ctx context.Context, uid string, f limits.Feature) error {
	return s.store.Increment(ctx, uid, PeriodOf(s.now()), f, 1)
}
