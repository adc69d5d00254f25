// Package ratelimit implements a fixed-window request limiter. It guards the
// expensive transcription endpoint against bursts; monthly feature quotas are
// a separate concern handled by the usage gate.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidLimit    = errors.New("ratelimit.errors.invalid_limit")
	ErrInvalidInterval = errors.New("ratelimit.errors.invalid_interval")
	ErrKeyRequired     = errors.New("ratelimit.errors.key_required")
	ErrStoreRequired   = errors.New("ratelimit.errors.store_required")
)

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long to wait before the next request is allowed.
// Zero if the current request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Store is the counter backend.
type Store interface {
	// IncrementAndGet atomically increments the window counter for key,
	// starting the window TTL on first increment, and returns the new
	// value with the remaining TTL.
	IncrementAndGet(ctx context.Context, key string, window time.Duration) (current int64, ttl time.Duration, err error)

	// Delete removes the counter for key.
	Delete(ctx context.Context, key string) error
}

// FixedWindow allows at most limit requests per window per key.
type FixedWindow struct {
	store  Store
	limit  int
	window time.Duration
}

// NewFixedWindow creates a fixed-window limiter.
func NewFixedWindow(store Store, limit int, window time.Duration) (*FixedWindow, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if window <= 0 {
		return nil, ErrInvalidInterval
	}
	return &FixedWindow{store: store, limit: limit, window: window}, nil
}

// Allow consumes one slot for key if the window has capacity. A denied
// request still increments the counter; the window TTL bounds the damage.
func (fw *FixedWindow) Allow(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	current, ttl, err := fw.store.IncrementAndGet(ctx, key, fw.window)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = fw.window
	}

	return &Result{
		Allowed:   current <= int64(fw.limit),
		Limit:     fw.limit,
		Remaining: max(0, fw.limit-int(current)),
		ResetAt:   time.Now().Add(ttl),
	}, nil
}

// Reset clears the window for key.
func (fw *FixedWindow) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	return fw.store.Delete(ctx, key)
}
