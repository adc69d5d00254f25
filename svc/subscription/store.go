package subscription

import "context"

// ProfileStore defines the interface for profile persistence. Each user has
// exactly one profile, so the auth provider UID serves as the primary key.
type ProfileStore interface {
	// Get retrieves a profile by UID.
	// Returns ErrProfileNotFound if no profile exists.
	Get(ctx context.Context, uid string) (*Profile, error)

	// Save creates or updates a profile keyed by UID.
	Save(ctx context.Context, profile *Profile) error

	// ListPendingCancellation returns all profiles with
	// cancelAtPeriodEnd == true and status == active. The predicate is the
	// reconciliation sweep's idempotency guard: once a profile is downgraded
	// its status is no longer active and it stops matching.
	ListPendingCancellation(ctx context.Context) ([]*Profile, error)
}
