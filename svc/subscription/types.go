package subscription

import (
	"time"
)

// PlanType is a subscription tier. The set is closed; strings arriving at the
// system boundary must be parsed through ParsePlanType before any business
// logic runs.
type PlanType string

const (
	PlanFree  PlanType = "free"
	PlanBasic PlanType = "basic"
	PlanPro   PlanType = "pro"
	PlanElite PlanType = "elite"
)

// Valid reports whether p belongs to the closed plan set.
func (p PlanType) Valid() bool {
	switch p {
	case PlanFree, PlanBasic, PlanPro, PlanElite:
		return true
	}
	return false
}

// IsPaid reports whether p is a paid tier.
func (p PlanType) IsPaid() bool {
	return p.Valid() && p != PlanFree
}

// ParsePlanType validates a plan string against the closed set.
func ParsePlanType(s string) (PlanType, error) {
	p := PlanType(s)
	if !p.Valid() {
		return "", ErrInvalidPlanType
	}
	return p, nil
}

// Status represents the current state of a subscription.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusCanceled Status = "canceled"
)

// Valid reports whether s belongs to the closed status set.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusCanceled:
		return true
	}
	return false
}

// Subscription is the per-user subscription record embedded in Profile.
//
// Invariants maintained by the service:
//   - Plan == free implies Status != active.
//   - CancelAtPeriodEnd == true implies CurrentPeriodEnd is set and
//     Status == active, until the reconciliation sweep flips the record
//     to canceled/free.
type Subscription struct {
	Plan                  PlanType   `bson:"plan" json:"plan"`
	Status                Status     `bson:"status" json:"status"`
	CustomerID            string     `bson:"customerId,omitempty" json:"customerId,omitempty"`
	SubscriptionID        string     `bson:"subscriptionId,omitempty" json:"subscriptionId,omitempty"`
	CurrentPeriodEnd      *time.Time `bson:"currentPeriodEnd,omitempty" json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd     bool       `bson:"cancelAtPeriodEnd" json:"cancelAtPeriodEnd"`
	FirstPaymentCompleted bool       `bson:"firstPaymentCompleted" json:"firstPaymentCompleted"`
}

// IsActive returns true if the subscription is active (paid and current).
func (s Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// IsExpiredAt reports whether the stored period end has elapsed at the given time.
func (s Subscription) IsExpiredAt(now time.Time) bool {
	return s.CurrentPeriodEnd != nil && !now.Before(*s.CurrentPeriodEnd)
}

// Profile is the per-user record owned by the subscription service. It is
// created on first successful authentication and lives indefinitely; logins
// refresh identity fields without touching the embedded subscription.
type Profile struct {
	UID          string       `bson:"_id" json:"uid"`
	Email        string       `bson:"email" json:"email"`
	DisplayName  string       `bson:"displayName" json:"displayName"`
	GoogleLinked bool         `bson:"googleLinked" json:"googleLinked"`
	FirstLogin   bool         `bson:"firstLogin" json:"firstLogin"`
	Subscription Subscription `bson:"subscription" json:"subscription"`
	CreatedAt    time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// ProfileInfo carries the identity fields refreshed on every login.
type ProfileInfo struct {
	Email        string
	DisplayName  string
	GoogleLinked bool
}

// EffectivePlanAt derives the plan tier that should govern feature access at
// the given instant. The stored plan may say paid while the stored period end
// has already elapsed and no reconciliation sweep has run yet; in that case
// the effective plan is free (read-time correction), so paid access is never
// granted after expiry.
func EffectivePlanAt(sub Subscription, now time.Time) PlanType {
	if !sub.Plan.IsPaid() {
		return PlanFree
	}
	if sub.IsExpiredAt(now) {
		return PlanFree
	}
	return sub.Plan
}
