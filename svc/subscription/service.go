package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JoseRicoK/SecondBrain-sub001/pkg/email"
)

// BillingCanceler is the slice of the billing provider the subscription
// service depends on. The full provider lives in pkg/billing; this narrow
// interface keeps the dependency direction pointing outwards.
type BillingCanceler interface {
	// CancelAtPeriodEnd marks the provider-side subscription for cancellation
	// at the end of the current billing period and returns that period end.
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error)
}

// ReconcileResult summarizes one reconciliation sweep.
type ReconcileResult struct {
	Processed int       `json:"processed"`
	Expired   int       `json:"expired"`
	Timestamp time.Time `json:"timestamp"`
}

// Patch carries partial subscription updates. Nil pointer fields are left
// untouched; the Clear flags explicitly reset optional fields.
type Patch struct {
	Plan                  *PlanType
	Status                *Status
	CustomerID            *string
	SubscriptionID        *string
	CurrentPeriodEnd      *time.Time
	CancelAtPeriodEnd     *bool
	FirstPaymentCompleted *bool
	ClearPeriodEnd        bool
	ClearBillingIDs       bool
}

// Service manages profile and subscription state. All writes funnel through
// it so the subscription invariants hold regardless of which handler
// triggered the change.
type Service struct {
	store   ProfileStore
	catalog *Catalog
	billing BillingCanceler
	mailer  email.EmailSender
	log     *slog.Logger
	now     func() time.Time
}

// Option configures a Service instance.
type Option func(*Service)

// WithBillingCanceler wires the billing provider used for user-initiated
// cancellations. Without it, cancellations fall back to locally computed
// period ends.
func WithBillingCanceler(b BillingCanceler) Option {
	return func(s *Service) { s.billing = b }
}

// WithMailer wires the outbound email sender for best-effort notifications.
func WithMailer(m email.EmailSender) Option {
	return func(s *Service) { s.mailer = m }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source. Tests use this to pin "now".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a subscription service.
// Panics if store or catalog is nil to fail fast during initialization.
func NewService(store ProfileStore, catalog *Catalog, opts ...Option) *Service {
	if store == nil {
		panic("subscription: ProfileStore is required")
	}
	if catalog == nil {
		panic("subscription: Catalog is required")
	}

	s := &Service{
		store:   store,
		catalog: catalog,
		log:     slog.New(slog.DiscardHandler),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog exposes the plan catalog for gate lookups.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// GetProfile retrieves an existing profile. Unknown UIDs yield
// ErrProfileNotFound; profiles are never created implicitly outside
// GetOrCreateProfile.
func (s *Service) GetProfile(ctx context.Context, uid string) (*Profile, error) {
	return s.store.Get(ctx, uid)
}

// GetOrCreateProfile returns the profile for uid, creating it with free/
// inactive defaults on first authentication. For existing profiles only
// identity fields are refreshed when preserveSubscription is true; the
// embedded subscription is never downgraded as a side effect of login.
func (s *Service) GetOrCreateProfile(ctx context.Context, uid string, info ProfileInfo, preserveSubscription bool) (*Profile, error) {
	now := s.now()

	existing, err := s.store.Get(ctx, uid)
	if err == nil {
		existing.Email = info.Email
		existing.DisplayName = info.DisplayName
		existing.GoogleLinked = info.GoogleLinked
		existing.FirstLogin = false
		existing.UpdatedAt = now
		if !preserveSubscription {
			existing.Subscription = defaultSubscription()
		}
		if err := s.store.Save(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}

	profile := &Profile{
		UID:          uid,
		Email:        info.Email,
		DisplayName:  info.DisplayName,
		GoogleLinked: info.GoogleLinked,
		FirstLogin:   true,
		Subscription: defaultSubscription(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Save(ctx, profile); err != nil {
		return nil, err
	}

	s.sendWelcomeEmail(ctx, profile)
	return profile, nil
}

// EffectivePlan returns the plan tier that should currently govern feature
// access for uid, applying read-time correction for elapsed period ends.
func (s *Service) EffectivePlan(ctx context.Context, uid string) (PlanType, error) {
	profile, err := s.store.Get(ctx, uid)
	if err != nil {
		return "", err
	}
	return EffectivePlanAt(profile.Subscription, s.now()), nil
}

// UpdateSubscription merges patch fields into the stored subscription.
// Fails with ErrProfileNotFound if uid does not resolve to a profile;
// unrelated fields are left untouched.
func (s *Service) UpdateSubscription(ctx context.Context, uid string, patch Patch) (*Profile, error) {
	profile, err := s.store.Get(ctx, uid)
	if err != nil {
		return nil, err
	}

	sub := profile.Subscription
	if patch.Plan != nil {
		if !patch.Plan.Valid() {
			return nil, ErrInvalidPlanType
		}
		sub.Plan = *patch.Plan
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		sub.Status = *patch.Status
	}
	if patch.CustomerID != nil {
		sub.CustomerID = *patch.CustomerID
	}
	if patch.SubscriptionID != nil {
		sub.SubscriptionID = *patch.SubscriptionID
	}
	if patch.CurrentPeriodEnd != nil {
		end := *patch.CurrentPeriodEnd
		sub.CurrentPeriodEnd = &end
	}
	if patch.CancelAtPeriodEnd != nil {
		sub.CancelAtPeriodEnd = *patch.CancelAtPeriodEnd
	}
	if patch.FirstPaymentCompleted != nil {
		sub.FirstPaymentCompleted = *patch.FirstPaymentCompleted
	}
	if patch.ClearPeriodEnd {
		sub.CurrentPeriodEnd = nil
	}
	if patch.ClearBillingIDs {
		sub.CustomerID = ""
		sub.SubscriptionID = ""
	}

	// A free plan can never be active.
	if sub.Plan == PlanFree && sub.Status == StatusActive {
		sub.Status = StatusInactive
	}

	profile.Subscription = sub
	profile.UpdatedAt = s.now()
	if err := s.store.Save(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Cancel marks a paid subscription for cancellation at period end. On any
// billing-provider failure the period end falls back to one month from now,
// so the user is never left without a defined expiry. Cancelling a free plan
// is a validation error and never mutates state.
func (s *Service) Cancel(ctx context.Context, uid string) (time.Time, error) {
	profile, err := s.store.Get(ctx, uid)
	if err != nil {
		return time.Time{}, err
	}
	if !profile.Subscription.Plan.IsPaid() {
		return time.Time{}, ErrAlreadyFree
	}

	now := s.now()
	periodEnd := now.AddDate(0, 1, 0)

	if s.billing != nil && profile.Subscription.SubscriptionID != "" {
		end, err := s.billing.CancelAtPeriodEnd(ctx, profile.Subscription.SubscriptionID)
		switch {
		case err != nil:
			// Availability over precision: the local fallback expiry stands.
			s.log.WarnContext(ctx, "billing cancellation failed, using local period end",
				slog.String("uid", uid), slog.Any("error", err))
		case end.After(now):
			periodEnd = end
		}
	}

	// The entitlement stays live until the period end, so the record must be
	// active for the reconciliation sweep to pick it up. A webhook may have
	// marked the status past_due in the meantime.
	profile.Subscription.Status = StatusActive
	profile.Subscription.CancelAtPeriodEnd = true
	profile.Subscription.CurrentPeriodEnd = &periodEnd
	profile.UpdatedAt = now
	if err := s.store.Save(ctx, profile); err != nil {
		return time.Time{}, err
	}

	s.sendCancellationEmail(ctx, profile, periodEnd)
	return periodEnd, nil
}

// ActivateFromCheckout grants a paid entitlement after a verified checkout.
// Callers must have cross-checked the checkout session metadata against the
// authenticated identity before calling.
func (s *Service) ActivateFromCheckout(ctx context.Context, uid string, plan PlanType, customerID, subscriptionID string, periodEnd *time.Time) (*Profile, error) {
	if !plan.IsPaid() {
		return nil, ErrInvalidPlanType
	}

	profile, err := s.store.Get(ctx, uid)
	if err != nil {
		return nil, err
	}

	profile.Subscription = Subscription{
		Plan:                  plan,
		Status:                StatusActive,
		CustomerID:            customerID,
		SubscriptionID:        subscriptionID,
		CurrentPeriodEnd:      periodEnd,
		CancelAtPeriodEnd:     false,
		FirstPaymentCompleted: true,
	}
	profile.UpdatedAt = s.now()
	if err := s.store.Save(ctx, profile); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "subscription activated",
		slog.String("uid", uid), slog.String("plan", string(plan)))
	return profile, nil
}

// ReconcileExpired downgrades subscriptions whose cancellation period has
// elapsed. Safe to re-run: profiles already downgraded no longer match the
// pending-cancellation predicate, so a second sweep is a no-op for them.
// Racing a concurrent sweep at worst double-writes the same terminal state.
func (s *Service) ReconcileExpired(ctx context.Context) (ReconcileResult, error) {
	now := s.now()
	result := ReconcileResult{Timestamp: now}

	pending, err := s.store.ListPendingCancellation(ctx)
	if err != nil {
		return result, err
	}
	result.Processed = len(pending)

	for _, profile := range pending {
		if !profile.Subscription.IsExpiredAt(now) {
			continue
		}

		profile.Subscription = Subscription{
			Plan:                  PlanFree,
			Status:                StatusCanceled,
			CancelAtPeriodEnd:     false,
			FirstPaymentCompleted: profile.Subscription.FirstPaymentCompleted,
		}
		profile.UpdatedAt = now
		if err := s.store.Save(ctx, profile); err != nil {
			s.log.ErrorContext(ctx, "failed to downgrade expired subscription",
				slog.String("uid", profile.UID), slog.Any("error", err))
			continue
		}

		result.Expired++
		s.log.InfoContext(ctx, "subscription expired and downgraded",
			slog.String("uid", profile.UID))
	}

	return result, nil
}

func defaultSubscription() Subscription {
	return Subscription{Plan: PlanFree, Status: StatusInactive}
}

func (s *Service) sendWelcomeEmail(ctx context.Context, profile *Profile) {
	if s.mailer == nil || profile.Email == "" {
		return
	}
	err := s.mailer.SendEmail(ctx, email.SendEmailParams{
		SendTo:   profile.Email,
		Subject:  "Welcome to SecondBrain",
		BodyHTML: fmt.Sprintf("<p>Hi %s, your journal is ready.</p>", profile.DisplayName),
		Tag:      "welcome",
	})
	if err != nil {
		s.log.WarnContext(ctx, "failed to send welcome email",
			slog.String("uid", profile.UID), slog.Any("error", err))
	}
}

func (s *Service) sendCancellationEmail(ctx context.Context, profile *Profile, periodEnd time.Time) {
	if s.mailer == nil || profile.Email == "" {
		return
	}
	err := s.mailer.SendEmail(ctx, email.SendEmailParams{
		SendTo:  profile.Email,
		Subject: "Your subscription cancellation is scheduled",
		BodyHTML: fmt.Sprintf(
			"<p>Your %s plan stays active until %s. After that you move to the free plan.</p>",
			profile.Subscription.Plan, periodEnd.Format("January 2, 2006"),
		),
		Tag: "cancellation-scheduled",
	})
	if err != nil {
		s.log.WarnContext(ctx, "failed to send cancellation email",
			slog.String("uid", profile.UID), slog.Any("error", err))
	}
}
