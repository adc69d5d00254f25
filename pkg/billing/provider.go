// Package billing abstracts the payment provider behind a small interface so
// the subscription service never touches provider SDKs directly. Stripe is
// the primary implementation; Paddle is available behind the same interface
// and selected by configuration.
package billing

import (
	"context"
	"time"
)

// EventType is the normalized billing event type. Provider implementations
// map their own event names onto these.
type EventType string

const (
	EventCheckoutCompleted    EventType = "checkout_completed"
	EventSubscriptionUpdated  EventType = "subscription_updated"
	EventSubscriptionCanceled EventType = "subscription_canceled"
	EventPaymentFailed        EventType = "payment_failed"
	EventIgnored              EventType = "ignored"
)

// CheckoutRequest contains everything needed to open a hosted checkout.
// UID and Plan travel in the session metadata and come back on the webhook
// and on session verification, which is how a completed payment is tied back
// to a user.
type CheckoutRequest struct {
	PriceID    string
	UID        string
	Plan       string
	Email      string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is a newly created hosted checkout.
type CheckoutSession struct {
	ID  string
	URL string
}

// CheckoutDetails describes an existing checkout session, used to verify a
// payment after the success redirect.
type CheckoutDetails struct {
	ID             string
	UID            string
	Plan           string
	Paid           bool
	CustomerID     string
	SubscriptionID string
	PeriodEnd      *time.Time
}

// WebhookEvent is a normalized, signature-verified provider event.
type WebhookEvent struct {
	Type              EventType
	ProviderEvent     string
	UID               string
	Plan              string
	CustomerID        string
	SubscriptionID    string
	Status            string
	CancelAtPeriodEnd bool
	PeriodEnd         *time.Time
}

// Provider is the payment provider abstraction.
//
// Implementations must verify webhook signatures in ParseWebhook; an invalid
// signature is ErrInvalidSignature, never a parsed event.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutDetails, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error)
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error)
}
