package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeConfig holds configuration for the Stripe billing provider.
type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	SuccessURL    string `env:"STRIPE_SUCCESS_URL"`
	CancelURL     string `env:"STRIPE_CANCEL_URL"`
}

// StripeProvider implements Provider for Stripe. It holds its own API client
// instead of mutating the SDK's package-level key, so multiple providers can
// coexist in one process.
type StripeProvider struct {
	api    *client.API
	config StripeConfig
}

// NewStripeProvider creates a Stripe billing provider.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: SecretKey is required", ErrInvalidConfig)
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: WebhookSecret is required", ErrInvalidConfig)
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &StripeProvider{api: api, config: cfg}, nil
}

// CreateCheckoutSession opens a hosted subscription checkout. UID and plan
// travel in both the session metadata and the subscription metadata so they
// survive into every downstream webhook.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.PriceID == "" {
		return nil, fmt.Errorf("%w: price ID is required", ErrCheckoutFailed)
	}
	if req.UID == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrCheckoutFailed)
	}

	successURL := req.SuccessURL
	if successURL == "" {
		successURL = p.config.SuccessURL
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = p.config.CancelURL
	}

	metadata := map[string]string{
		"uid":      req.UID,
		"planType": req.Plan,
	}

	params := &stripelib.CheckoutSessionParams{
		Params:     stripelib.Params{Context: ctx},
		Mode:       stripelib.String(string(stripelib.CheckoutSessionModeSubscription)),
		SuccessURL: stripelib.String(successURL),
		CancelURL:  stripelib.String(cancelURL),
		LineItems: []*stripelib.CheckoutSessionLineItemParams{
			{
				Price:    stripelib.String(req.PriceID),
				Quantity: stripelib.Int64(1),
			},
		},
		Metadata: metadata,
		SubscriptionData: &stripelib.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripelib.String(req.Email)
	}

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, errors.Join(ErrCheckoutFailed, err)
	}
	if sess.URL == "" {
		return nil, fmt.Errorf("%w: stripe returned empty checkout URL", ErrCheckoutFailed)
	}

	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// GetCheckoutSession retrieves an existing session with its subscription
// expanded, for payment verification after the success redirect.
func (p *StripeProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutDetails, error) {
	params := &stripelib.CheckoutSessionParams{Params: stripelib.Params{Context: ctx}}
	params.AddExpand("subscription")

	sess, err := p.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, errors.Join(ErrSessionNotFound, err)
	}

	details := &CheckoutDetails{
		ID:   sess.ID,
		UID:  sess.Metadata["uid"],
		Plan: sess.Metadata["planType"],
		Paid: sess.PaymentStatus == stripelib.CheckoutSessionPaymentStatusPaid ||
			sess.PaymentStatus == stripelib.CheckoutSessionPaymentStatusNoPaymentRequired,
	}
	if sess.Customer != nil {
		details.CustomerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		details.SubscriptionID = sess.Subscription.ID
		details.PeriodEnd = subscriptionPeriodEnd(sess.Subscription)
	}
	return details, nil
}

// CancelAtPeriodEnd flags the Stripe subscription to lapse at the end of the
// current billing period and returns that period end.
func (p *StripeProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error) {
	params := &stripelib.SubscriptionParams{
		Params:            stripelib.Params{Context: ctx},
		CancelAtPeriodEnd: stripelib.Bool(true),
	}
	sub, err := p.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return time.Time{}, errors.Join(ErrCancelFailed, err)
	}

	end := subscriptionPeriodEnd(sub)
	if end == nil {
		return time.Time{}, fmt.Errorf("%w: subscription %s has no period end", ErrCancelFailed, subscriptionID)
	}
	return *end, nil
}

// subscriptionPeriodEnd extracts the latest item period end. Period fields
// live on subscription items, not on the subscription itself.
func subscriptionPeriodEnd(sub *stripelib.Subscription) *time.Time {
	if sub == nil || sub.Items == nil {
		return nil
	}
	var max int64
	for _, item := range sub.Items.Data {
		if item != nil && item.CurrentPeriodEnd > max {
			max = item.CurrentPeriodEnd
		}
	}
	if max == 0 {
		return nil
	}
	t := time.Unix(max, 0).UTC()
	return &t
}

// Minimal event payload shapes. Decoding only the fields this system reads
// keeps webhook handling stable across Stripe API versions.
type stripeCheckoutEvent struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

type stripeSubscriptionEvent struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	Items             struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

type stripeInvoiceEvent struct {
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
}

// ParseWebhook verifies the Stripe signature and normalizes the event.
// Unhandled event types come back as EventIgnored rather than an error so the
// endpoint can acknowledge them.
func (p *StripeProvider) ParseWebhook(_ context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}

	out := &WebhookEvent{Type: EventIgnored, ProviderEvent: string(event.Type)}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripeCheckoutEvent
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("decode checkout.session: %w", err)
		}
		out.Type = EventCheckoutCompleted
		out.UID = sess.Metadata["uid"]
		out.Plan = sess.Metadata["planType"]
		out.CustomerID = sess.Customer
		out.SubscriptionID = sess.Subscription

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripeSubscriptionEvent
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		out.Type = EventSubscriptionUpdated
		if event.Type == "customer.subscription.deleted" {
			out.Type = EventSubscriptionCanceled
		}
		out.UID = sub.Metadata["uid"]
		out.Plan = sub.Metadata["planType"]
		out.CustomerID = sub.Customer
		out.SubscriptionID = sub.ID
		out.Status = sub.Status
		out.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		var max int64
		for _, item := range sub.Items.Data {
			if item.CurrentPeriodEnd > max {
				max = item.CurrentPeriodEnd
			}
		}
		if max > 0 {
			t := time.Unix(max, 0).UTC()
			out.PeriodEnd = &t
		}

	case "invoice.payment_failed":
		var inv stripeInvoiceEvent
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		out.Type = EventPaymentFailed
		out.CustomerID = inv.Customer
		out.SubscriptionID = inv.Subscription
	}

	return out, nil
}
