package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle billing provider.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
	SuccessURL    string `env:"PADDLE_SUCCESS_URL"`
}

// PaddleProvider implements Provider for Paddle.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
	config   PaddleConfig
}

// NewPaddleProvider creates a Paddle billing provider.
func NewPaddleProvider(cfg PaddleConfig) (*PaddleProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: APIKey is required", ErrInvalidConfig)
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: WebhookSecret is required", ErrInvalidConfig)
	}

	var client *paddle.SDK
	var err error
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: invalid paddle environment %q", ErrInvalidConfig, cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("create paddle client: %w", err)
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
		config:   cfg,
	}, nil
}

// CreateCheckoutSession creates a Paddle transaction with a hosted checkout.
func (p *PaddleProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.PriceID == "" {
		return nil, fmt.Errorf("%w: price ID is required", ErrCheckoutFailed)
	}
	if req.UID == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrCheckoutFailed)
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})

	transactionReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"uid":      req.UID,
			"planType": req.Plan,
		},
	}
	successURL := req.SuccessURL
	if successURL == "" {
		successURL = p.config.SuccessURL
	}
	if successURL != "" {
		transactionReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(successURL),
		}
	}

	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, transactionReq)
	if err != nil {
		return nil, errors.Join(ErrCheckoutFailed, err)
	}
	if transaction.Checkout == nil || transaction.Checkout.URL == nil {
		return nil, fmt.Errorf("%w: no checkout URL returned from paddle", ErrCheckoutFailed)
	}

	return &CheckoutSession{ID: transaction.ID, URL: *transaction.Checkout.URL}, nil
}

// GetCheckoutSession fetches a Paddle transaction for payment verification.
func (p *PaddleProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutDetails, error) {
	transaction, err := p.client.TransactionsClient.GetTransaction(ctx, &paddle.GetTransactionRequest{
		TransactionID: sessionID,
	})
	if err != nil {
		return nil, errors.Join(ErrSessionNotFound, err)
	}

	details := &CheckoutDetails{ID: transaction.ID}
	switch string(transaction.Status) {
	case "completed", "paid":
		details.Paid = true
	}
	if transaction.CustomerID != nil {
		details.CustomerID = *transaction.CustomerID
	}
	if transaction.SubscriptionID != nil {
		details.SubscriptionID = *transaction.SubscriptionID
	}
	if uid, ok := transaction.CustomData["uid"].(string); ok {
		details.UID = uid
	}
	if plan, ok := transaction.CustomData["planType"].(string); ok {
		details.Plan = plan
	}
	if transaction.BillingPeriod != nil {
		if end, err := time.Parse(time.RFC3339, transaction.BillingPeriod.EndsAt); err == nil {
			end = end.UTC()
			details.PeriodEnd = &end
		}
	}
	return details, nil
}

// CancelAtPeriodEnd schedules the Paddle subscription to end at the next
// billing period boundary.
func (p *PaddleProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error) {
	sub, err := p.client.SubscriptionsClient.CancelSubscription(ctx, &paddle.CancelSubscriptionRequest{
		SubscriptionID: subscriptionID,
		EffectiveFrom:  paddle.PtrTo(paddle.EffectiveFromNextBillingPeriod),
	})
	if err != nil {
		return time.Time{}, errors.Join(ErrCancelFailed, err)
	}
	if sub.CurrentBillingPeriod == nil {
		return time.Time{}, fmt.Errorf("%w: subscription %s has no billing period", ErrCancelFailed, subscriptionID)
	}
	end, err := time.Parse(time.RFC3339, sub.CurrentBillingPeriod.EndsAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: parse billing period end: %v", ErrCancelFailed, err)
	}
	return end.UTC(), nil
}

// ParseWebhook verifies the Paddle signature and normalizes the event.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request for verification: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}
	if !valid {
		return nil, ErrInvalidSignature
	}

	var paddleEvent struct {
		EventType string         `json:"event_type"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &paddleEvent); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}

	out := &WebhookEvent{Type: mapPaddleEventType(paddleEvent.EventType), ProviderEvent: paddleEvent.EventType}

	if id, ok := paddleEvent.Data["id"].(string); ok {
		out.SubscriptionID = id
	}
	if subID, ok := paddleEvent.Data["subscription_id"].(string); ok && subID != "" {
		out.SubscriptionID = subID
	}
	if status, ok := paddleEvent.Data["status"].(string); ok {
		out.Status = status
	}
	if customerID, ok := paddleEvent.Data["customer_id"].(string); ok {
		out.CustomerID = customerID
	}
	if customData, ok := paddleEvent.Data["custom_data"].(map[string]any); ok {
		if uid, ok := customData["uid"].(string); ok {
			out.UID = uid
		}
		if plan, ok := customData["planType"].(string); ok {
			out.Plan = plan
		}
	}
	if period, ok := paddleEvent.Data["current_billing_period"].(map[string]any); ok {
		if ends, ok := period["ends_at"].(string); ok {
			if t, err := time.Parse(time.RFC3339, ends); err == nil {
				t = t.UTC()
				out.PeriodEnd = &t
			}
		}
	}
	if change, ok := paddleEvent.Data["scheduled_change"].(map[string]any); ok {
		if action, ok := change["action"].(string); ok && action == "cancel" {
			out.CancelAtPeriodEnd = true
		}
	}

	return out, nil
}

func mapPaddleEventType(paddleEvent string) EventType {
	switch paddleEvent {
	case "transaction.completed":
		return EventCheckoutCompleted
	case "subscription.created", "subscription.updated", "subscription.resumed":
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionCanceled
	case "transaction.payment_failed":
		return EventPaymentFailed
	}
	return EventIgnored
}
