package subscription

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/JoseRicoK/SecondBrain-sub001/core"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/billing"
	subsvc "github.com/JoseRicoK/SecondBrain-sub001/svc/subscription"
)

const webhookBodyLimit = 1 << 20 // 1 MiB

type cancelRequest struct {
	UserID string `json:"userId"`
}

type cancelResponse struct {
	Success  bool      `json:"success"`
	CancelAt time.Time `json:"cancelAt"`
}

func (m *Module) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteError(w, core.ErrBadRequest)
		return
	}

	id, ok := requireSameUser(r, req.UserID)
	if !ok {
		core.WriteError(w, core.ErrForbidden)
		return
	}

	cancelAt, err := m.svc.Cancel(r.Context(), id.UID)
	switch {
	case errors.Is(err, subsvc.ErrProfileNotFound):
		core.WriteError(w, core.ErrNotFound)
		return
	case errors.Is(err, subsvc.ErrAlreadyFree):
		core.WriteError(w, core.ErrBadRequest)
		return
	case err != nil:
		m.log.ErrorContext(r.Context(), "cancel subscription failed",
			slog.String("uid", id.UID), slog.Any("error", err))
		core.WriteError(w, core.ErrInternalServerError)
		return
	}

	core.WriteJSON(w, http.StatusOK, cancelResponse{Success: true, CancelAt: cancelAt})
}

type updateManualRequest struct {
	UserID            string `json:"userId"`
	PlanType          string `json:"planType"`
	ClearCancellation bool   `json:"clearCancellation"`
}

// manualPlans are the tiers this admin-facing endpoint may set directly.
// The basic tier is sold through checkout only.
var manualPlans = map[subsvc.PlanType]bool{
	subsvc.PlanFree:  true,
	subsvc.PlanPro:   true,
	subsvc.PlanElite: true,
}

func (m *Module) handleUpdateManual(w http.ResponseWriter, r *http.Request) {
	var req updateManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteError(w, core.ErrBadRequest)
		return
	}

	id, ok := requireSameUser(r, req.UserID)
	if !ok {
		core.WriteError(w, core.ErrForbidden)
		return
	}

	plan, err := subsvc.ParsePlanType(req.PlanType)
	if err != nil || !manualPlans[plan] {
		core.WriteError(w, core.ErrBadRequest)
		return
	}

	patch := subsvc.Patch{Plan: &plan}
	if plan == subsvc.PlanFree {
		status := subsvc.StatusInactive
		patch.Status = &status
		patch.ClearPeriodEnd = true
		patch.ClearBillingIDs = true
	} else {
		status := subsvc.StatusActive
		patch.Status = &status
	}
	if req.ClearCancellation {
		clear := false
		patch.CancelAtPeriodEnd = &clear
	}

	profile, err := m.svc.UpdateSubscription(r.Context(), id.UID, patch)
	switch {
	case errors.Is(err, subsvc.ErrProfileNotFound):
		core.WriteError(w, core.ErrNotFound)
		return
	case err != nil:
		m.log.ErrorContext(r.Context(), "manual subscription update failed",
			slog.String("uid", id.UID), slog.Any("error", err))
		core.WriteError(w, core.ErrInternalServerError)
		return
	}

	core.WriteJSON(w, http.StatusOK, statusPayload(profile, time.Now().UTC()))
}

type statusResponse struct {
	Plan                  subsvc.PlanType `json:"plan"`
	EffectivePlan         subsvc.PlanType `json:"effectivePlan"`
	Status                subsvc.Status   `json:"status"`
	CurrentPeriodEnd      *time.Time      `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd     bool            `json:"cancelAtPeriodEnd"`
	FirstPaymentCompleted bool            `json:"firstPaymentCompleted"`
	IsFirstLogin          bool            `json:"isFirstLogin"`
}

func statusPayload(profile *subsvc.Profile, now time.Time) statusResponse {
	sub := profile.Subscription
	return statusResponse{
		Plan:                  sub.Plan,
		EffectivePlan:         subsvc.EffectivePlanAt(sub, now),
		Status:                sub.Status,
		CurrentPeriodEnd:      sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:     sub.CancelAtPeriodEnd,
		FirstPaymentCompleted: sub.FirstPaymentCompleted,
		IsFirstLogin:          profile.FirstLogin,
	}
}

// handleStatus is the login touchpoint: the client calls it right after
// authenticating, so a first-time uid gets its free/inactive profile created
// here. The existing subscription is always preserved on refresh.
func (m *Module) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := requireSameUser(r, r.URL.Query().Get("userId"))
	if !ok {
		core.WriteError(w, core.ErrForbidden)
		return
	}

	profile, err := m.svc.GetOrCreateProfile(r.Context(), id.UID, subsvc.ProfileInfo{
		Email:        id.Email,
		DisplayName:  id.Name,
		GoogleLinked: id.GoogleLinked,
	}, true)
	if err != nil {
		m.log.ErrorContext(r.Context(), "subscription status read failed",
			slog.String("uid", id.UID), slog.Any("error", err))
		core.WriteError(w, core.ErrInternalServerError)
		return
	}

	core.WriteJSON(w, http.StatusOK, statusPayload(profile, time.Now().UTC()))
}

func (m *Module) handleExpire(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-Sweep-Secret")
	if m.sweepSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(m.sweepSecret)) != 1 {
		core.WriteError(w, core.ErrUnauthorized)
		return
	}

	result, err := m.svc.ReconcileExpired(r.Context())
	if err != nil {
		m.log.ErrorContext(r.Context(), "reconciliation sweep failed", slog.Any("error", err))
		core.WriteError(w, core.ErrInternalServerError)
		return
	}
	core.WriteJSON(w, http.StatusOK, result)
}

type createCheckoutRequest struct {
	UserID   string `json:"userId"`
	PlanType string `json:"planType"`
}

type createCheckoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

func (m *Module) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req createCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteError(w, core.ErrBadRequest)
		return
	}

	id, ok := requireSameUser(r, req.UserID)
	if !ok {
		core.WriteError(w, core.ErrForbidden)
		return
	}

	plan, err := subsvc.ParsePlanType(req.PlanType)
	if err != nil || !plan.IsPaid() {
		core.WriteError(w, core.ErrBadRequest)
		return
	}

	spec, err := m.svc.Catalog().Get(plan)
	if err != nil {
		core.WriteError(w, core.ErrBadRequest)
		return
	}
	priceID := m.priceFor(spec)
	if priceID == "" {
		m.log.ErrorContext(r.Context(), "plan has no price configured",
			slog.String("plan", string(plan)))
		core.WriteError(w, core.ErrInternalServerError)
		return
	}

	sess, err := m.provider.CreateCheckoutSession(r.Context(), billing.CheckoutRequest{
		PriceID: priceID,
		UID:     id.UID,
		Plan:    string(plan),
		Email:   id.Email,
	})
	if err != nil {
		m.log.ErrorContext(r.Context(), "create checkout session failed",
			slog.String("uid", id.UID), slog.Any("error", err))
		core.WriteError(w, core.ErrInternalServerError)
		return
	}

	core.WriteJSON(w, http.StatusOK, createCheckoutResponse{SessionID: sess.ID, URL: sess.URL})
}

type verifyPaymentRequest struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

type verifyPaymentResponse struct {
	Success      bool            `json:"success"`
	Plan         subsvc.PlanType `json:"plan,omitempty"`
	PaymentState string          `json:"paymentState,omitempty"`
}

func (m *Module) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		core.WriteError(w, core.ErrBadRequest)
		return
	}

	id, ok := requireSameUser(r, req.UserID)
	if !ok {
		core.WriteError(w, core.ErrForbidden)
		return
	}

	details, err := m.provider.GetCheckoutSession(r.Context(), req.SessionID)
	if err != nil {
		core.WriteError(w, core.ErrNotFound)
		return
	}

	// The session's metadata uid is the source of truth for who paid.
	// A session created for someone else can never upgrade this account.
	if details.UID == "" || details.UID != id.UID {
		core.WriteError(w, core.ErrForbidden)
		return
	}

	if !details.Paid {
		core.WriteJSON(w, http.StatusOK, verifyPaymentResponse{Success: false, PaymentState: "unpaid"})
		return
	}

	plan, err := subsvc.ParsePlanType(details.Plan)
	if err != nil {
		core.WriteError(w, core.ErrBadRequest)
		return
	}

	if _, err := m.svc.ActivateFromCheckout(r.Context(), id.UID, plan,
		details.CustomerID, details.SubscriptionID, details.PeriodEnd); err != nil {
		m.log.ErrorContext(r.Context(), "activate from checkout failed",
			slog.String("uid", id.UID), slog.Any("error", err))
		core.WriteError(w, core.ErrInternalServerError)
		return
	}

	core.WriteJSON(w, http.StatusOK, verifyPaymentResponse{Success: true, Plan: plan, PaymentState: "paid"})
}

type webhookResponse struct {
	Received bool `json:"received"`
}

func (m *Module) handleWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, webhookBodyLimit)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		core.WriteError(w, core.ErrBadRequest)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		signature = r.Header.Get("Paddle-Signature")
	}

	event, err := m.provider.ParseWebhook(r.Context(), payload, signature)
	if err != nil {
		core.WriteError(w, core.ErrBadRequest)
		return
	}

	if err := m.applyWebhookEvent(r, event); err != nil {
		m.log.ErrorContext(r.Context(), "webhook processing failed",
			slog.String("event", event.ProviderEvent), slog.Any("error", err))
		core.WriteError(w, core.ErrInternalServerError)
		return
	}

	core.WriteJSON(w, http.StatusOK, webhookResponse{Received: true})
}

func (m *Module) applyWebhookEvent(r *http.Request, event *billing.WebhookEvent) error {
	ctx := r.Context()

	switch event.Type {
	case billing.EventCheckoutCompleted:
		if event.UID == "" {
			m.log.WarnContext(ctx, "checkout event without uid metadata, skipping",
				slog.String("event", event.ProviderEvent))
			return nil
		}
		plan, err := subsvc.ParsePlanType(event.Plan)
		if err != nil {
			return err
		}
		_, err = m.svc.ActivateFromCheckout(ctx, event.UID, plan,
			event.CustomerID, event.SubscriptionID, event.PeriodEnd)
		return err

	case billing.EventSubscriptionUpdated:
		if event.UID == "" {
			return nil
		}
		patch := subsvc.Patch{CancelAtPeriodEnd: &event.CancelAtPeriodEnd}
		if event.PeriodEnd != nil {
			patch.CurrentPeriodEnd = event.PeriodEnd
		}
		if event.Status != "" {
			status := mapProviderStatus(event.Status)
			patch.Status = &status
		}
		_, err := m.svc.UpdateSubscription(ctx, event.UID, patch)
		if errors.Is(err, subsvc.ErrProfileNotFound) {
			// Webhooks can outlive deleted accounts; acknowledge and move on.
			return nil
		}
		return err

	case billing.EventSubscriptionCanceled:
		if event.UID == "" {
			return nil
		}
		plan := subsvc.PlanFree
		status := subsvc.StatusCanceled
		cancel := false
		_, err := m.svc.UpdateSubscription(ctx, event.UID, subsvc.Patch{
			Plan:              &plan,
			Status:            &status,
			CancelAtPeriodEnd: &cancel,
			ClearPeriodEnd:    true,
			ClearBillingIDs:   true,
		})
		if errors.Is(err, subsvc.ErrProfileNotFound) {
			return nil
		}
		return err
	}

	m.log.InfoContext(ctx, "webhook event ignored",
		slog.String("event", event.ProviderEvent))
	return nil
}

// mapProviderStatus folds the provider's status vocabulary into ours.
// Anything that is not clearly active counts as inactive; terminal states
// map to canceled.
func mapProviderStatus(s string) subsvc.Status {
	switch s {
	case "active", "trialing":
		return subsvc.StatusActive
	case "canceled", "cancelled", "expired":
		return subsvc.StatusCanceled
	}
	return subsvc.StatusInactive
}
