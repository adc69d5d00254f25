package subscription_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	module "github.com/JoseRicoK/SecondBrain-sub001/modules/subscription"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/billing"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/identity"
	subsvc "github.com/JoseRicoK/SecondBrain-sub001/svc/subscription"
)

type stubVerifier struct {
	identities map[string]identity.Identity
}

func (v *stubVerifier) Verify(_ context.Context, token string) (identity.Identity, error) {
	id, ok := v.identities[token]
	if !ok {
		return identity.Identity{}, identity.ErrInvalidToken
	}
	return id, nil
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if s := args.Get(0); s != nil {
		return s.(*billing.CheckoutSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*billing.CheckoutDetails, error) {
	args := m.Called(ctx, sessionID)
	if d := args.Get(0); d != nil {
		return d.(*billing.CheckoutDetails), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error) {
	args := m.Called(ctx, subscriptionID)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *mockProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*billing.WebhookEvent, error) {
	args := m.Called(ctx, payload, signature)
	if e := args.Get(0); e != nil {
		return e.(*billing.WebhookEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// testCatalog mirrors the built-in catalog but carries price IDs so the
// checkout handlers have something to hand to the billing provider.
func testCatalog(t *testing.T) *subsvc.Catalog {
	t.Helper()
	specs := make([]subsvc.PlanSpec, 0, 4)
	for _, plan := range []subsvc.PlanType{subsvc.PlanFree, subsvc.PlanBasic, subsvc.PlanPro, subsvc.PlanElite} {
		spec, err := subsvc.DefaultCatalog().Get(plan)
		require.NoError(t, err)
		if plan.IsPaid() {
			spec.StripePriceID = "price_" + string(plan)
			spec.PaddlePriceID = "pri_" + string(plan)
		}
		specs = append(specs, spec)
	}
	catalog, err := subsvc.NewCatalog(specs...)
	require.NoError(t, err)
	return catalog
}

type fixture struct {
	router   http.Handler
	store    *subsvc.MemoryStore
	provider *mockProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := subsvc.NewMemoryStore()
	provider := &mockProvider{}
	svc := subsvc.NewService(store, testCatalog(t),
		subsvc.WithClock(func() time.Time { return fixedNow }),
	)

	m := module.New(module.Config{
		Service:  svc,
		Provider: provider,
		Verifier: &stubVerifier{identities: map[string]identity.Identity{
			"token-1": {UID: "uid-1", Email: "uid-1@example.com"},
			"token-2": {UID: "uid-2", Email: "uid-2@example.com"},
		}},
		SweepSecret: "sweep-secret",
	})
	return &fixture{router: m.Router(), store: store, provider: provider}
}

func (f *fixture) seed(t *testing.T, uid string, sub subsvc.Subscription) {
	t.Helper()
	require.NoError(t, f.store.Save(context.Background(), &subsvc.Profile{
		UID:          uid,
		Email:        uid + "@example.com",
		Subscription: sub,
	}))
}

func (f *fixture) do(t *testing.T, method, path, token, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestCancelEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("requires auth", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/subscription/cancel", "", `{"userId":"uid-1"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
	})

	t.Run("cross-user cancel is forbidden", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.seed(t, "uid-1", subsvc.Subscription{Plan: subsvc.PlanPro, Status: subsvc.StatusActive})

		rec := f.do(t, http.MethodPost, "/subscription/cancel", "token-2", `{"userId":"uid-1"}`, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "FORBIDDEN")

		// Target profile untouched.
		profile, err := f.store.Get(context.Background(), "uid-1")
		require.NoError(t, err)
		assert.False(t, profile.Subscription.CancelAtPeriodEnd)
	})

	t.Run("cancel on free plan is a validation error", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.seed(t, "uid-1", subsvc.Subscription{Plan: subsvc.PlanFree, Status: subsvc.StatusInactive})

		rec := f.do(t, http.MethodPost, "/subscription/cancel", "token-1", `{"userId":"uid-1"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
	})

	t.Run("successful cancel returns the effective date", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.seed(t, "uid-1", subsvc.Subscription{Plan: subsvc.PlanPro, Status: subsvc.StatusActive})

		rec := f.do(t, http.MethodPost, "/subscription/cancel", "token-1", `{"userId":"uid-1"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data struct {
				Success  bool      `json:"success"`
				CancelAt time.Time `json:"cancelAt"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Data.Success)
		assert.True(t, resp.Data.CancelAt.Equal(fixedNow.AddDate(0, 1, 0)))
	})
}

func TestUpdateManualEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("rejects plans outside the manual set", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.seed(t, "uid-1", subsvc.Subscription{Plan: subsvc.PlanFree, Status: subsvc.StatusInactive})

		for _, plan := range []string{"basic", "premium", ""} {
			rec := f.do(t, http.MethodPost, "/subscription/update-manual", "token-1",
				`{"userId":"uid-1","planType":"`+plan+`"}`, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code, "plan %q", plan)
		}
	})

	t.Run("sets pro plan active", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.seed(t, "uid-1", subsvc.Subscription{Plan: subsvc.PlanFree, Status: subsvc.StatusInactive})

		rec := f.do(t, http.MethodPost, "/subscription/update-manual", "token-1",
			`{"userId":"uid-1","planType":"pro"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		profile, err := f.store.Get(context.Background(), "uid-1")
		require.NoError(t, err)
		assert.Equal(t, subsvc.PlanPro, profile.Subscription.Plan)
		assert.Equal(t, subsvc.StatusActive, profile.Subscription.Status)
	})

	t.Run("downgrade to free clears billing state", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		end := fixedNow.AddDate(0, 1, 0)
		f.seed(t, "uid-1", subsvc.Subscription{
			Plan:             subsvc.PlanElite,
			Status:           subsvc.StatusActive,
			CustomerID:       "cus_1",
			SubscriptionID:   "sub_1",
			CurrentPeriodEnd: &end,
		})

		rec := f.do(t, http.MethodPost, "/subscription/update-manual", "token-1",
			`{"userId":"uid-1","planType":"free"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		profile, err := f.store.Get(context.Background(), "uid-1")
		require.NoError(t, err)
		assert.Equal(t, subsvc.PlanFree, profile.Subscription.Plan)
		assert.Equal(t, subsvc.StatusInactive, profile.Subscription.Status)
		assert.Nil(t, profile.Subscription.CurrentPeriodEnd)
		assert.Empty(t, profile.Subscription.SubscriptionID)
	})
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("reports stored and effective plan", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		yesterday := fixedNow.AddDate(0, 0, -1)
		f.seed(t, "uid-1", subsvc.Subscription{
			Plan:             subsvc.PlanPro,
			Status:           subsvc.StatusActive,
			CurrentPeriodEnd: &yesterday,
		})

		rec := f.do(t, http.MethodGet, "/subscription/status?userId=uid-1", "token-1", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data struct {
				Plan          string `json:"plan"`
				EffectivePlan string `json:"effectivePlan"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "pro", resp.Data.Plan)
		assert.Equal(t, "free", resp.Data.EffectivePlan)
	})

	t.Run("cross-user status is forbidden", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.seed(t, "uid-1", subsvc.Subscription{Plan: subsvc.PlanPro, Status: subsvc.StatusActive})

		rec := f.do(t, http.MethodGet, "/subscription/status?userId=uid-1", "token-2", "", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("first login creates a free profile", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.do(t, http.MethodGet, "/subscription/status", "token-1", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data struct {
				Plan         string `json:"plan"`
				Status       string `json:"status"`
				IsFirstLogin bool   `json:"isFirstLogin"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "free", resp.Data.Plan)
		assert.Equal(t, "inactive", resp.Data.Status)
		assert.True(t, resp.Data.IsFirstLogin)

		profile, err := f.store.Get(context.Background(), "uid-1")
		require.NoError(t, err)
		assert.Equal(t, "uid-1@example.com", profile.Email)
		assert.Equal(t, subsvc.PlanFree, profile.Subscription.Plan)
	})

	t.Run("repeat login keeps the paid subscription", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		end := fixedNow.AddDate(0, 1, 0)
		f.seed(t, "uid-1", subsvc.Subscription{
			Plan:             subsvc.PlanElite,
			Status:           subsvc.StatusActive,
			CurrentPeriodEnd: &end,
		})

		rec := f.do(t, http.MethodGet, "/subscription/status?userId=uid-1", "token-1", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data struct {
				Plan         string `json:"plan"`
				IsFirstLogin bool   `json:"isFirstLogin"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "elite", resp.Data.Plan)
		assert.False(t, resp.Data.IsFirstLogin)

		profile, err := f.store.Get(context.Background(), "uid-1")
		require.NoError(t, err)
		assert.Equal(t, subsvc.PlanElite, profile.Subscription.Plan)
		assert.Equal(t, subsvc.StatusActive, profile.Subscription.Status)
	})
}

func TestExpireEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("requires the sweep secret", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.do(t, http.MethodPost, "/subscription/expire-subscriptions", "", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = f.do(t, http.MethodPost, "/subscription/expire-subscriptions", "", "",
			map[string]string{"X-Sweep-Secret": "wrong"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("sweep downgrades expired cancellations", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		yesterday := fixedNow.AddDate(0, 0, -1)
		f.seed(t, "uid-1", subsvc.Subscription{
			Plan:              subsvc.PlanPro,
			Status:            subsvc.StatusActive,
			CurrentPeriodEnd:  &yesterday,
			CancelAtPeriodEnd: true,
		})

		rec := f.do(t, http.MethodPost, "/subscription/expire-subscriptions", "", "",
			map[string]string{"X-Sweep-Secret": "sweep-secret"})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data struct {
				Processed int `json:"processed"`
				Expired   int `json:"expired"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Data.Processed)
		assert.Equal(t, 1, resp.Data.Expired)
	})
}

func TestCreateCheckoutEndpoint(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, "uid-1", subsvc.Subscription{Plan: subsvc.PlanFree, Status: subsvc.StatusInactive})
	f.provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(req billing.CheckoutRequest) bool {
		return req.UID == "uid-1" && req.Plan == "pro" && req.PriceID != ""
	})).Return(&billing.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/cs_1"}, nil)

	rec := f.do(t, http.MethodPost, "/stripe/create-checkout-session", "token-1",
		`{"userId":"uid-1","planType":"pro"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cs_1")
	f.provider.AssertExpectations(t)

	// Free plan cannot be bought.
	rec = f.do(t, http.MethodPost, "/stripe/create-checkout-session", "token-1",
		`{"userId":"uid-1","planType":"free"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyPaymentEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("session metadata uid mismatch is forbidden", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.seed(t, "uid-1", subsvc.Subscription{Plan: subsvc.PlanFree, Status: subsvc.StatusInactive})
		f.provider.On("GetCheckoutSession", mock.Anything, "cs_1").
			Return(&billing.CheckoutDetails{ID: "cs_1", UID: "uid-other", Plan: "pro", Paid: true}, nil)

		rec := f.do(t, http.MethodPost, "/stripe/verify-payment", "token-1",
			`{"sessionId":"cs_1","userId":"uid-1"}`, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		// No entitlement was granted.
		profile, err := f.store.Get(context.Background(), "uid-1")
		require.NoError(t, err)
		assert.Equal(t, subsvc.PlanFree, profile.Subscription.Plan)
	})

	t.Run("paid session activates the plan", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.seed(t, "uid-1", subsvc.Subscription{Plan: subsvc.PlanFree, Status: subsvc.StatusInactive})
		end := fixedNow.AddDate(0, 1, 0)
		f.provider.On("GetCheckoutSession", mock.Anything, "cs_1").
			Return(&billing.CheckoutDetails{
				ID: "cs_1", UID: "uid-1", Plan: "elite", Paid: true,
				CustomerID: "cus_1", SubscriptionID: "sub_1", PeriodEnd: &end,
			}, nil)

		rec := f.do(t, http.MethodPost, "/stripe/verify-payment", "token-1",
			`{"sessionId":"cs_1","userId":"uid-1"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		profile, err := f.store.Get(context.Background(), "uid-1")
		require.NoError(t, err)
		assert.Equal(t, subsvc.PlanElite, profile.Subscription.Plan)
		assert.Equal(t, subsvc.StatusActive, profile.Subscription.Status)
		assert.True(t, profile.Subscription.FirstPaymentCompleted)
	})

	t.Run("unpaid session grants nothing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.seed(t, "uid-1", subsvc.Subscription{Plan: subsvc.PlanFree, Status: subsvc.StatusInactive})
		f.provider.On("GetCheckoutSession", mock.Anything, "cs_1").
			Return(&billing.CheckoutDetails{ID: "cs_1", UID: "uid-1", Plan: "pro", Paid: false}, nil)

		rec := f.do(t, http.MethodPost, "/stripe/verify-payment", "token-1",
			`{"sessionId":"cs_1","userId":"uid-1"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"success":false`)

		profile, err := f.store.Get(context.Background(), "uid-1")
		require.NoError(t, err)
		assert.Equal(t, subsvc.PlanFree, profile.Subscription.Plan)
	})
}

func TestWebhookEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("checkout completed activates plan without bearer auth", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.seed(t, "uid-1", subsvc.Subscription{Plan: subsvc.PlanFree, Status: subsvc.StatusInactive})
		end := fixedNow.AddDate(0, 1, 0)
		f.provider.On("ParseWebhook", mock.Anything, mock.Anything, "sig").
			Return(&billing.WebhookEvent{
				Type: billing.EventCheckoutCompleted, ProviderEvent: "checkout.session.completed",
				UID: "uid-1", Plan: "basic", CustomerID: "cus_1", SubscriptionID: "sub_1", PeriodEnd: &end,
			}, nil)

		rec := f.do(t, http.MethodPost, "/stripe/webhook", "", `{}`,
			map[string]string{"Stripe-Signature": "sig"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"received":true`)

		profile, err := f.store.Get(context.Background(), "uid-1")
		require.NoError(t, err)
		assert.Equal(t, subsvc.PlanBasic, profile.Subscription.Plan)
	})

	t.Run("invalid signature is rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.provider.On("ParseWebhook", mock.Anything, mock.Anything, "bad").
			Return(nil, billing.ErrInvalidSignature)

		rec := f.do(t, http.MethodPost, "/stripe/webhook", "", `{}`,
			map[string]string{"Stripe-Signature": "bad"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("subscription canceled event downgrades to free", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.seed(t, "uid-1", subsvc.Subscription{
			Plan: subsvc.PlanPro, Status: subsvc.StatusActive,
			CustomerID: "cus_1", SubscriptionID: "sub_1",
		})
		f.provider.On("ParseWebhook", mock.Anything, mock.Anything, "sig").
			Return(&billing.WebhookEvent{
				Type: billing.EventSubscriptionCanceled, ProviderEvent: "customer.subscription.deleted",
				UID: "uid-1", SubscriptionID: "sub_1", Status: "canceled",
			}, nil)

		rec := f.do(t, http.MethodPost, "/stripe/webhook", "", `{}`,
			map[string]string{"Stripe-Signature": "sig"})
		require.Equal(t, http.StatusOK, rec.Code)

		profile, err := f.store.Get(context.Background(), "uid-1")
		require.NoError(t, err)
		assert.Equal(t, subsvc.PlanFree, profile.Subscription.Plan)
		assert.Equal(t, subsvc.StatusCanceled, profile.Subscription.Status)
		assert.Empty(t, profile.Subscription.SubscriptionID)
	})
}
