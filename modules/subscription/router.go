// Package subscription exposes the subscription management and billing HTTP
// surface: cancellation, manual plan changes, status reads, the checkout and
// payment-verification endpoints, the billing webhook and the reconciliation
// sweep trigger.
package subscription

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JoseRicoK/SecondBrain-sub001/pkg/billing"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/identity"
	subsvc "github.com/JoseRicoK/SecondBrain-sub001/svc/subscription"
)

// Module bundles the subscription HTTP handlers and their dependencies.
type Module struct {
	svc      *subsvc.Service
	provider billing.Provider
	verifier identity.Verifier

	providerName string
	sweepSecret  string
	log          *slog.Logger
}

// Config configures the subscription module.
type Config struct {
	Service  *subsvc.Service
	Provider billing.Provider
	Verifier identity.Verifier

	// ProviderName selects which catalog price ID checkout uses.
	ProviderName string
	// SweepSecret authorizes the scheduler-invoked reconciliation endpoint.
	SweepSecret string
	Logger      *slog.Logger
}

// New creates the subscription module. Panics on missing required deps.
func New(cfg Config) *Module {
	if cfg.Service == nil {
		panic("modules/subscription: Service is required")
	}
	if cfg.Provider == nil {
		panic("modules/subscription: billing Provider is required")
	}
	if cfg.Verifier == nil {
		panic("modules/subscription: identity Verifier is required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Module{
		svc:          cfg.Service,
		provider:     cfg.Provider,
		verifier:     cfg.Verifier,
		providerName: cfg.ProviderName,
		sweepSecret:  cfg.SweepSecret,
		log:          log,
	}
}

// Router returns the module's routes, meant to be mounted at /api.
// The webhook and the sweep trigger skip bearer auth: the webhook is
// signature-verified, the sweep is secret-header-verified.
func (m *Module) Router() chi.Router {
	r := chi.NewRouter()
	m.Mount(r)
	return r
}

// Mount registers the module's routes on an existing router, so several
// modules can share one /api router.
func (m *Module) Mount(r chi.Router) {
	r.Route("/subscription", func(sub chi.Router) {
		sub.Group(func(authed chi.Router) {
			authed.Use(identity.Middleware(m.verifier))
			authed.Post("/cancel", m.handleCancel)
			authed.Post("/update-manual", m.handleUpdateManual)
			authed.Get("/status", m.handleStatus)
		})

		sub.Post("/expire-subscriptions", m.handleExpire)
		sub.Get("/expire-subscriptions", m.handleExpire)
	})

	r.Route("/stripe", func(st chi.Router) {
		st.Group(func(authed chi.Router) {
			authed.Use(identity.Middleware(m.verifier))
			authed.Post("/create-checkout-session", m.handleCreateCheckout)
			authed.Post("/verify-payment", m.handleVerifyPayment)
		})

		st.Post("/webhook", m.handleWebhook)
	})
}

func (m *Module) priceFor(spec subsvc.PlanSpec) string {
	if m.providerName == "paddle" {
		return spec.PaddlePriceID
	}
	return spec.StripePriceID
}

// requireSameUser enforces the cross-user rule: a userId in the request that
// is not the authenticated uid is forbidden, never silently substituted.
func requireSameUser(r *http.Request, userID string) (identity.Identity, bool) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		return identity.Identity{}, false
	}
	if userID != "" && userID != id.UID {
		return id, false
	}
	return id, true
}
