// Package statistics exposes the mood statistics and AI insight endpoints.
// Access to the statistics screen is metered per month through the usage
// gate; the data endpoints themselves are not metered so a granted screen
// load can fetch everything it renders.
package statistics

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JoseRicoK/SecondBrain-sub001/pkg/identity"
	"github.com/JoseRicoK/SecondBrain-sub001/svc/diary"
	"github.com/JoseRicoK/SecondBrain-sub001/svc/insights"
	"github.com/JoseRicoK/SecondBrain-sub001/svc/usage"
)

// Module bundles the statistics handlers with their dependencies.
type Module struct {
	diary    *diary.Service
	insights *insights.Service
	gate     *usage.Gate
	verifier identity.Verifier
	log      *slog.Logger
}

// Config configures the statistics module.
type Config struct {
	Diary    *diary.Service
	Insights *insights.Service
	Gate     *usage.Gate
	Verifier identity.Verifier
	Logger   *slog.Logger
}

// New creates the statistics module. Panics on missing required deps.
func New(cfg Config) *Module {
	if cfg.Diary == nil {
		panic("modules/statistics: Diary service is required")
	}
	if cfg.Insights == nil {
		panic("modules/statistics: Insights service is required")
	}
	if cfg.Gate == nil {
		panic("modules/statistics: usage Gate is required")
	}
	if cfg.Verifier == nil {
		panic("modules/statistics: identity Verifier is required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Module{
		diary:    cfg.Diary,
		insights: cfg.Insights,
		gate:     cfg.Gate,
		verifier: cfg.Verifier,
		log:      log,
	}
}

// Router returns the module's routes, meant to be mounted at /api.
func (m *Module) Router() chi.Router {
	r := chi.NewRouter()
	m.Mount(r)
	return r
}

// Mount registers the module's routes on an existing router, so several
// modules can share one /api router.
func (m *Module) Mount(r chi.Router) {
	r.Route("/statistics", func(st chi.Router) {
		st.Use(identity.Middleware(m.verifier))
		st.Post("/access", m.handleAccess)
		st.Get("/mood", m.handleMood)
		st.Get("/people", m.handlePeople)
		st.Get("/summary", m.handleSummary)
		st.Get("/quote", m.handleQuote)
	})
}

// requireSameUser resolves the authenticated identity and rejects requests
// whose userId names someone else. An empty userId means "myself".
func requireSameUser(r *http.Request, userID string) (identity.Identity, bool) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		return identity.Identity{}, false
	}
	if userID != "" && userID != id.UID {
		return identity.Identity{}, false
	}
	return id, true
}
