// Package diary exposes the journal entry endpoints. Entry creation enforces
// the tracked-people plan limit: an entry may only introduce people the
// user's plan still has room for.
package diary

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JoseRicoK/SecondBrain-sub001/pkg/identity"
	diarysvc "github.com/JoseRicoK/SecondBrain-sub001/svc/diary"
	"github.com/JoseRicoK/SecondBrain-sub001/svc/usage"
)

// Stylist rewrites entry text in a requested voice. *insights.Service
// satisfies it.
type Stylist interface {
	Stylize(ctx context.Context, text, style string) string
}

// Module bundles the diary handlers with their dependencies.
type Module struct {
	svc      *diarysvc.Service
	gate     *usage.Gate
	stylist  Stylist
	verifier identity.Verifier
	log      *slog.Logger
}

// Config configures the diary module.
type Config struct {
	Service  *diarysvc.Service
	Gate     *usage.Gate
	Stylist  Stylist
	Verifier identity.Verifier
	Logger   *slog.Logger
}

// New creates the diary module. Panics on missing required deps.
func New(cfg Config) *Module {
	if cfg.Service == nil {
		panic("modules/diary: diary Service is required")
	}
	if cfg.Gate == nil {
		panic("modules/diary: usage Gate is required")
	}
	if cfg.Stylist == nil {
		panic("modules/diary: Stylist is required")
	}
	if cfg.Verifier == nil {
		panic("modules/diary: identity Verifier is required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Module{
		svc:      cfg.Service,
		gate:     cfg.Gate,
		stylist:  cfg.Stylist,
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
	r.Route("/diary", func(d chi.Router) {
		d.Use(identity.Middleware(m.verifier))
		d.Post("/entries", m.handleCreateEntry)
		d.Get("/entries", m.handleListEntries)
		d.Post("/stylize", m.handleStylize)
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
