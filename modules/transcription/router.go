// Package transcription exposes the voice note endpoint: upload an audio
// file, store it, and return the transcribed text. Transcriptions are
// metered per month through the usage gate, and the endpoint is rate
// limited per user to keep one client from monopolizing the AI budget.
package transcription

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JoseRicoK/SecondBrain-sub001/pkg/file"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/identity"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/ratelimit"
	"github.com/JoseRicoK/SecondBrain-sub001/svc/usage"
)

// Transcriber converts an audio stream to text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// Module bundles the transcription handler with its dependencies.
type Module struct {
	gate        *usage.Gate
	storage     file.Storage
	transcriber Transcriber
	verifier    identity.Verifier
	limiter     *ratelimit.FixedWindow
	log         *slog.Logger
}

// Config configures the transcription module.
type Config struct {
	Gate        *usage.Gate
	Storage     file.Storage
	Transcriber Transcriber
	Verifier    identity.Verifier

	// Limiter is optional; without it the endpoint relies on the monthly
	// quota alone.
	Limiter *ratelimit.FixedWindow
	Logger  *slog.Logger
}

// New creates the transcription module. Panics on missing required deps.
func New(cfg Config) *Module {
	if cfg.Gate == nil {
		panic("modules/transcription: usage Gate is required")
	}
	if cfg.Storage == nil {
		panic("modules/transcription: file Storage is required")
	}
	if cfg.Transcriber == nil {
		panic("modules/transcription: Transcriber is required")
	}
	if cfg.Verifier == nil {
		panic("modules/transcription: identity Verifier is required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Module{
		gate:        cfg.Gate,
		storage:     cfg.Storage,
		transcriber: cfg.Transcriber,
		verifier:    cfg.Verifier,
		limiter:     cfg.Limiter,
		log:         log,
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
	r.Group(func(authed chi.Router) {
		authed.Use(identity.Middleware(m.verifier))
		if m.limiter != nil {
			authed.Use(ratelimit.Middleware(m.limiter, uidKey))
		}
		authed.Post("/transcribe", m.handleTranscribe)
	})
}

// uidKey keys the rate limit window by the authenticated user. Runs after
// the identity middleware, so a missing identity (empty key) bypasses the
// limiter and fails auth in the handler chain instead.
func uidKey(r *http.Request) string {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		return ""
	}
	return "transcribe:" + id.UID
}
