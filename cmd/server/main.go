// Command server runs the journaling backend: profile and subscription
// management, diary entries, voice transcription, AI insights, and the
// billing webhook surface, all under /api.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	diarymod "github.com/JoseRicoK/SecondBrain-sub001/modules/diary"
	statsmod "github.com/JoseRicoK/SecondBrain-sub001/modules/statistics"
	subsmod "github.com/JoseRicoK/SecondBrain-sub001/modules/subscription"
	transmod "github.com/JoseRicoK/SecondBrain-sub001/modules/transcription"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/billing"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/clientip"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/config"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/email"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/file"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/httpserver"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/identity"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/logger"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/mongo"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/openai"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/ratelimit"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/redis"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/requestid"
	"github.com/JoseRicoK/SecondBrain-sub001/svc/diary"
	"github.com/JoseRicoK/SecondBrain-sub001/svc/insights"
	"github.com/JoseRicoK/SecondBrain-sub001/svc/subscription"
	"github.com/JoseRicoK/SecondBrain-sub001/svc/usage"
)

type appConfig struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"APP_NAME" envDefault:"secondbrain-api"`

	// SweepSecret authorizes the scheduled subscription reconciliation
	// endpoint. Leave empty to disable the endpoint entirely.
	SweepSecret string `env:"SWEEP_SECRET"`

	// PlansFile points at the YAML plan catalog carrying price IDs. Without
	// it the built-in catalog is used and checkout is unavailable.
	PlansFile string `env:"PLANS_FILE"`

	// Per-user transcription rate limit, on top of the monthly quota.
	TranscribeRateLimit  int           `env:"TRANSCRIBE_RATE_LIMIT" envDefault:"10"`
	TranscribeRateWindow time.Duration `env:"TRANSCRIBE_RATE_WINDOW" envDefault:"1m"`

	// Development fallbacks for the storage and email providers.
	UploadsDir string `env:"UPLOADS_DIR" envDefault:"./uploads"`
	EmailsDir  string `env:"EMAILS_DIR" envDefault:"./emails"`

	HTTP     httpserver.Config
	Mongo    mongo.Config
	Redis    redis.Config
	Firebase identity.Config
	Billing  billing.Config
	Email    email.Config
	S3       file.S3Config
	OpenAI   openai.Config
}

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.WithEnvironment(cfg.Env, cfg.ServiceName))
	logger.SetAsDefault(log)

	db, err := mongo.NewWithDatabase(ctx, cfg.Mongo)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() { _ = db.Client().Disconnect(context.Background()) }()

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	verifier, err := identity.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		return fmt.Errorf("init firebase verifier: %w", err)
	}

	provider, err := billing.New(cfg.Billing)
	if err != nil {
		return fmt.Errorf("init billing provider: %w", err)
	}

	mailer, err := newMailer(cfg, log)
	if err != nil {
		return fmt.Errorf("init mailer: %w", err)
	}

	storage, err := newStorage(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("init file storage: %w", err)
	}

	ai, err := openai.NewClient(cfg.OpenAI)
	if err != nil {
		return fmt.Errorf("init openai client: %w", err)
	}

	catalog, err := newCatalog(ctx, cfg)
	if err != nil {
		return fmt.Errorf("load plan catalog: %w", err)
	}

	subSvc := subscription.NewService(subscription.NewMongoStore(db), catalog,
		subscription.WithBillingCanceler(provider),
		subscription.WithMailer(mailer),
		subscription.WithLogger(log),
	)
	usageSvc := usage.NewService(usage.NewMongoStore(db), usage.WithLogger(log))
	gate := usage.NewGate(subSvc, usageSvc)
	diarySvc := diary.NewService(diary.NewMongoStore(db), diary.WithLogger(log))
	insightSvc := insights.NewService(ai, diarySvc, insights.WithLogger(log))

	limiter, err := ratelimit.NewFixedWindow(
		ratelimit.NewRedisStore(redisClient, ""),
		cfg.TranscribeRateLimit, cfg.TranscribeRateWindow)
	if err != nil {
		return fmt.Errorf("init rate limiter: %w", err)
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(clientip.Middleware)

	r.Get("/health", httpserver.HealthCheckHandler(log,
		mongo.Healthcheck(db.Client()),
		redis.Healthcheck(redisClient),
	))

	r.Route("/api", func(api chi.Router) {
		subsmod.New(subsmod.Config{
			Service:      subSvc,
			Provider:     provider,
			Verifier:     verifier,
			ProviderName: cfg.Billing.Provider,
			SweepSecret:  cfg.SweepSecret,
			Logger:       log,
		}).Mount(api)
		statsmod.New(statsmod.Config{
			Diary:    diarySvc,
			Insights: insightSvc,
			Gate:     gate,
			Verifier: verifier,
			Logger:   log,
		}).Mount(api)
		diarymod.New(diarymod.Config{
			Service:  diarySvc,
			Gate:     gate,
			Stylist:  insightSvc,
			Verifier: verifier,
			Logger:   log,
		}).Mount(api)
		transmod.New(transmod.Config{
			Gate:        gate,
			Storage:     storage,
			Transcriber: ai,
			Verifier:    verifier,
			Limiter:     limiter,
			Logger:      log,
		}).Mount(api)
	})

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	return srv.Run(ctx, r)
}

// newMailer picks Postmark when a server token is configured, or the
// filesystem sender for local development.
func newMailer(cfg appConfig, log *slog.Logger) (email.EmailSender, error) {
	if cfg.Email.PostmarkServerToken != "" {
		return email.NewPostmarkClient(cfg.Email)
	}
	log.Warn("no postmark token configured, writing emails to disk",
		slog.String("dir", cfg.EmailsDir))
	return email.NewDevSender(cfg.EmailsDir), nil
}

// newStorage picks S3 when a bucket is configured, or local disk for
// development.
func newStorage(ctx context.Context, cfg appConfig, log *slog.Logger) (file.Storage, error) {
	if cfg.S3.Bucket != "" {
		return file.NewS3Storage(ctx, cfg.S3)
	}
	log.Warn("no S3 bucket configured, storing uploads on disk",
		slog.String("dir", cfg.UploadsDir))
	return file.NewLocalStorage(cfg.UploadsDir, "/files")
}

// newCatalog loads the plan catalog from the configured YAML file, or the
// built-in limits table when none is set.
func newCatalog(ctx context.Context, cfg appConfig) (*subscription.Catalog, error) {
	if cfg.PlansFile == "" {
		return subscription.DefaultCatalog(), nil
	}
	return subscription.NewCatalogFromSource(ctx, subscription.NewYAMLSource(cfg.PlansFile))
}
