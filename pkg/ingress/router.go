package ingress

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/manik3160/NeverDown/pkg/ingress/auth"
	"github.com/manik3160/NeverDown/pkg/ingress/webhook"
	"go.uber.org/zap"
)

// Config collects everything Router needs beyond the storage/pipeline
// dependencies, mirroring main.py's create_app settings lookups.
type Config struct {
	AppName           string
	AppVersion        string
	APIKey            string
	GitHubWebhookSecret string
	RequestsPerMinute int
	CORSAllowedOrigins []string
	GitHub            auth.Config
}

// Deps collects the backing dependencies a Router call wires into
// handlers.
type Deps struct {
	Incidents     IncidentStore
	Audit         AuditReader
	Verifications VerificationReader
	Pipeline      Pipeline
	Scheduler     Scheduler
	Dedup         *webhook.Deduper
	DB            *sqlx.DB
	MaxRefinement int
	Logger        *zap.Logger
}

// NewRouter builds the full chi.Mux: request logging outermost (added
// first, so it runs first), then CORS, then rate limiting. API-key auth
// covers every /incidents route, reads included; the webhook, OAuth and
// health routes are outside it.
func NewRouter(cfg Config, deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestLogger(deps.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))
	limiter := NewRateLimiter(cfg.RequestsPerMinute)
	r.Use(limiter.Middleware)

	health := &healthHandlers{appName: cfg.AppName, version: cfg.AppVersion, db: deps.DB}
	r.Get("/health", health.health)
	r.Get("/health/live", health.live)
	r.Get("/health/ready", health.ready)

	incidents := &incidentHandlers{
		store:         deps.Incidents,
		audit:         deps.Audit,
		verifications: deps.Verifications,
		pipeline:      deps.Pipeline,
		scheduler:     deps.Scheduler,
		maxRefinement: deps.MaxRefinement,
		logger:        deps.Logger,
	}
	webhooks := &webhookHandlers{
		store:        deps.Incidents,
		pipeline:     deps.Pipeline,
		scheduler:    deps.Scheduler,
		dedup:        deps.Dedup,
		githubSecret: cfg.GitHubWebhookSecret,
		logger:       deps.Logger,
	}
	githubAuth := auth.NewHandlers(cfg.GitHub, deps.Logger)

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/webhooks/github", webhooks.github)
		api.Post("/webhooks/datadog", webhooks.datadog)

		api.Get("/auth/github/login", githubAuth.Login)
		api.Get("/auth/github/callback", githubAuth.Callback)

		api.Group(func(protected chi.Router) {
			protected.Use(APIKeyAuth(cfg.APIKey))

			protected.Post("/incidents", incidents.create)
			protected.Get("/incidents", incidents.list)
			protected.Get("/incidents/{id}", incidents.get)
			protected.Delete("/incidents/{id}", incidents.del)
			protected.Post("/incidents/{id}/retry", incidents.retry)
			protected.Post("/incidents/{id}/feedback", incidents.feedback)
			protected.Get("/incidents/{id}/status", incidents.status)
			protected.Get("/incidents/{id}/audit", incidents.audit)
			protected.Get("/incidents/{id}/detective", incidents.detective)
			protected.Get("/incidents/{id}/reasoner", incidents.reasoner)
			protected.Get("/incidents/{id}/verifier", incidents.verifier)
		})
	})

	return r
}
