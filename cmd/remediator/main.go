// Command remediator is the process entrypoint: it loads configuration,
// opens storage, wires the five pipeline stages into an orchestrator, and
// serves the HTTP ingress until an interrupt or terminate signal arrives.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/manik3160/NeverDown/internal/config"
	"github.com/manik3160/NeverDown/pkg/audit"
	"github.com/manik3160/NeverDown/pkg/ingress"
	"github.com/manik3160/NeverDown/pkg/ingress/auth"
	"github.com/manik3160/NeverDown/pkg/ingress/webhook"
	"github.com/manik3160/NeverDown/pkg/metrics"
	"github.com/manik3160/NeverDown/pkg/orchestrator"
	"github.com/manik3160/NeverDown/pkg/publisher"
	"github.com/manik3160/NeverDown/pkg/reasoner/llm"
	"github.com/manik3160/NeverDown/pkg/sanitizer"
	"github.com/manik3160/NeverDown/pkg/storage"
	"github.com/manik3160/NeverDown/pkg/verifier"
)

// errgroupScheduler satisfies ingress.Scheduler over an errgroup.Group
// with a bounded worker count, so concurrently arriving incidents don't
// spawn an unbounded number of goroutines against the sandbox and the
// git host API.
type errgroupScheduler struct {
	g *errgroup.Group
}

func newErrgroupScheduler(limit int) *errgroupScheduler {
	g := new(errgroup.Group)
	g.SetLimit(limit)
	return &errgroupScheduler{g: g}
}

func (s *errgroupScheduler) Submit(fn func(ctx context.Context)) {
	s.g.Go(func() error {
		fn(context.Background())
		return nil
	})
}

func main() {
	pipelineLog := logrus.New()
	pipelineLog.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(configPath())
	if err != nil {
		pipelineLog.WithError(err).Fatal("load configuration")
	}

	ingressLog, err := zap.NewProduction()
	if err != nil {
		pipelineLog.WithError(err).Fatal("build ingress logger")
	}
	defer ingressLog.Sync() //nolint:errcheck

	db, err := storage.Open(cfg.Database.URL.Value())
	if err != nil {
		pipelineLog.WithError(err).Fatal("open database")
	}
	defer db.Close()

	if err := storage.Migrate(db.DB); err != nil {
		pipelineLog.WithError(err).Fatal("run migrations")
	}

	auditCtx, auditCancel := context.WithTimeout(context.Background(), 10*time.Second)
	auditPool, err := pgxpool.New(auditCtx, cfg.Database.URL.Value())
	auditCancel()
	if err != nil {
		pipelineLog.WithError(err).Fatal("open audit connection pool")
	}
	defer auditPool.Close()

	incidents := storage.NewIncidentRepository(db)
	patches := storage.NewPatchRepository(db)
	verifications := storage.NewVerificationRepository(db)
	auditReader := storage.NewAuditReader(db)
	auditSink := audit.NewSink(auditPool, pipelineLog)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := auditSink.Close(shutdownCtx); err != nil {
			pipelineLog.WithError(err).Warn("audit sink close")
		}
	}()

	san := sanitizer.New(sanitizer.Config{
		EntropyThreshold: cfg.Sanitizer.EntropyThreshold,
		MinEntropyLength: cfg.Sanitizer.MinLength,
		MaxSecretsHalt:   cfg.Sanitizer.MaxSecretsHalt,
	}, pipelineLog)

	llmClient, err := llm.NewClient(cfg.LLM, pipelineLog)
	if err != nil {
		pipelineLog.WithError(err).Fatal("build LLM client")
	}

	sandbox, err := verifier.NewSandbox(cfg.Sandbox)
	if err != nil {
		pipelineLog.WithError(err).Fatal("build verifier sandbox")
	}
	ver := verifier.New(sandbox, pipelineLog)

	gitHostClient := publisher.NewGitHostClient(cfg.GitHost)
	pub := publisher.New(gitHostClient, cfg.GitHost, cfg.AllowManualApplyFallback, pipelineLog)

	orch := orchestrator.New(
		san,
		llmClient,
		cfg.Reasoner,
		cfg.LLM.Model,
		ver,
		pub,
		incidents,
		patches,
		verifications,
		auditSink,
		cfg,
		pipelineLog,
	)

	var dedup *webhook.Deduper
	if !cfg.RedisURL.Empty() {
		opts, err := redis.ParseURL(cfg.RedisURL.Value())
		if err != nil {
			pipelineLog.WithError(err).Fatal("parse redis url")
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		dedup = webhook.NewDeduper(redisClient)
	}

	scheduler := newErrgroupScheduler(16)

	router := ingress.NewRouter(ingress.Config{
		AppName:             cfg.Ingress.AppName,
		AppVersion:          cfg.Ingress.AppVersion,
		APIKey:              cfg.Ingress.APIKey.Value(),
		GitHubWebhookSecret: cfg.GitHost.WebhookSharedSecret.Value(),
		RequestsPerMinute:   cfg.Ingress.RequestsPerMinute,
		CORSAllowedOrigins:  cfg.Ingress.CORSAllowedOrigins,
		GitHub: auth.Config{
			ClientID:     cfg.GitHost.OAuthClientID,
			ClientSecret: cfg.GitHost.OAuthClientSecret.Value(),
			RedirectURL:  cfg.GitHost.OAuthRedirectURL,
			FrontendURL:  cfg.GitHost.FrontendURL,
		},
	}, ingress.Deps{
		Incidents:     incidents,
		Audit:         auditReader,
		Verifications: verifications,
		Pipeline:      orch,
		Scheduler:     scheduler,
		Dedup:         dedup,
		DB:            db,
		MaxRefinement: cfg.Refinement.MaxIterations,
		Logger:        ingressLog,
	})

	metricsServer := metrics.NewServer(cfg.Server.MetricsPort, pipelineLog)
	metricsServer.StartAsync()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			pipelineLog.WithError(err).Warn("metrics server shutdown")
		}
	}()

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Server.WebhookPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		pipelineLog.WithField("port", cfg.Server.WebhookPort).Info("ingress listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			pipelineLog.WithError(err).Fatal("ingress server stopped unexpectedly")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	pipelineLog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		pipelineLog.WithError(err).Warn("ingress server shutdown")
	}
}

// configPath resolves the settings file location, defaulting to the
// working directory's config.yaml so a plain `./remediator` works out of
// the box in a container image.
func configPath() string {
	if v := os.Getenv("NEVERDOWN_CONFIG"); v != "" {
		return v
	}
	return "config.yaml"
}
