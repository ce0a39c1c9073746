package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketingops/internal/domain/audit"
	"marketingops/internal/domain/auth"
	"marketingops/internal/domain/compliance"
	"marketingops/internal/platform/archive"
	"marketingops/internal/platform/config"
	"marketingops/internal/platform/crypto"
	"marketingops/internal/platform/db"
	"marketingops/internal/platform/email"
	"marketingops/internal/platform/jobs"
	"marketingops/internal/platform/metrics"
	authhandler "marketingops/internal/transport/http/handlers/auth"
	compliancehandler "marketingops/internal/transport/http/handlers/compliance"
	"marketingops/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	Router  http.Handler
	Jobs    *jobs.Service
	Metrics *metrics.Collector

	pool    *pgxpool.Pool
	closers []func() error
	cancel  context.CancelFunc
}

// backend is the persistence chosen by STORE_DRIVER.
type backend struct {
	store       compliance.StoreAPI
	audit       audit.Log
	users       auth.UserFinder
	runs        jobs.RunStore
	idempotency middleware.IdempotencyStore
}

// New assembles the application. Background jobs start immediately and stop
// on Close.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg, Metrics: metrics.New()}

	be, err := app.openBackend(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	sink, err := app.openArchive(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	cipher, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	if !cipher.Configured() {
		slog.Warn("DATA_ENCRYPTION_KEY not set; restricted fields are stored in plain text")
	}

	retentionOpts := []compliance.RetentionOption{compliance.WithDeletionGrace(cfg.ScheduledDeletionGrace)}
	if cfg.MetricsEnabled {
		retentionOpts = append(retentionOpts, compliance.WithSweepRecorder(app.Metrics))
	}
	retention := compliance.NewRetentionService(be.store, sink, retentionOpts...)
	consent := compliance.NewConsentManager(be.store, be.audit)
	notifier := email.NewRequestNotifier(email.New(cfg), cfg.EmailFrom)
	classifications := compliance.NewClassificationService(be.store)

	if cfg.StoreDriver == config.StoreDriverMemory {
		if _, err := classifications.EnsureDefaultClassifications(ctx); err != nil {
			app.Close()
			return nil, fmt.Errorf("seed classifications: %w", err)
		}
	}

	jobOpts := jobs.Options{RetentionInterval: cfg.RetentionInterval, Runs: be.runs}
	if cfg.MetricsEnabled {
		jobOpts.Purges = app.Metrics
	}
	app.Jobs = jobs.New(retention, jobOpts)
	jobCtx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	app.Jobs.Start(jobCtx)

	complianceHandler := compliancehandler.NewHandler(compliancehandler.Services{
		Retention:       retention,
		Consent:         consent,
		Requests:        compliance.NewRequestManager(be.store, consent, notifier),
		Documents:       compliance.NewDocumentManager(be.store),
		Classifications: classifications,
		Assessments:     compliance.NewAssessmentService(be.store),
		Protector:       compliance.NewFieldProtector(classifications, cipher),
		Audit:           be.audit,
		Jobs:            app.Jobs,
	}, auth.StaticPermissions{}, be.idempotency)

	authHandler := authhandler.NewHandler(auth.NewService(be.users, cfg.JWTSecret, cfg.TokenTTL))

	app.Router = app.routes(authHandler, complianceHandler)
	return app, nil
}

func (a *App) openBackend(ctx context.Context) (backend, error) {
	cfg := a.Config
	if cfg.StoreDriver == config.StoreDriverMemory {
		users := auth.NewMemoryUsers()
		if cfg.SeedAdminEmail != "" && cfg.SeedAdminPassword != "" {
			if err := users.Add(uuid.NewString(), cfg.SeedAdminEmail, auth.RoleAdmin, cfg.SeedAdminPassword); err != nil {
				return backend{}, fmt.Errorf("seed admin: %w", err)
			}
		}
		return backend{
			store:       compliance.NewMemoryStore(),
			audit:       audit.NewMemory(),
			users:       users,
			idempotency: middleware.NewMemoryIdempotencyStore(),
		}, nil
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return backend{}, fmt.Errorf("db connect: %w", err)
	}
	a.pool = pool
	a.closers = append(a.closers, func() error { pool.Close(); return nil })

	if cfg.RunMigrations {
		applied, err := db.Migrate(ctx, pool, cfg.MigrationsDir)
		if err != nil {
			return backend{}, fmt.Errorf("migrations: %w", err)
		}
		if len(applied) > 0 {
			slog.Info("migrations applied", "versions", applied)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			return backend{}, fmt.Errorf("seed: %w", err)
		}
	}
	return backend{
		store:       compliance.NewStore(pool),
		audit:       audit.New(pool),
		users:       auth.NewStore(pool),
		runs:        jobs.PgRunStore{DB: pool},
		idempotency: middleware.NewIdempotencyStore(pool),
	}, nil
}

func (a *App) openArchive(ctx context.Context) (compliance.ArchiveSink, error) {
	cfg := a.Config
	switch cfg.ArchiveDriver {
	case config.ArchiveDriverS3:
		sink, err := archive.NewS3Sink(ctx, archive.S3Config{
			Bucket:       cfg.ArchiveBucket,
			Prefix:       cfg.ArchivePrefix,
			Region:       cfg.ArchiveRegion,
			Endpoint:     cfg.ArchiveEndpoint,
			UsePathStyle: cfg.ArchivePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		return sink, nil
	default:
		sink, err := archive.OpenSQLite(cfg.ArchiveSQLitePath, cfg.ArchivePrefix)
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		a.closers = append(a.closers, sink.Close)
		return sink, nil
	}
}

func (a *App) routes(authHandler *authhandler.Handler, complianceHandler *compliancehandler.Handler) http.Handler {
	cfg := a.Config
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	if cfg.MetricsEnabled {
		router.Use(middleware.Metrics(a.Metrics))
	}
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if a.pool != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := a.pool.Ping(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; version=0.0.4")
			if err := a.Metrics.WriteText(w); err != nil {
				slog.Warn("write metrics failed", "err", err)
			}
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.HandleLogin)
		r.With(middleware.RequireAuth).Get("/auth/me", authHandler.HandleMe)
		complianceHandler.RegisterRoutes(r)
	})
	return router
}

// Close stops background jobs and releases the store and archive.
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
		a.Jobs.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("close failed", "err", err)
		}
	}
	a.closers = nil
}

func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Environment == "production" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("compliance server listening", "addr", cfg.Addr, "store", cfg.StoreDriver, "archive", cfg.ArchiveDriver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	slog.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
