// Package main is the entrypoint for the jobmarket API server.
package main

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

	"github.com/kiranshivaraju/jobmarket/internal/api"
	"github.com/kiranshivaraju/jobmarket/internal/api/handler"
	mw "github.com/kiranshivaraju/jobmarket/internal/api/middleware"
	"github.com/kiranshivaraju/jobmarket/internal/api/response"
	"github.com/kiranshivaraju/jobmarket/internal/cache"
	"github.com/kiranshivaraju/jobmarket/internal/config"
	"github.com/kiranshivaraju/jobmarket/internal/notify"
	"github.com/kiranshivaraju/jobmarket/internal/scheduler"
	"github.com/kiranshivaraju/jobmarket/internal/service"
	"github.com/kiranshivaraju/jobmarket/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "notify_driver", cfg.Notify.Driver, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create store, memo and notifier
	pgStore := store.NewPostgresStore(pool, store.WithQueryTimeout(cfg.Database.QueryTimeout))
	memo := cache.NewMemo(redisCache, cfg.Cache.TTL, cfg.Cache.Timeout)

	delivery, err := notify.NewDispatcher(cfg.Notify, redisCache.Client())
	if err != nil {
		return fmt.Errorf("create notifier: %w", err)
	}
	dispatcher := notify.NewAsyncDispatcher(delivery, notify.AsyncOptions{
		Workers:    cfg.Notify.Workers,
		QueueSize:  cfg.Notify.QueueSize,
		RatePerSec: cfg.Notify.RatePerSec,
	})
	slog.Info("notifier started", "driver", cfg.Notify.Driver, "workers", cfg.Notify.Workers)

	// 6. Create services
	jobs := service.NewJobService(pgStore, memo)
	apps := service.NewApplicationService(pgStore, memo, dispatcher,
		service.WithExpiryBatchSize(cfg.Expiry.BatchSize))

	// 7. Start the expiry sweeper
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go scheduler.Every(sweepCtx, cfg.Expiry.SweepInterval, "expire-stale-applications", func(ctx context.Context) error {
		_, err := apps.ExpireStale(ctx, cfg.Expiry.Window)
		return err
	})

	// 8. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, cfg.RateLimit.RequestsPerMinute),

		HealthHandler: healthHandler(pgStore, redisCache),

		CreateJob:     handler.NewCreateJobHandler(jobs),
		ListJobs:      handler.NewListJobsHandler(jobs),
		GetJob:        handler.NewGetJobHandler(jobs),
		TransitionJob: handler.NewTransitionJobHandler(jobs),

		SubmitApplication:     handler.NewSubmitHandler(apps),
		ListJobApplications:   handler.NewListJobApplicationsHandler(apps),
		ListApplications:      handler.NewListApplicationsHandler(apps),
		GetApplication:        handler.NewGetApplicationHandler(apps),
		TransitionApplication: handler.NewTransitionApplicationHandler(apps),

		ExpireStale: handler.NewExpireStaleHandler(apps, cfg.Expiry.Window),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	stopSweep()

	if err := dispatcher.Close(shutdownCtx); err != nil {
		slog.Warn("notifier did not drain before shutdown", "error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler checks database and cache connectivity.
func healthHandler(db, c pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := db.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
