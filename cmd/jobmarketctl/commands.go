package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/jobmarket/internal/cache"
	"github.com/kiranshivaraju/jobmarket/internal/config"
	"github.com/kiranshivaraju/jobmarket/internal/notify"
	"github.com/kiranshivaraju/jobmarket/internal/service"
	"github.com/kiranshivaraju/jobmarket/internal/store"
	"github.com/spf13/cobra"
)

var (
	migrationsPath string
	expireWindow   time.Duration
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := store.RunMigrations(cfg.Database.URL, migrationsPath); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		version, dirty, err := store.MigrationVersion(cfg.Database.URL, migrationsPath)
		if err != nil {
			return fmt.Errorf("read migration version: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d (dirty=%t)\n", version, dirty)
		return nil
	},
}

var expireStaleCmd = &cobra.Command{
	Use:   "expire-stale",
	Short: "Reject pending applications older than the expiry window",
	Long: `Reject every pending application created before now minus the window,
acting as the system actor. Applications that moved on in the meantime are
skipped. Running it again is harmless, so it is safe to call from cron.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		window := cfg.Expiry.Window
		if cmd.Flags().Changed("window") {
			window = expireWindow
		}

		ctx := cmd.Context()
		pool, err := store.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer redisCache.Close()

		dispatcher, err := notify.NewDispatcher(cfg.Notify, redisCache.Client())
		if err != nil {
			return fmt.Errorf("create notifier: %w", err)
		}

		apps := service.NewApplicationService(
			store.NewPostgresStore(pool, store.WithQueryTimeout(cfg.Database.QueryTimeout)),
			cache.NewMemo(redisCache, cfg.Cache.TTL, cfg.Cache.Timeout),
			dispatcher,
			service.WithExpiryBatchSize(cfg.Expiry.BatchSize),
		)

		res, err := apps.ExpireStale(ctx, window)
		if err != nil {
			return fmt.Errorf("expire stale applications: %w", err)
		}
		if res.Failed > 0 {
			slog.Warn("some applications could not be expired", "failed", res.Failed)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that Postgres and Redis are reachable",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		pool, err := store.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()

		redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsPath, "path", "migrations", "Directory holding the migration files")
	expireStaleCmd.Flags().DurationVar(&expireWindow, "window", 0, "Age after which a pending application expires (default: EXPIRY_WINDOW)")
}
