package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/drlau/megumin.love/internal/board"
	"github.com/drlau/megumin.love/internal/catalog"
	"github.com/drlau/megumin.love/internal/config"
	"github.com/drlau/megumin.love/internal/core/storage/postgres"
	"github.com/drlau/megumin.love/internal/fanout"
	"github.com/drlau/megumin.love/internal/metrics"
	"github.com/drlau/megumin.love/internal/migrations"
	"github.com/drlau/megumin.love/internal/scheduler"
	"github.com/drlau/megumin.love/internal/server"
	"github.com/drlau/megumin.love/internal/stats"
)

func main() {
	configPath := flag.String("config", "megumin.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config", "config", cfg)

	// 2. Run Database Migrations
	// The adapter prepares its statements at construction, so the schema
	// has to be in place before it opens. Migrations get their own
	// short-lived connection.
	migrateDB, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		slog.Error("Failed to open database for migrations", "error", err)
		os.Exit(1)
	}
	if err := migrations.RunMigrations(migrateDB, cfg.Database.AutoMigrate); err != nil {
		migrateDB.Close()
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	if err := migrateDB.Close(); err != nil {
		slog.Error("Failed to close migration connection", "error", err)
		os.Exit(1)
	}

	// 2.1. Initialize Storage (PostgreSQL)
	dbAdapter, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	// 3. Observability + fan-out
	provider := metrics.NewProvider(cfg.Metrics.Enabled)
	hub := fanout.NewHub(provider)

	// 4. Rebuild the board from persisted state
	b := board.New(hub)
	if err := b.Load(context.Background(), dbAdapter); err != nil {
		slog.Error("Failed to load board state", "error", err)
		os.Exit(1)
	}

	// 5. Catalog (payload library + mutations + optional seed)
	library, err := catalog.NewLibrary(cfg.Library.Path)
	if err != nil {
		slog.Error("Failed to open sound library", "path", cfg.Library.Path, "error", err)
		os.Exit(1)
	}

	catalogSvc := catalog.NewService(
		b,
		dbAdapter,
		library,
		hub,
		cfg.Rollup.DebounceFor(),
		int64(cfg.Library.MaxUploadMB)<<20,
	)
	if err := catalogSvc.Seed(context.Background(), cfg.Library.SeedFile); err != nil {
		slog.Error("Failed to seed catalog", "file", cfg.Library.SeedFile, "error", err)
		os.Exit(1)
	}

	// 6. Statistics query engine
	statsSvc := stats.NewService(b)

	// 7. Scheduler (rollup persistence + midnight rollover)
	sched := scheduler.New(cfg.Rollup.SaveEvery(), b, dbAdapter, provider)

	// 8. HTTP server and routes
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), dbAdapter.DB(), cfg.Server.Mode, provider, cfg.Metrics.Enabled)
	b.RegisterRoutes(srv.Engine)
	statsSvc.RegisterRoutes(srv.Engine)
	catalogSvc.RegisterRoutes(srv.Engine)
	hub.RegisterRoutes(srv.Engine, b)

	// 9. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := sched.Start(ctx); err != nil {
			slog.Error("Scheduler stopped with error", "error", err)
		}
	}()

	// Signal handler → triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	// The scheduler's final persist must finish before the database
	// closes.
	<-schedDone
	catalogSvc.Stop()
	hub.Close()

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
