// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/eventdesk/internal/cache"
	"github.com/olegiv/eventdesk/internal/config"
	"github.com/olegiv/eventdesk/internal/handler"
	"github.com/olegiv/eventdesk/internal/i18n"
	"github.com/olegiv/eventdesk/internal/logging"
	"github.com/olegiv/eventdesk/internal/middleware"
	"github.com/olegiv/eventdesk/internal/module"
	"github.com/olegiv/eventdesk/internal/routes"
	"github.com/olegiv/eventdesk/internal/scheduler"
	"github.com/olegiv/eventdesk/internal/session"
	"github.com/olegiv/eventdesk/internal/settings"
	"github.com/olegiv/eventdesk/internal/store"
	"github.com/olegiv/eventdesk/internal/version"
	"github.com/olegiv/eventdesk/modules/layout"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "eventdesk - event management server\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTDESK_SESSION_SECRET    Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTDESK_DB_PATH           SQLite database path (default: ./data/eventdesk.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTDESK_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTDESK_DEFAULT_TIMEZONE  Timezone of new events (default: UTC)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTDESK_REDIS_URL         Redis URL for the shared settings cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTDESK_ADMIN_EMAIL       Email of the seeded admin account\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTDESK_ADMIN_PASSWORD    Password of the seeded admin account\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTDESK_LOGO_SWEEP_SCHEDULE  Cron schedule of the orphaned logo sweep, or \"off\" (default: @hourly)\n")
	}
	flag.Parse()

	versionInfo := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
	if *showVersion {
		_, _ = fmt.Printf("eventdesk %s\n", versionInfo)
		os.Exit(0)
	}

	if err := run(versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(versionInfo version.Info) error {
	// Load .env if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := i18n.Init(logger); err != nil {
		return fmt.Errorf("initializing i18n: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.UploadsDir, 0o755); err != nil {
		return fmt.Errorf("creating uploads directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}()

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// From here on WARN and ERROR records also land in the activity log.
	logger = slog.New(logging.NewActivityLogHandler(
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}), db))
	slog.SetDefault(logger)

	queries := store.New(db)
	ctx := context.Background()
	if cfg.DoSeed {
		err := store.Seed(ctx, queries, store.SeedOptions{
			AdminEmail:    cfg.AdminEmail,
			AdminPassword: cfg.AdminPassword,
			SampleEvent:   cfg.SeedSample,
		}, logger)
		if err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	settingsCache, isRedis, err := cache.New(cache.Config{
		RedisURL:         cfg.RedisURL,
		Prefix:           cfg.CachePrefix,
		DefaultTTL:       cfg.CacheDuration(),
		MaxSize:          cfg.CacheMaxSize,
		CleanupInterval:  time.Minute,
		FallbackToMemory: true,
	}, logger)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() { _ = settingsCache.Close() }()
	slog.Info("settings cache initialized", "redis", isRedis)

	sessionManager := session.New(db, cfg.IsDevelopment(), 5*time.Minute)

	hookRegistry := module.NewHookRegistry(logger)
	moduleRegistry := module.NewRegistry(logger)
	routeTable := routes.NewTable()
	routeTable.Add(routes.EventManage, "/admin/events/{event_id}")
	jobScheduler := scheduler.New(logger, 10*time.Minute)

	moduleCtx := &module.Context{
		DB:        db,
		Store:     queries,
		Logger:    logger,
		Config:    cfg,
		Hooks:     hookRegistry,
		Settings:  settings.NewRegistry(),
		Cache:     settingsCache,
		Routes:    routeTable,
		Scheduler: jobScheduler,
	}

	if err := moduleRegistry.Register(layout.New()); err != nil {
		return fmt.Errorf("registering layout module: %w", err)
	}
	if err := moduleRegistry.InitAll(moduleCtx); err != nil {
		return fmt.Errorf("initializing modules: %w", err)
	}
	defer func() {
		if err := moduleRegistry.ShutdownAll(); err != nil {
			slog.Error("error shutting down modules", "error", err)
		}
	}()
	hookRegistry.SetIsModuleActive(moduleRegistry.IsActive)
	slog.Info("module system initialized", "modules", moduleRegistry.Count())

	jobScheduler.Start()
	defer jobScheduler.Stop()

	loginProtection := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit: cfg.LoginRateLimit,
		IPBurst:     cfg.LoginBurst,
	})
	csrfMiddleware := middleware.CSRF([]byte(cfg.SessionSecret),
		middleware.TrustedOrigins(cfg.TrustedOrigins, cfg.IsDevelopment(), cfg.ServerAddr())...)

	authHandler := handler.NewAuthHandler(db, sessionManager, loginProtection, logger)
	eventsHandler := handler.NewEventsHandler(db, hookRegistry, logger)
	systemHandler := handler.NewSystemHandler(db, moduleRegistry, hookRegistry, jobScheduler, logger)
	healthHandler := handler.NewHealthHandler(db, sessionManager, settingsCache, cfg.UploadsDir, versionInfo.String())

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(sessionManager.LoadAndSave)
	r.Use(csrfMiddleware)

	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	r.With(loginProtection.Middleware()).Post("/login", authHandler.Login)
	r.Post("/logout", authHandler.Logout)

	// Public module routes (event logos)
	moduleRegistry.RouteAll(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(sessionManager))
		r.Use(middleware.LoadUser(sessionManager, moduleCtx.Store))

		r.Get("/admin/me", authHandler.Me)
		r.Get("/admin/events", eventsHandler.List)
		r.Post("/admin/events", eventsHandler.Create)
		r.Get("/admin/events/{event_id}", eventsHandler.Get)
		r.Delete("/admin/events/{event_id}", eventsHandler.Delete)

		r.Route("/admin/system", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/modules", systemHandler.Modules)
			r.Post("/modules/{name}", systemHandler.SetModuleActive)
			r.Get("/jobs", systemHandler.Jobs)
			r.Post("/jobs/{name}/trigger", systemHandler.TriggerJob)
			r.Get("/activity", systemHandler.Activity)
		})

		moduleRegistry.AdminRouteAll(r)
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
