// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
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

	"github.com/olegiv/oblog/internal/auth"
	"github.com/olegiv/oblog/internal/blog"
	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/config"
	"github.com/olegiv/oblog/internal/feed"
	"github.com/olegiv/oblog/internal/gallery"
	"github.com/olegiv/oblog/internal/geoip"
	"github.com/olegiv/oblog/internal/handler"
	"github.com/olegiv/oblog/internal/logging"
	"github.com/olegiv/oblog/internal/metrics"
	"github.com/olegiv/oblog/internal/middleware"
	"github.com/olegiv/oblog/internal/render"
	"github.com/olegiv/oblog/internal/scheduler"
	"github.com/olegiv/oblog/internal/service"
	"github.com/olegiv/oblog/internal/store"
	"github.com/olegiv/oblog/internal/version"
	"github.com/olegiv/oblog/web"
)

// maintenanceTimeoutFactor bounds one maintenance run relative to its interval.
const maintenanceTimeoutFactor = 4

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "oblog - personal blog server\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_JWT_SECRET             Token signing key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_DB_DRIVER              sqlite|mysql (default: sqlite)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_DB_DSN                 Database file or MySQL DSN (default: ./data/oblog.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_SERVER_PORT            Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_SITE_FQDN              Public host name used in canonical URLs\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_MAINTENANCE_INTERVAL   Cache refresh and view flush interval (default: 30s)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_REDIS_URL              Shared HTML cache tier (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_GEOIP_DB_PATH          GeoLite2-Country database (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		_, _ = fmt.Printf("oblog %s\n", version.Get())
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if cfg.DBDriver == config.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.DBDSN), 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	slog.Info("initializing database", "driver", cfg.DBDriver)
	db, err := store.Open(cfg.DBDriver, cfg.DBDSN, store.DefaultDBConfig())
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db, cfg.DBDriver); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	queries := store.New(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.Seed(ctx, queries, cfg.AdminLogin, cfg.AdminPassword); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	// WARN and above also go to the events table from here on.
	eventLog := logging.NewEventLogHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}), queries)
	defer eventLog.Close()
	logger = slog.New(eventLog)
	slog.SetDefault(logger)
	queries = queries.WithLogger(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	shared, err := cache.NewShared(cache.SharedConfig{RedisURL: cfg.RedisURL, Prefix: cfg.CachePrefix})
	if err != nil {
		slog.Warn("shared cache unavailable, rendered pages stay local", "error", err, "category", "cache")
		shared = nil
	}
	if shared != nil {
		defer func() { _ = shared.Close() }()
		slog.Info("shared HTML cache enabled", "backend", "redis")
	}
	contentCache := cache.New(cache.Options{Shared: shared, Logger: logger})

	feeds := feed.New(feed.Config{
		InstagramURL: config.FeedURL(cfg.InstagramURL, cfg.InstagramToken),
		PinterestURL: config.FeedURL(cfg.PinterestURL, cfg.PinterestToken),
	}, logger)

	geo, err := geoip.New(cfg.GeoIPDBPath)
	if err != nil {
		slog.Warn("GeoIP database not loaded, view countries stay empty", "path", cfg.GeoIPDBPath, "error", err)
	}
	defer func() { _ = geo.Close() }()

	renderer, err := render.New(render.Config{TemplatesFS: web.TemplatesFS()})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	content := blog.New(blog.Options{
		Store:    queries,
		Cache:    contentCache,
		Renderer: renderer,
		Feeds:    feeds,
		Geo:      geo,
		Settings: blog.SettingsFromConfig(cfg),
		Logger:   logger,
	})
	if err := content.Startup(ctx); err != nil {
		return err
	}

	sched := scheduler.New(logger)
	if err := sched.Add(scheduler.Job{
		Name:        "maintenance",
		Description: "Refresh cached lists and feeds, flush buffered views",
		Schedule:    "@every " + cfg.MaintenanceInterval.String(),
		Timeout:     maintenanceTimeoutFactor * cfg.MaintenanceInterval,
		Run:         content.RunMaintenance,
	}); err != nil {
		return fmt.Errorf("scheduling maintenance: %w", err)
	}
	if geo.Enabled() {
		if err := sched.Add(scheduler.Job{
			Name:        "geoip-reload",
			Description: "Reload the GeoIP database when the file changed",
			Schedule:    "@daily",
			Run:         func(context.Context) error { return geo.Reload() },
		}); err != nil {
			return fmt.Errorf("scheduling GeoIP reload: %w", err)
		}
	}
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	if err := sched.Add(scheduler.Job{
		Name:        "login-protection-prune",
		Description: "Forget expired login failures and lockouts",
		Schedule:    "@hourly",
		Run: func(context.Context) error {
			if n := loginProtection.Prune(); n > 0 {
				slog.Debug("pruned login protection entries", "count", n)
			}
			return nil
		},
	}); err != nil {
		return fmt.Errorf("scheduling login protection prune: %w", err)
	}
	sched.Start(ctx)
	defer sched.Stop()

	g, err := gallery.New(cfg.GalleryDir, queries, logger)
	if err != nil {
		return fmt.Errorf("initializing gallery: %w", err)
	}
	galleryHandler, err := handler.NewGalleryHandler(g, web.StaticFS(), logger)
	if err != nil {
		return fmt.Errorf("initializing gallery handler: %w", err)
	}

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("initializing token manager: %w", err)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	if cfg.MetricsEnabled {
		r.Use(metrics.Middleware)
	}

	handler.Routes{
		Frontend: handler.NewFrontendHandler(content, queries, cfg.BotBlockSolution, logger),
		Auth:     handler.NewAuthHandler(queries, tokens, loginProtection, !cfg.IsDevelopment(), logger),
		Admin: handler.NewAdminHandler(handler.AdminDeps{
			Blog:      content,
			Queries:   queries,
			Cache:     contentCache,
			Gallery:   g,
			Dashboard: service.NewDashboard(queries, logger),
			Scheduler: sched,
			Logger:    logger,
		}),
		Gallery: galleryHandler,
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"database": db,
			"cache":    handler.PingFunc(contentCache.Ping),
		}),
		Tokens:          tokens,
		LoginProtection: loginProtection,
		CommentLimiter:  middleware.NewRateLimiter(0.2, 3),
		CSRF: middleware.CSRF(middleware.DefaultCSRFConfig(
			[]byte(cfg.JWTSecret), cfg.Site.FQDN, cfg.IsDevelopment())),
		Static:         web.StaticFS(),
		MetricsEnabled: cfg.MetricsEnabled,
	}.Mount(r)

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", version.Get().Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Views buffered since the last cycle would otherwise be lost.
	sched.Stop()
	if n, err := content.FlushViews(shutdownCtx); err != nil {
		slog.Error("flushing views on shutdown failed", "error", err)
	} else if n > 0 {
		slog.Info("flushed buffered views", "count", n)
	}

	slog.Info("server stopped")
	return nil
}
