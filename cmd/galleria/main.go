// Copyright (c) 2025-2026 Galleria Authors
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

	"github.com/galleria-dev/galleria/internal/auth"
	"github.com/galleria-dev/galleria/internal/cache"
	"github.com/galleria-dev/galleria/internal/config"
	"github.com/galleria-dev/galleria/internal/demo"
	"github.com/galleria-dev/galleria/internal/geoip"
	"github.com/galleria-dev/galleria/internal/handler"
	"github.com/galleria-dev/galleria/internal/handler/api"
	"github.com/galleria-dev/galleria/internal/logging"
	"github.com/galleria-dev/galleria/internal/middleware"
	"github.com/galleria-dev/galleria/internal/model"
	"github.com/galleria-dev/galleria/internal/scheduler"
	"github.com/galleria-dev/galleria/internal/service"
	"github.com/galleria-dev/galleria/internal/session"
	"github.com/galleria-dev/galleria/internal/store"
	"github.com/galleria-dev/galleria/internal/version"
)

// Overridden at release time through -ldflags "-X main.buildVersion=...".
var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

// buildInfo assembles the identity reported by -version and /healthz.
func buildInfo() *version.Info {
	return &version.Info{Version: buildVersion, GitCommit: buildCommit, BuildTime: buildDate}
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// logLevelFor resolves a configured level name, defaulting to info.
func logLevelFor(name string) slog.Level {
	if lvl, ok := logLevels[name]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// crudRoutes bundles the JSON handlers for one admin module.
type crudRoutes struct {
	List    http.HandlerFunc
	Get     http.HandlerFunc
	Create  http.HandlerFunc
	Update  http.HandlerFunc
	Delete  http.HandlerFunc
	Publish http.HandlerFunc // only content with a publish lifecycle
}

// registerCRUD registers the standard admin routes for a module under
// base, each behind its matching permission.
func registerCRUD(r chi.Router, base, module string, activity *service.ActivityService, h crudRoutes) {
	guard := func(action string) func(http.Handler) http.Handler {
		return middleware.RequirePermissionWithLog(module, action, activity)
	}
	r.With(guard(model.ActionRead)).Get(base, h.List)
	r.With(guard(model.ActionRead)).Get(base+"/{id}", h.Get)
	r.With(guard(model.ActionCreate)).Post(base, h.Create)
	r.With(guard(model.ActionUpdate)).Put(base+"/{id}", h.Update)
	r.With(guard(model.ActionDelete)).Delete(base+"/{id}", h.Delete)
	if h.Publish != nil {
		r.With(guard(model.ActionPublish)).Post(base+"/{id}/publish", h.Publish)
	}
}

// envHelp lists the variables config.Load reads, appended to -help output.
const envHelp = `
Environment Variables:
  GALLERIA_SESSION_SECRET  Session encryption key (required, min 32 bytes)
  GALLERIA_DB_PATH         SQLite database path (default ./data/galleria.db)
  GALLERIA_SERVER_PORT     HTTP port (default 8080)
  GALLERIA_ENV             development or production (default development)
  GALLERIA_REDIS_URL       Redis URL for shared caching (optional)
  GALLERIA_GEOIP_DB_PATH   GeoLite2-Country.mmdb for audit geo tags (optional)
`

func usage() {
	w := flag.CommandLine.Output()
	_, _ = fmt.Fprintf(w, "galleria, the mall operator admin backend\n\n")
	_, _ = fmt.Fprintf(w, "Usage:\n  %s [flags]\n\nFlags:\n", os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprint(w, envHelp)
}

func main() {
	var printVersion, printHelp bool
	flag.BoolVar(&printVersion, "version", false, "print version and exit")
	flag.BoolVar(&printVersion, "v", false, "print version and exit (shorthand)")
	flag.BoolVar(&printHelp, "help", false, "print this help and exit")
	flag.BoolVar(&printHelp, "h", false, "print this help and exit (shorthand)")
	flag.Usage = usage
	flag.Parse()

	switch {
	case printHelp:
		flag.Usage()
	case printVersion:
		fmt.Println(buildInfo())
	default:
		if err := run(); err != nil {
			slog.Error("fatal", "error", err)
			os.Exit(1)
		}
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := logLevelFor(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Demo installs throw the database away daily and reseed below
	if middleware.IsDemoMode() {
		if err := demo.ResetIfNeeded(cfg.DBPath, dataDir); err != nil {
			return fmt.Errorf("reset demo data: %w", err)
		}
	}

	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("closing database", "error", err)
		}
	}()

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	slog.Info("database ready", "path", cfg.DBPath)

	// Reinstall the logger so WARN and ERROR entries also land in the
	// activity trail now that the database is up.
	console := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger = slog.New(logging.NewActivityLogHandler(console, db))
	slog.SetDefault(logger)
	slog.Info("activity log integration enabled", "min_level", "warn")

	ctx := context.Background()
	if err := store.Seed(ctx, db); err != nil {
		return fmt.Errorf("seed baseline records: %w", err)
	}
	if err := store.SeedDemo(ctx, db); err != nil {
		return fmt.Errorf("seed demo content: %w", err)
	}

	// Session manager backed by the sessions table
	sessions := session.New(db, cfg.IsDevelopment())
	slog.Info("session store ready", "cookie_secure", !cfg.IsDevelopment())

	// Cache backend: Redis when configured, in-process memory otherwise
	backend, err := cache.New(cache.Config{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      time.Duration(cfg.CacheTTL) * time.Second,
		MaxSize:         cfg.CacheMaxSize,
		CleanupInterval: time.Minute,
	})
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	cacheManager := cache.NewManager(backend)
	defer cacheManager.Close()
	if cfg.UseRedisCache() {
		slog.Info("cache initialized", "backend", "redis", "url", cache.SanitizeRedisURL(cfg.RedisURL))
	} else {
		slog.Info("cache initialized", "backend", "memory")
	}

	// Typed views over the shared backend. Permission snapshots live
	// until sign-out or an explicit refresh; the dashboard and feed
	// payloads drift with the clock, so they stay short.
	permCache := cache.NewTypedCache[auth.PermissionSet](backend, 15*time.Minute)
	dashboardCache := cache.NewTypedCache[service.DashboardSummary](backend, 30*time.Second)
	feedCache := cache.NewTypedCache[[]service.FeedItem](backend, time.Minute)

	// GeoIP enrichment for the activity trail (optional)
	geo := geoip.NewLookup()
	if cfg.GeoIPEnabled() {
		if err := geo.Init(cfg.GeoIPDBPath); err != nil {
			slog.Warn("failed to load GeoIP database", "path", cfg.GeoIPDBPath, "error", err)
		} else {
			slog.Info("GeoIP lookups enabled", "path", cfg.GeoIPDBPath)
			defer func() {
				_ = geo.Close()
			}()
		}
	}

	activityService := service.NewActivityService(db, geo)
	feedService := service.NewFeedService(db)
	dashboardService := service.NewDashboardService(db, cfg.DashboardWindowDays)

	// Background jobs: promotion sweep, activity rollup and purge
	retention := time.Duration(cfg.ActivityRetentionDays) * 24 * time.Hour
	sched := scheduler.New(db, activityService, cacheManager, retention, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	// Login protection: per-IP throttle plus account lockout
	lpCfg := middleware.DefaultLoginProtectionConfig()
	loginProtection := middleware.NewLoginProtection(lpCfg)
	slog.Info("login protection ready",
		"ip_limit_rps", lpCfg.IPRateLimit,
		"lockout_after", lpCfg.MaxFailedAttempts,
		"lockout_for", lpCfg.LockoutDuration,
	)

	// Per-IP rate limiter for the unauthenticated auth surface
	loginLimiter := middleware.NewGlobalRateLimiter(10.0, 20)

	csrfMiddleware := middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment()))
	slog.Info("CSRF protection initialized", "secure", !cfg.IsDevelopment())

	// Handlers
	authHandler := handler.NewAuthHandler(db, sessions, loginProtection, activityService, cacheManager, permCache)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, dashboardCache)
	eventsHandler := handler.NewEventsHandler(db, activityService, cacheManager)
	tenantsHandler := handler.NewTenantsHandler(db, activityService, cacheManager)
	postsHandler := handler.NewPostsHandler(db, activityService, cacheManager)
	promotionsHandler := handler.NewPromotionsHandler(db, activityService, cacheManager)
	vipTiersHandler := handler.NewVIPTiersHandler(db, activityService, cacheManager)
	whatsOnHandler := handler.NewWhatsOnHandler(feedService, activityService, cacheManager)
	activityHandler := handler.NewActivityHandler(db, activityService)
	usersHandler := handler.NewUsersHandler(db, activityService, cacheManager)
	rolesHandler := handler.NewRolesHandler(db, activityService, cacheManager)
	apiKeysHandler := handler.NewAPIKeysHandler(db, activityService)
	importExportHandler := handler.NewImportExportHandler(db, activityService, cacheManager, logger)
	healthHandler := handler.NewHealthHandler(db, sessions, cacheManager, buildInfo())
	deliveryHandler := api.NewHandler(db, feedService, feedCache)

	// Export reads every content module at once; import writes them.
	contentModules := []string{
		model.ModuleEvents, model.ModuleTenants, model.ModulePosts,
		model.ModulePromotions, model.ModuleVIPTiers, model.ModuleWhatsOn,
	}
	var exportPerms, importPerms []auth.Perm
	for _, m := range contentModules {
		exportPerms = append(exportPerms, auth.Perm{Module: m, Action: model.ActionRead})
		importPerms = append(importPerms,
			auth.Perm{Module: m, Action: model.ActionCreate},
			auth.Perm{Module: m, Action: model.ActionUpdate},
		)
	}

	// Router
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.StripTrailingSlash)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(sessions.LoadAndSave)

	// Health checks (public)
	r.Get("/healthz", healthHandler.Health)
	r.Get("/healthz/live", healthHandler.Liveness)
	r.Get("/healthz/ready", healthHandler.Readiness)

	// Session auth routes
	r.Route("/auth", func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.With(loginLimiter.Middleware(), loginProtection.Middleware()).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessions))
			r.Use(middleware.LoadUser(sessions, db, permCache))
			r.Get("/me", authHandler.Me)
			r.Post("/refresh", authHandler.Refresh)
		})
	})

	// Admin API (session auth, CSRF, per-route permission gate)
	r.Route("/admin/api/v1", func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Use(middleware.RequireAuth(sessions))
		r.Use(middleware.LoadUser(sessions, db, permCache))
		r.Use(middleware.NoStore)

		guard := func(module, action string) func(http.Handler) http.Handler {
			return middleware.RequirePermissionWithLog(module, action, activityService)
		}

		r.With(guard(model.ModuleDashboard, model.ActionRead)).Get("/dashboard", dashboardHandler.Summary)

		registerCRUD(r, "/events", model.ModuleEvents, activityService, crudRoutes{
			List: eventsHandler.List, Get: eventsHandler.Get, Create: eventsHandler.Create,
			Update: eventsHandler.Update, Delete: eventsHandler.Delete, Publish: eventsHandler.Publish,
		})
		registerCRUD(r, "/tenants", model.ModuleTenants, activityService, crudRoutes{
			List: tenantsHandler.List, Get: tenantsHandler.Get, Create: tenantsHandler.Create,
			Update: tenantsHandler.Update, Delete: tenantsHandler.Delete, Publish: tenantsHandler.Publish,
		})
		registerCRUD(r, "/posts", model.ModulePosts, activityService, crudRoutes{
			List: postsHandler.List, Get: postsHandler.Get, Create: postsHandler.Create,
			Update: postsHandler.Update, Delete: postsHandler.Delete, Publish: postsHandler.Publish,
		})
		registerCRUD(r, "/promotions", model.ModulePromotions, activityService, crudRoutes{
			List: promotionsHandler.List, Get: promotionsHandler.Get, Create: promotionsHandler.Create,
			Update: promotionsHandler.Update, Delete: promotionsHandler.Delete, Publish: promotionsHandler.Publish,
		})
		r.With(guard(model.ModulePromotions, model.ActionPublish)).Post("/promotions/{id}/expire", promotionsHandler.Expire)
		registerCRUD(r, "/vip-tiers", model.ModuleVIPTiers, activityService, crudRoutes{
			List: vipTiersHandler.List, Get: vipTiersHandler.Get, Create: vipTiersHandler.Create,
			Update: vipTiersHandler.Update, Delete: vipTiersHandler.Delete,
		})

		// What's On feed curation
		r.With(guard(model.ModuleWhatsOn, model.ActionRead)).Get("/whats-on", whatsOnHandler.List)
		r.With(guard(model.ModuleWhatsOn, model.ActionCreate)).Post("/whats-on", whatsOnHandler.Create)
		r.With(guard(model.ModuleWhatsOn, model.ActionUpdate)).Put("/whats-on/reorder", whatsOnHandler.Reorder)
		r.With(guard(model.ModuleWhatsOn, model.ActionUpdate)).Put("/whats-on/{id}/pin", whatsOnHandler.Pin)
		r.With(guard(model.ModuleWhatsOn, model.ActionDelete)).Delete("/whats-on/{id}", whatsOnHandler.Delete)

		// Activity trail
		r.With(guard(model.ModuleActivity, model.ActionRead)).Get("/activity", activityHandler.List)
		r.With(guard(model.ModuleActivity, model.ActionRead)).Get("/activity/stats", activityHandler.Stats)
		r.With(guard(model.ModuleActivity, model.ActionDelete)).Delete("/activity", activityHandler.Purge)

		// User management (blocked on demo installs)
		r.Group(func(r chi.Router) {
			r.Use(middleware.BlockInDemoMode(middleware.RestrictionManageUsers))
			registerCRUD(r, "/users", model.ModuleUsers, activityService, crudRoutes{
				List: usersHandler.List, Get: usersHandler.Get, Create: usersHandler.Create,
				Update: usersHandler.Update, Delete: usersHandler.Delete,
			})
			r.With(guard(model.ModuleUsers, model.ActionUpdate)).Put("/users/{id}/roles", usersHandler.AssignRoles)
		})

		// Role management (blocked on demo installs)
		r.Group(func(r chi.Router) {
			r.Use(middleware.BlockInDemoMode(middleware.RestrictionManageRoles))
			registerCRUD(r, "/roles", model.ModuleRoles, activityService, crudRoutes{
				List: rolesHandler.List, Get: rolesHandler.Get, Create: rolesHandler.Create,
				Update: rolesHandler.Update, Delete: rolesHandler.Delete,
			})
			r.With(guard(model.ModuleRoles, model.ActionUpdate)).Put("/roles/{id}/permissions", rolesHandler.SetPermissions)
		})
		r.With(guard(model.ModuleRoles, model.ActionRead)).Get("/permissions", rolesHandler.ListPermissions)

		// API key management (blocked on demo installs)
		r.Group(func(r chi.Router) {
			r.Use(middleware.BlockInDemoMode(middleware.RestrictionAPIKeys))
			registerCRUD(r, "/api-keys", model.ModuleAPIKeys, activityService, crudRoutes{
				List: apiKeysHandler.List, Get: apiKeysHandler.Get, Create: apiKeysHandler.Create,
				Update: apiKeysHandler.Update, Delete: apiKeysHandler.Delete,
			})
		})

		// Content transfer
		r.With(middleware.RequireAllPermissions(activityService, exportPerms...)).Get("/export", importExportHandler.Export)
		r.With(
			middleware.BlockInDemoMode(middleware.RestrictionImportData),
			middleware.RequireAllPermissions(activityService, importPerms...),
		).Post("/import", importExportHandler.Import)
	})
	slog.Info("admin API mounted at /admin/api/v1")

	// Delivery API (API key auth, read-only)
	r.Route("/api/v1", func(r chi.Router) {
		deliveryLimiter := middleware.NewGlobalRateLimiter(100, 200)
		r.Use(deliveryLimiter.Middleware())

		r.Get("/status", deliveryHandler.Status)

		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(db))
			r.Use(middleware.APIRateLimit(10, 20))

			r.Get("/auth", deliveryHandler.AuthInfo)

			serve := func(module string, register func(r chi.Router)) {
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireKeyPermission(module, model.ActionRead))
					r.Use(middleware.CacheControl(60))
					register(r)
				})
			}

			serve(model.ModuleWhatsOn, func(r chi.Router) {
				r.Get("/whats-on", deliveryHandler.WhatsOn)
			})
			serve(model.ModuleEvents, func(r chi.Router) {
				r.Get("/events", deliveryHandler.ListEvents)
				r.Get("/events/{id}", deliveryHandler.GetEvent)
				r.Get("/events/slug/{slug}", deliveryHandler.GetEventBySlug)
			})
			serve(model.ModulePromotions, func(r chi.Router) {
				r.Get("/promotions", deliveryHandler.ListPromotions)
				r.Get("/promotions/{id}", deliveryHandler.GetPromotion)
				r.Get("/promotions/slug/{slug}", deliveryHandler.GetPromotionBySlug)
			})
			serve(model.ModulePosts, func(r chi.Router) {
				r.Get("/posts", deliveryHandler.ListPosts)
				r.Get("/posts/{id}", deliveryHandler.GetPost)
				r.Get("/posts/slug/{slug}", deliveryHandler.GetPostBySlug)
			})
			serve(model.ModuleTenants, func(r chi.Router) {
				r.Get("/tenants", deliveryHandler.ListTenants)
				r.Get("/tenants/{id}", deliveryHandler.GetTenant)
				r.Get("/tenants/slug/{slug}", deliveryHandler.GetTenantBySlug)
			})
			serve(model.ModuleVIPTiers, func(r chi.Router) {
				r.Get("/vip-tiers", deliveryHandler.ListVIPTiers)
				r.Get("/vip-tiers/slug/{slug}", deliveryHandler.GetVIPTierBySlug)
			})
		})
	})
	slog.Info("delivery API mounted at /api/v1")

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
		slog.Info("http server listening", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	slog.Info("shutdown complete")
	return nil
}
