// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
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

	"github.com/promontolio/promoblog/internal/config"
	"github.com/promontolio/promoblog/internal/handler"
	"github.com/promontolio/promoblog/internal/imaging"
	"github.com/promontolio/promoblog/internal/middleware"
	"github.com/promontolio/promoblog/internal/policy"
	"github.com/promontolio/promoblog/internal/render"
	"github.com/promontolio/promoblog/internal/session"
	"github.com/promontolio/promoblog/internal/settings"
	"github.com/promontolio/promoblog/internal/store"
	"github.com/promontolio/promoblog/internal/version"
	"github.com/promontolio/promoblog/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// crudHandlers defines the standard CRUD handler methods.
type crudHandlers struct {
	List     http.HandlerFunc
	NewForm  http.HandlerFunc
	Create   http.HandlerFunc
	EditForm http.HandlerFunc
	Update   http.HandlerFunc
	Delete   http.HandlerFunc
}

// registerCRUD registers standard CRUD routes for a resource.
// Routes: GET /, GET /new, POST /, GET /{id}, PUT /{id}, POST /{id}, DELETE /{id}
func registerCRUD(r chi.Router, base, baseID string, h crudHandlers) {
	r.Get(base, h.List)
	r.Get(base+handler.RouteSuffixNew, h.NewForm)
	r.Post(base, h.Create)
	r.Get(baseID, h.EditForm)
	r.Put(baseID, h.Update)
	r.Post(baseID, h.Update) // HTML forms can't send PUT
	r.Delete(baseID, h.Delete)
}

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Promontolio Blog - Estate Blog and Newsletter Server\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PROMO_SESSION_SECRET   Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PROMO_DB_PATH          SQLite database path (default: ./data/promoblog.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PROMO_SERVER_HOST      Server host (default: localhost)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PROMO_SERVER_PORT      Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PROMO_ENV              Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PROMO_LOG_LEVEL        Log level: debug|info|warn|error (default: info)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PROMO_UPLOADS_DIR      Media uploads directory (default: ./uploads)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PROMO_SETTINGS_PATH    Site settings file (default: ./data/settings.json)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PROMO_MAX_UPLOAD_MB    Hard upload size ceiling in MB (default: 10)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PROMO_ADMIN_EMAIL      Bootstrap super user email (default: admin@example.com)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PROMO_ADMIN_PASSWORD   Bootstrap super user password (generated when empty)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PROMO_DO_SEED          Seed demo articles on startup (default: false)\n")
	}

	flag.Parse()

	// Handle -h/-help flag
	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	// Handle -v/-version flag
	if *showVersion {
		info := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
		_, _ = fmt.Printf("promoblog %s\n", info)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Create version info from build-time injected values
	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	slog.Info("starting promoblog", "version", versionInfo.Version, "commit", versionInfo.GitCommit)

	// Ensure data and uploads directories exist
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.UploadsDir, 0755); err != nil {
		return fmt.Errorf("creating uploads directory: %w", err)
	}

	// Initialize database
	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	// Run migrations
	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Create the initial super user on an empty install
	ctx := context.Background()
	if err := store.BootstrapSuperUser(ctx, db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("bootstrapping super user: %w", err)
	}

	// Seed demo content when enabled
	if cfg.DoSeed {
		if err := store.SeedDemo(ctx, db); err != nil {
			return fmt.Errorf("seeding demo content: %w", err)
		}
	}

	// Initialize session manager
	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	// Load site settings file
	settingsStore, err := settings.NewStore(cfg.SettingsPath)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	slog.Info("settings loaded", "path", cfg.SettingsPath)

	// Image processor for media uploads
	processor := imaging.NewProcessor(cfg.UploadsDir)

	// Initialize template renderer
	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}

	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		Settings:       settingsStore,
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}
	slog.Info("template renderer initialized")

	// Create router
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))                    // Gzip compression with level 5
	r.Use(chimw.GetHead)                        // Handle HEAD requests for uptime monitoring
	r.Use(middleware.Timeout(30 * time.Second)) // 30 second request timeout
	r.Use(middleware.StripTrailingSlash)        // Redirect /path/ to /path (301)

	// Security headers middleware (CSP, HSTS, X-Frame-Options, etc.)
	securityConfig := middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())
	r.Use(middleware.SecurityHeaders(securityConfig))

	// Request path middleware for logging context
	r.Use(middleware.RequestPath)

	r.Use(sessionManager.LoadAndSave)

	// CSRF protection middleware for form-handling route groups
	csrfConfig := middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment())
	csrfMiddleware := middleware.CSRF(csrfConfig)

	// Initialize login protection from the configured settings
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	slog.Info("login protection initialized")

	// Public rate limiter for auth and subscribe routes
	publicRateLimiter := middleware.NewGlobalRateLimiter(10.0, 20)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(db, renderer, sessionManager, loginProtection)
	dashboardHandler := handler.NewDashboardHandler(db, renderer, sessionManager)
	articlesHandler := handler.NewArticlesHandler(db, renderer, sessionManager, settingsStore)
	mediaHandler := handler.NewMediaHandler(db, renderer, sessionManager, processor, settingsStore)
	usersHandler := handler.NewUsersHandler(db, renderer, sessionManager)
	subscribersHandler := handler.NewSubscribersHandler(db, renderer, sessionManager)
	settingsHandler := handler.NewSettingsHandler(renderer, sessionManager, settingsStore)
	profileHandler := handler.NewProfileHandler(db, renderer, sessionManager)
	frontendHandler := handler.NewFrontendHandler(db, renderer, sessionManager, settingsStore)
	healthHandler := handler.NewHealthHandler(db)

	// Health check route (public)
	r.Get("/healthz", healthHandler.Health)

	// Public frontend routes
	r.Group(func(r chi.Router) {
		r.Get("/sitemap.xml", frontendHandler.Sitemap)
		r.Get("/robots.txt", frontendHandler.Robots)
		r.Get(handler.RouteRoot, frontendHandler.Home)
		r.Get("/about", frontendHandler.About)
		r.Get("/contact", frontendHandler.Contact)
		r.Get("/product", frontendHandler.Product)
		r.Get(handler.RouteBlog, frontendHandler.Blog)
		r.Get(handler.RouteBlogPage, frontendHandler.Blog)
		r.Get(handler.RouteBlogSlug, frontendHandler.Article)
		r.Get("/unsubscribe/{token}", frontendHandler.Unsubscribe)
	})

	// Newsletter subscription (public POST, with CSRF and rate limiting)
	r.Group(func(r chi.Router) {
		r.Use(publicRateLimiter.Middleware())
		r.Use(csrfMiddleware)
		r.Post("/subscribe", frontendHandler.Subscribe)
	})

	// Auth routes (public, with CSRF and rate limiting)
	// Defense-in-depth: publicRateLimiter + loginProtection (IP rate limit and account lockout on POST)
	r.Group(func(r chi.Router) {
		r.Use(publicRateLimiter.Middleware())
		r.Use(csrfMiddleware)
		r.Get(handler.RouteLogin, authHandler.LoginForm)
		r.With(loginProtection.Middleware()).Post(handler.RouteLogin, authHandler.Login)
		r.Get(handler.RouteLogout, authHandler.Logout)
		r.Post(handler.RouteLogout, authHandler.Logout)
	})

	// Admin routes (authenticated, with CSRF)
	r.Route("/admin", func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Use(middleware.Auth(sessionManager))
		r.Use(middleware.LoadUser(sessionManager, db))

		// Routes open to every active staff role
		r.Group(func(r chi.Router) {
			r.Use(middleware.Require(policy.ActionDashboardView))

			r.Get(handler.RouteRoot, dashboardHandler.Dashboard)
			r.Get(handler.RouteDashboard, dashboardHandler.Dashboard)
			r.Get(handler.RouteDashboard+"/stats", dashboardHandler.StatsJSON)

			r.Get(handler.RouteProfile, profileHandler.Form)
			r.Post(handler.RouteProfile, profileHandler.Update)
			r.Post(handler.RouteProfile+"/password", profileHandler.ChangePassword)
		})

		// Article management (authors and up; per-article ownership is
		// enforced inside the handlers)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Require(policy.ActionArticleCreate))

			registerCRUD(r, handler.RouteArticles, handler.RouteArticlesID, crudHandlers{
				List: articlesHandler.List, NewForm: articlesHandler.NewForm, Create: articlesHandler.Create,
				EditForm: articlesHandler.EditForm, Update: articlesHandler.Update, Delete: articlesHandler.Delete,
			})
		})

		// Media library (authors and up; edit/delete checks happen in the
		// handlers)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Require(policy.ActionMediaUpload))

			r.Get(handler.RouteMedia, mediaHandler.Library)
			r.Get(handler.RouteMedia+"/picker", mediaHandler.ListJSON)
			r.Post(handler.RouteMedia+"/bulk", mediaHandler.Bulk)
			r.Get(handler.RouteMedia+handler.RouteSuffixUpload, mediaHandler.UploadForm)
			r.Post(handler.RouteMedia+handler.RouteSuffixUpload, mediaHandler.Upload)
			r.Get(handler.RouteMediaID, mediaHandler.EditForm)
			r.Put(handler.RouteMediaID, mediaHandler.Update)
			r.Post(handler.RouteMediaID, mediaHandler.Update) // HTML forms can't send PUT
			r.Delete(handler.RouteMediaID, mediaHandler.Delete)
		})

		// User management (admin only)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Require(policy.ActionUserList))

			registerCRUD(r, handler.RouteUsers, handler.RouteUsersID, crudHandlers{
				List: usersHandler.List, NewForm: usersHandler.NewForm, Create: usersHandler.Create,
				EditForm: usersHandler.EditForm, Update: usersHandler.Update, Delete: usersHandler.Delete,
			})
			r.Post(handler.RouteUsersID+"/password", usersHandler.ResetPassword)
			r.Post(handler.RouteUsersID+"/status", usersHandler.ToggleStatus)
		})

		// Newsletter subscribers (admin only)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Require(policy.ActionSubscriberManage))

			r.Get(handler.RouteSubscribers, subscribersHandler.List)
			r.Get(handler.RouteSubscribers+"/export", subscribersHandler.ExportCSV)
			r.Post(handler.RouteSubscribersID+"/toggle", subscribersHandler.ToggleActive)
			r.Delete(handler.RouteSubscribersID, subscribersHandler.Delete)
		})

		// Site settings (admin only)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Require(policy.ActionSettingsManage))

			r.Get(handler.RouteSettings, settingsHandler.Form)
			r.Put(handler.RouteSettings, settingsHandler.Save)
			r.Post(handler.RouteSettings, settingsHandler.Save) // HTML forms can't send PUT
		})
	})

	// Static file serving
	staticFS, err := fs.Sub(web.Static, "static/dist")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}
	// Static assets: cache for 1 year (31536000 seconds)
	staticHandler := middleware.StaticCache(31536000)(http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	r.Handle("/static/*", staticHandler)

	// Serve uploaded media files from the uploads directory
	// Uploads: cache for 1 week (604800 seconds)
	uploadsHandler := middleware.StaticCache(604800)(http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir))))
	r.Handle("/uploads/*", uploadsHandler)

	// 404 Not Found handler - rendered with the frontend layout
	r.NotFound(frontendHandler.NotFound)

	// Hard request-body ceiling from the environment; the per-request
	// limits inside the upload handler come from site settings.
	rootHandler := http.MaxBytesHandler(r, cfg.MaxUploadBytes()*10+1<<20)

	// Create server with appropriate timeouts
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           rootHandler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // Longer to allow for large uploads and slow connections
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB max header size
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
