package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DukeRupert/shopdesk/internal"
	"github.com/DukeRupert/shopdesk/internal/address"
	"github.com/DukeRupert/shopdesk/internal/api"
	"github.com/DukeRupert/shopdesk/internal/catalog"
	"github.com/DukeRupert/shopdesk/internal/confirm"
	"github.com/DukeRupert/shopdesk/internal/csrf"
	"github.com/DukeRupert/shopdesk/internal/draft"
	"github.com/DukeRupert/shopdesk/internal/handler"
	"github.com/DukeRupert/shopdesk/internal/metrics"
	"github.com/DukeRupert/shopdesk/internal/middleware"
	"github.com/DukeRupert/shopdesk/internal/provinces"
	"github.com/DukeRupert/shopdesk/internal/service"
	"github.com/DukeRupert/shopdesk/internal/storage"
	"github.com/DukeRupert/shopdesk/internal/upload"
	"github.com/DukeRupert/shopdesk/internal/worker"
	"github.com/DukeRupert/shopdesk/web"
)

const shutdownTimeout = 30 * time.Second

func serve(ctx context.Context) error {
	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	isSecure := cfg.IsSecure()

	// ==========================================================================
	// Draft store
	// ==========================================================================

	var (
		db     *sql.DB
		drafts draft.Store
		pinger handler.Pinger
	)
	if cfg.DatabaseUrl != "" {
		db, err = openDB(ctx, cfg.DatabaseUrl)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := internal.RunMigrations(db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		drafts = draft.NewPostgresStore(db, cfg.DraftTTL)
		pinger = db
		logger.Info("Database ready")
	} else {
		drafts = draft.NewMemoryStore(cfg.DraftTTL)
		logger.Warn("DATABASE_URL not set, drafts are kept in memory")
	}

	// ==========================================================================
	// Collaborators
	// ==========================================================================

	store, err := newStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	previews := upload.NewObjectURLs("/previews/")
	uploads := service.NewUploadService(drafts, store, service.NewImagingProcessor(), previews, cfg.UploadMaxBytes, logger)

	optionsCache := provinces.NewDiskCache(cfg.OptionsCacheDir, cfg.OptionsCacheTTL)
	units := provinces.NewClient(cfg.ProvincesAPIURL, logger, provinces.WithCache(optionsCache))
	resolvers := address.NewRegistry(units, address.Policy{ClearStaleOnSave: cfg.AddressClearStale}, logger)

	client := api.NewClient(cfg.APIURL, logger, api.WithHTTPClient(&http.Client{Timeout: cfg.APITimeout}))
	products := service.NewProductService(client.Products(), client, drafts, uploads, logger)
	customers := service.NewCustomerService(client.Customers(), drafts, uploads, resolvers, logger)
	orders := service.NewOrderService(client.Orders(), logger)

	dialogs := confirm.NewRegistry()
	statuses := catalog.Default()

	// Initialize template renderer
	renderer, err := handler.NewRenderer(handler.RendererConfig{
		FS:           web.Templates(),
		TemplatesDir: "web/templates",
		Catalog:      statuses,
		Logger:       logger,
		IsDev:        cfg.Env == "development",
	})
	if err != nil {
		return fmt.Errorf("renderer initialization failed: %w", err)
	}
	logger.Info("Templates loaded", "count", len(renderer.ListTemplates()))

	loginProxy, err := handler.NewLoginProxy(client.LoginURL(), logger, isSecure, nil)
	if err != nil {
		return fmt.Errorf("login proxy initialization failed: %w", err)
	}

	// ==========================================================================
	// Middleware
	// ==========================================================================

	authMw := middleware.NewAuthMiddleware(logger)
	requireUser := middleware.Stack(authMw.WithToken, authMw.RequireToken)

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow, logger)
	defer loginLimiter.Close()
	limitLogin := middleware.NewRateLimitMiddleware(loginLimiter, logger).Limit

	// ==========================================================================
	// Dashboard routes (CSRF protected)
	// ==========================================================================

	app := http.NewServeMux()

	handler.NewAuthHandler(client, renderer, logger, isSecure).RegisterRoutes(app, limitLogin)

	confirms := handler.NewConfirmHandler(dialogs, logger)
	confirms.RegisterRoutes(app, requireUser)
	handler.NewDraftHandler(uploads, customers, logger).RegisterRoutes(app, requireUser)
	handler.NewProductHandler(products, uploads, confirms, renderer, logger, isSecure).RegisterRoutes(app, requireUser)
	handler.NewCustomerHandler(customers, uploads, confirms, renderer, logger, isSecure).RegisterRoutes(app, requireUser)
	handler.NewOrderHandler(orders, statuses, confirms, renderer, logger, isSecure).RegisterRoutes(app, requireUser)

	app.Handle("GET /{$}", http.RedirectHandler(handler.HomePath, http.StatusSeeOther))

	// ==========================================================================
	// Top-level routes
	// ==========================================================================

	mux := http.NewServeMux()

	// The login proxy answers every method itself; API callers hold no
	// CSRF cookie yet.
	mux.Handle("/api/auth/login", limitLogin(loginProxy))

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(web.Static())))
	mux.Handle("GET /health", handler.Health(pinger, logger))
	mux.Handle("GET /metrics", middleware.BasicAuth("metrics", cfg.MetricsUsername, cfg.MetricsPassword)(promhttp.Handler()))
	mux.Handle("/", csrf.Protect(logger)(app))

	if cfg.MetricsUsername == "" && cfg.MetricsPassword == "" {
		logger.Warn("/metrics is not protected; set METRICS_USERNAME and METRICS_PASSWORD")
	}

	logging := middleware.NewRequestLoggingMiddleware(logger)
	security := middleware.NewSecurityHeadersMiddleware(isSecure, cfg.ImageOrigins...)
	root := middleware.Stack(metrics.Middleware, logging.Handler, security.Handler)(mux)

	// ==========================================================================
	// Janitor
	// ==========================================================================

	if cfg.JanitorEnabled {
		wcfg := worker.DefaultConfig()
		wcfg.Interval = cfg.JanitorInterval
		wcfg.Retention = cfg.DraftTTL

		janitor, err := worker.New(wcfg, logger)
		if err != nil {
			return fmt.Errorf("janitor initialization failed: %w", err)
		}
		janitor.Register(worker.DraftJob{Drafts: drafts, Files: uploads, Logger: logger})
		janitor.Register(worker.PurgeJob{Name: worker.JobTypePreviewURLs, Target: previews, Retention: wcfg.Retention})
		janitor.Register(worker.PurgeJob{Name: worker.JobTypeDialogs, Target: dialogs, Retention: wcfg.Retention})
		janitor.Register(worker.PurgeJob{Name: worker.JobTypeResolvers, Target: resolvers, Retention: wcfg.Retention})
		janitor.Register(worker.CacheJob{Cache: optionsCache})

		janitor.Start(ctx)
		defer janitor.Stop()
	}

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env, "api", client.BaseURL())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newStorage returns the backend configured by STORAGE_PROVIDER.
func newStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageProvider {
	case "r2":
		return storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
	default:
		return storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
	}
}
