package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"tiktok-signin-go/internal/auth"
	"tiktok-signin-go/internal/backend"
	"tiktok-signin-go/internal/config"
	"tiktok-signin-go/internal/scheduler"
	"tiktok-signin-go/internal/session"
	"tiktok-signin-go/internal/storage"
	"tiktok-signin-go/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Application holds all the major components of the service.
type Application struct {
	Config        *config.Config
	Logger        *log.Logger
	Store         *storage.SQLiteStore
	SessionKV     *storage.InMemoryKV
	Locator       *backend.Locator
	Flow          *auth.Flow
	Session       *session.Store
	Scheduler     *scheduler.Scheduler
	WorkerPool    *worker.Pool
	HTTPServer    *http.Server
	MetricsServer *http.Server
}

// New creates and initializes a new Application instance.
func New(cfg *config.Config) (*Application, error) {
	logger := log.New(os.Stdout, "tiktok-signin: ", log.LstdFlags)

	// Setup: durable and session-scoped storage
	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	sessionKV := storage.NewInMemoryKV()

	// Setup: backend locator and auth flow
	locator := backend.NewLocator(store, cfg.Backend.DevURL, cfg.Backend.ProdURL,
		cfg.Backend.KnownHosts, cfg.IsProd(), http.DefaultClient, logger)
	builder := auth.NewURLBuilder(cfg.Provider.ClientKey, cfg.Provider.Scope,
		cfg.Provider.AuthorizeURL, cfg.Provider.RedirectURI, locator)
	client := auth.NewClient(locator, http.DefaultClient, logger)
	flow := auth.NewFlow(builder, client, sessionKV, store, logger)

	// Setup: session store
	sessionStore := session.NewStore(store, sessionKV, logger)

	// Setup: worker pool and post scheduler
	pool := worker.NewPool(cfg.Scheduler.NumWorkers, 32)
	postStore := scheduler.NewPostStore(store.DB())
	sched := scheduler.NewScheduler(postStore, pool, &scheduler.LogPublisher{Logger: logger},
		cfg.Scheduler.PollInterval.Duration, logger)

	// Setup: HTTP server for metrics
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metricsMux,
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		Store:         store,
		SessionKV:     sessionKV,
		Locator:       locator,
		Flow:          flow,
		Session:       sessionStore,
		Scheduler:     sched,
		WorkerPool:    pool,
		MetricsServer: metricsServer,
	}

	// Setup: main HTTP server
	httpMux := http.NewServeMux()
	httpMux.HandleFunc("/login", app.handleLogin)
	httpMux.HandleFunc("/auth/callback", app.handleAuthCallback)
	httpMux.HandleFunc("/logout", app.handleLogout)
	httpMux.HandleFunc("/logout/session", app.handleClearSession)
	httpMux.HandleFunc("/logout/hard", app.handleHardReset)
	httpMux.HandleFunc("/healthz", app.handleHealthz)
	httpMux.HandleFunc("/backend", app.handleBackendOverride)
	httpMux.Handle("/me", app.requireAuth(http.HandlerFunc(app.handleMe)))
	httpMux.Handle("/api/posts", app.requireAuth(http.HandlerFunc(app.handlePosts)))
	app.HTTPServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: httpMux,
	}

	return app, nil
}

// Start begins the application's services.
func (a *Application) Start(ctx context.Context) error {
	a.Logger.Println("Starting application services...")

	a.WorkerPool.Start()
	a.Scheduler.Start()

	go func() {
		a.Logger.Printf("Starting metrics server on %s", a.MetricsServer.Addr)
		if err := a.MetricsServer.ListenAndServe(); err != http.ErrServerClosed {
			a.Logger.Fatalf("Metrics server ListenAndServe: %v", err)
		}
	}()

	go func() {
		a.Logger.Printf("Starting HTTP server on %s", a.HTTPServer.Addr)
		if err := a.HTTPServer.ListenAndServe(); err != http.ErrServerClosed {
			a.Logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the application's services.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.Println("Stopping application services...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := a.HTTPServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.Printf("HTTP server shutdown error: %v", err)
	}
	if err := a.MetricsServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.Printf("Metrics server shutdown error: %v", err)
	}

	a.Scheduler.Stop()
	a.WorkerPool.Stop()

	if err := a.Store.Close(); err != nil {
		a.Logger.Printf("Error closing storage: %v", err)
	}

	a.Logger.Println("Application stopped gracefully.")
	return nil
}
