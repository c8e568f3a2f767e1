package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vadim/poolsmm/internal/config"
	httpcontroller "github.com/vadim/poolsmm/internal/controller/http"
	"github.com/vadim/poolsmm/internal/httpx/response"
	"github.com/vadim/poolsmm/internal/storage"
)

// App is the HTTP API process: the router, the job scheduler and metrics
type App struct {
	cfg        config.Config
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger
	registry   *prometheus.Registry

	core   *Core
	images *storage.ImageStore
}

// NewApp creates and initializes the application
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	core, err := NewCore(ctx, cfg, logger, registry)
	if err != nil {
		return nil, fmt.Errorf("initializing core: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))

	app := &App{
		cfg:      cfg,
		router:   r,
		logger:   logger,
		registry: registry,
		core:     core,
		images: storage.NewImageStore(storage.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			PublicURL:       cfg.S3.PublicURL,
		}),
	}

	if err := app.registerRoutes(); err != nil {
		core.Close()
		return nil, err
	}

	app.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

// Router returns the HTTP handler of the API
func (a *App) Router() http.Handler {
	return a.router
}

// registerRoutes registers all HTTP routes
func (a *App) registerRoutes() error {
	a.router.Get("/healthz", a.healthHandler)
	a.router.Get("/readyz", a.readyHandler)
	a.router.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	swaggerHandler, err := httpcontroller.NewSwaggerHandler("Pool SMM API", OpenAPISpec)
	if err != nil {
		return err
	}
	swaggerHandler.RegisterRoutes(a.router)

	p := a.core.Policy
	a.router.Route("/api/v1", func(r chi.Router) {
		r.Use(httpcontroller.Authenticate(httpcontroller.Tokens{
			Admin:  a.cfg.Auth.AdminToken,
			Editor: a.cfg.Auth.EditorToken,
			Viewer: a.cfg.Auth.ViewerToken,
		}))

		httpcontroller.NewPostHandler(p).RegisterRoutes(r)
		httpcontroller.NewCatalogHandler(p).RegisterRoutes(r)
		httpcontroller.NewDashboardHandler(p, a.core.Jobs).RegisterRoutes(r)
		httpcontroller.NewGenerateHandler(a.core.Generator).RegisterRoutes(r)
		httpcontroller.NewMediaHandler(a.images, a.logger.With("component", "media")).RegisterRoutes(r)
	})

	if !a.cfg.Auth.Enabled() {
		a.logger.Warn("no API tokens configured, every request acts as admin")
	}
	return nil
}

// healthHandler handles liveness requests
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"status": "ok"})
}

// readyHandler reports whether the stores are reachable
func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := a.core.Ping(ctx); err != nil {
		a.logger.Warn("readiness check failed", "error", err)
		response.ServiceUnavailable(w, err.Error())
		return
	}
	response.OK(w, map[string]any{
		"status":    "ready",
		"platforms": a.core.Registry.Names(),
		"scheduler": a.core.Jobs.Running(),
	})
}

// Run starts the application and blocks until shutdown signal
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Scheduler.Enabled {
		if err := a.core.StartJobs(ctx, a.cfg.Scheduler, true); err != nil {
			return err
		}
	} else {
		a.logger.Warn("scheduler is disabled, scheduled posts will not be published")
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server", "addr", a.cfg.Server.Address())
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("context cancelled")
	}

	return a.Shutdown(context.Background())
}

// Shutdown stops the HTTP server, then the scheduler, then closes connections
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}
	if err := a.core.StopJobs(shutdownCtx); err != nil {
		a.logger.Error("stopping scheduler", "error", err)
	}
	if err := a.core.Close(); err != nil {
		a.logger.Error("closing connections", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}
