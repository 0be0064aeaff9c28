package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"launchpulse/internal/analytics"
	"launchpulse/internal/config"
	"launchpulse/internal/dataset"
	apperrors "launchpulse/internal/errors"
	"launchpulse/internal/infrastructure"
	"launchpulse/internal/keepalive"
	customMiddleware "launchpulse/internal/middleware"
	"launchpulse/internal/services"
	handlers "launchpulse/internal/transport/http"
	ws "launchpulse/internal/websocket"
)

const (
	Version = "1.2.0"
	AppName = "LaunchPulse KPI Dashboard"
)

// Application is the dependency container for the server process.
type Application struct {
	Config *config.Config
	Router *chi.Mux
	Server *http.Server
	Logger *slog.Logger

	Store         *dataset.Store
	Hub           *ws.Hub
	KPIService    *services.KPIService
	HealthService *services.HealthService
	KeepAlive     *keepalive.Pinger
}

// NewApplication loads configuration and wires every component.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", Version))

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	app := &Application{
		Config: cfg,
		Logger: logger,
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the store, hub and service layer.
func (a *Application) initializeServices() {
	a.Store = dataset.NewStore()

	a.Hub = ws.NewHub(a.Logger)
	a.Hub.Start()

	engine := analytics.NewEngine(a.Logger)
	notifier := ws.NewRefreshBroadcaster(a.Hub)

	a.KPIService = services.NewKPIService(a.Store, engine, notifier, a.Config.DatasetFile(), a.Logger)
	a.HealthService = services.NewHealthService(Version, a.Store, a.Logger)
	a.KeepAlive = keepalive.New(a.Config.KeepAlive, nil, a.Logger)
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware first; these don't wrap the ResponseWriter and
	// are safe for the websocket upgrade.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.HandleFunc("/ws", ws.ServeWS(a.Hub, a.Logger))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.Metrics)
		r.Use(customMiddleware.Compress(5))

		if a.Config.Security.EnableCORS {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   a.Config.Security.AllowedOrigins,
				AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
				ExposedHeaders:   []string{"X-Request-ID"},
				AllowCredentials: true,
				MaxAge:           300,
			}))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes mounts the API handlers
func (a *Application) setupAPIRoutes(r chi.Router) {
	errorHandler := apperrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	kpiHandler := handlers.NewKPIHandler(a.KPIService, a.Logger, errorHandler)
	datasetHandler := handlers.NewDatasetHandler(a.KPIService, a.Config.Upload.MaxBytes, a.Logger, errorHandler)
	exportHandler := handlers.NewExportHandler(kpiHandler, a.KPIService, a.Logger, errorHandler)
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/kpi", kpiHandler.Routes())
		r.Mount("/export", exportHandler.Routes())
		r.Mount("/health", healthHandler.Routes())
		r.Mount("/", datasetHandler.Routes())
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run starts the server and blocks until an interrupt or a fatal error.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Restore the last uploaded workbook before accepting requests.
	if err := a.KPIService.LoadFromDisk(ctx); err != nil {
		a.Logger.Error("failed to restore persisted dataset",
			slog.String("error", err.Error()))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("server listening",
			slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.KeepAlive.Run(gctx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	err := g.Wait()
	a.Logger.Info("application stopped")
	return err
}

// shutdown drains the server and stops background components.
func (a *Application) shutdown() error {
	a.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.Hub.Shutdown()
	infrastructure.CloseLogFile()
	return nil
}
