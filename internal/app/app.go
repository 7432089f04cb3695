package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"etlinspector/internal/cache"
	"etlinspector/internal/config"
	apierrors "etlinspector/internal/errors"
	"etlinspector/internal/events"
	"etlinspector/internal/exporter"
	"etlinspector/internal/files"
	"etlinspector/internal/infrastructure"
	"etlinspector/internal/ingest"
	customMiddleware "etlinspector/internal/middleware"
	"etlinspector/internal/operations"
	"etlinspector/internal/services"
	"etlinspector/internal/store"
	handlers "etlinspector/internal/transport/http"
	"etlinspector/internal/validation"
	ws "etlinspector/internal/websocket"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Services      *ServiceContainer
	WebSocketHub  *ws.Hub
	Broadcaster   *operations.StatusBroadcaster
	JobQueue      *operations.JobQueue
	Janitor       *files.Janitor

	errHandler *apierrors.ErrorHandler
	listener   net.Listener
	queueStop  context.CancelFunc
}

// ServiceContainer holds all application services and the backends they
// were built on.
type ServiceContainer struct {
	Analysis  *services.AnalysisService
	Health    *services.HealthService
	Exporter  *exporter.Exporter
	Validator *validation.FileValidator
	Store     services.ReportStore
	Cache     cache.ReportCache
	Events    events.Publisher
	repo      *store.ReportRepo
}

// NewApplication loads the configuration and wires the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return New(cfg)
}

// New wires an application from cfg. Nothing listens or runs until Start.
func New(cfg *config.Config) (*Application, error) {
	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	logCfg := cfg.Logging
	if paths.LogFile != "" {
		logCfg.FilePath = paths.LogFile
	}
	logger, err := infrastructure.InitializeLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		errHandler:    apierrors.NewErrorHandler(logger, cfg.Logging.Development, handlers.ErrorMappings()...),
	}

	if err := app.initializeServices(context.Background()); err != nil {
		app.closeBackends(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()
	return app, nil
}

// initializeServices connects the optional backends and builds the
// services on top of them.
func (a *Application) initializeServices(ctx context.Context) error {
	a.Services = &ServiceContainer{
		Validator: validation.NewFileValidator(a.Logger, a.Config.Server.MaxUploadBytes),
	}

	if a.Config.Store.Enabled {
		repo, err := store.Open(a.Paths.DatabaseFile, a.Logger)
		if err != nil {
			return err
		}
		a.Services.repo = repo
		a.Services.Store = repo
	} else {
		a.Logger.Warn("Report store disabled, history is kept in memory")
		a.Services.Store = services.NewMemoryReportStore(0)
	}

	reportCache, err := cache.New(ctx, a.Config.Cache, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect report cache: %w", err)
	}
	a.Services.Cache = reportCache

	publisher, err := events.New(a.Config.Events, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect event bus: %w", err)
	}
	a.Services.Events = publisher

	ingestOpts := ingest.Options{MaxRows: a.Config.Detection.MaxRows}
	if a.Config.Sheets.CredentialsFile != "" {
		reader, err := ingest.NewSheetsReader(ctx, a.Config.Sheets.CredentialsFile)
		if err != nil {
			return err
		}
		ingestOpts.Sheets = reader
	}

	var exportOpts []exporter.Option
	if a.Config.Export.EnablePDF {
		exportOpts = append(exportOpts, exporter.WithPDFRenderer(
			exporter.NewChromePDF(a.Config.Export.ChromePath, a.Config.Export.PDFTimeout)))
	}
	a.Services.Exporter = exporter.New(exportOpts...)

	a.Services.Analysis = services.NewAnalysisService(services.AnalysisDeps{
		Validator: a.Services.Validator,
		Store:     a.Services.Store,
		Cache:     a.Services.Cache,
		Publisher: a.Services.Events,
		Metrics:   a.Metrics,
		Tracer:    a.OTelProviders.Tracer,
		Logger:    a.Logger,
		Options:   a.Config.Detection.Options(),
		Ingest:    ingestOpts,
	})

	checks := map[string]services.Pinger{}
	if a.Services.repo != nil {
		checks["store"] = a.Services.repo
	}
	if a.Config.Cache.Enabled() {
		checks["cache"] = a.Services.Cache
	}
	if a.Config.Events.Enabled() {
		checks["events"] = a.Services.Events
	}
	a.Services.Health = services.NewHealthService(config.AppVersion, checks, a.Logger)

	hubMetrics, err := ws.NewOTelMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create websocket metrics: %w", err)
	}
	a.WebSocketHub = ws.NewHub(a.Logger, hubMetrics)
	a.Broadcaster = operations.NewStatusBroadcaster(a.WebSocketHub, a.Logger)
	a.JobQueue = operations.NewJobQueue(
		a.Config.Jobs,
		operations.NewMemoryJobStore(),
		a.Services.Analysis,
		a.Broadcaster,
		a.Logger,
		operations.WithMetrics(a.Metrics),
		operations.WithTracer(a.OTelProviders.Tracer),
	)
	a.Janitor = files.NewJanitor(a.Config.Paths.FileRetention, a.Logger, a.Paths.UploadsDir, a.Paths.ExportsDir)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Nothing that wraps the ResponseWriter may run before /ws: the upgrade
	// needs the http.Hijacker.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(apierrors.RecoveryMiddleware(a.errHandler))

	r.Method(http.MethodGet, "/ws", ws.NewHandler(a.WebSocketHub, a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger))

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.corsConfig()))
		}

		handlers.NewHealthHandler(a.Services.Health, a.Logger).RegisterRoutes(r)
		handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.JobQueue, a.WebSocketHub).RegisterRoutes(r)

		r.Route("/api/v1", func(r chi.Router) {
			if a.Config.Security.RateLimit.Enabled {
				r.Use(customMiddleware.NewRateLimiter(
					a.Config.Security.RateLimit.RPS,
					a.Config.Security.RateLimit.Burst,
					a.Logger,
				).Handler)
			}
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
			r.Use(render.SetContentType(render.ContentTypeJSON))

			uploads := handlers.NewUploadParser(a.Services.Validator, a.Paths.UploadsDir, a.Logger)
			analysis := handlers.NewAnalysisHandler(a.Services.Analysis, uploads, a.errHandler, a.Logger)
			r.With(customMiddleware.RequireContentType(handlers.MultipartForm)).
				Post("/analyze", a.errHandler.Wrap(analysis.Analyze))
			r.Get("/checks", a.errHandler.Wrap(analysis.Checks))
			r.Mount("/jobs", handlers.NewJobsHandler(a.JobQueue, uploads, a.errHandler, a.Logger).Routes())
			r.Mount("/reports", handlers.NewReportsHandler(a.Services.Analysis, a.Services.Exporter, a.errHandler, a.Logger).Routes())
		})
	})

	r.NotFound(a.errHandler.NotFound)
	r.MethodNotAllowed(a.errHandler.MethodNotAllowed)
	a.Router = r
}

func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins:   a.Config.Security.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Location", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// StartBackground starts the hub, the job workers and the file janitor
// without listening. Tests drive the router directly after calling it.
func (a *Application) StartBackground(ctx context.Context) {
	a.WebSocketHub.Start()
	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.queueStop = cancel
	a.JobQueue.Start(bgCtx)
	go a.Janitor.Run(bgCtx, a.Config.Paths.SweepInterval)
}

// Start binds the listen address, starts the background workers and serves
// in a goroutine. A serve failure calls cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	a.listener = ln
	a.StartBackground(ctx)

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", ln.Addr().String()),
		slog.Int("workers", a.Config.Jobs.Workers),
		slog.Bool("store", a.Config.Store.Enabled),
		slog.Bool("cache", a.Config.Cache.Enabled()),
		slog.Bool("events", a.Config.Events.Enabled()))
	return nil
}

// Addr is the bound address once Start has run.
func (a *Application) Addr() string {
	if a.listener == nil {
		return a.Server.Addr
	}
	return a.listener.Addr().String()
}

// Stop gracefully stops the application: the server stops accepting
// requests, queued jobs are cancelled, then the backends are closed.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if a.listener != nil {
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	if err := a.JobQueue.Stop(a.Config.Server.ShutdownTimeout); err != nil {
		a.Logger.ErrorContext(ctx, "Failed to stop job queue gracefully", slog.String("error", err.Error()))
	}
	if a.queueStop != nil {
		a.queueStop()
	}
	a.Broadcaster.Stop()
	a.WebSocketHub.Stop()

	a.closeBackends(shutdownCtx)

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *Application) closeBackends(ctx context.Context) {
	if s := a.Services; s != nil {
		if s.Cache != nil {
			if err := s.Cache.Close(); err != nil {
				a.Logger.WarnContext(ctx, "Error closing report cache", slog.String("error", err.Error()))
			}
		}
		if s.Events != nil {
			s.Events.Close()
		}
		if s.repo != nil {
			if err := s.repo.Close(); err != nil {
				a.Logger.WarnContext(ctx, "Error closing report store", slog.String("error", err.Error()))
			}
		}
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := a.Start(runCtx, cancel); err != nil {
		return err
	}

	<-runCtx.Done()
	a.Logger.Info("Received shutdown signal")

	stopCtx, done := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout+5*time.Second)
	defer done()
	return a.Stop(stopCtx)
}
