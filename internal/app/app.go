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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"stocktake/internal/config"
	"stocktake/internal/dataprocessing"
	apierrors "stocktake/internal/errors"
	"stocktake/internal/files"
	"stocktake/internal/infrastructure"
	customMiddleware "stocktake/internal/middleware"
	transport "stocktake/internal/transport/http"
	"stocktake/pkg/contracts"
)

// AppName is the service name logged at startup
const AppName = "stocktake-web"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Processor     *dataprocessing.Processor
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders

	errorHandler *apierrors.ErrorHandler
	httpMetrics  *infrastructure.HTTPMetrics
}

// Options tune how the application is assembled
type Options struct {
	// ArchiveUploads stores every uploaded workbook under the input directory
	ArchiveUploads bool
}

// NewApplication loads configuration, initializes logging and telemetry and
// wires the application
func NewApplication(opts Options) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	return New(cfg, paths, providers, logger, opts)
}

// New wires an application from already initialized parts
func New(cfg *config.Config, paths *config.Paths, providers *infrastructure.OTelProviders,
	logger *slog.Logger, opts Options) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if providers == nil {
		providers = &infrastructure.OTelProviders{Logger: logger}
	}

	pipelineMetrics, err := infrastructure.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	httpMetrics, err := infrastructure.NewHTTPMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create http metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		errorHandler:  apierrors.NewErrorHandler(logger, false),
		httpMetrics:   httpMetrics,
		Processor: dataprocessing.NewProcessor(cfg.Pipeline,
			dataprocessing.WithLogger(logger),
			dataprocessing.WithMetrics(pipelineMetrics),
			dataprocessing.WithTracer(providers.Tracer),
		),
	}

	var archive *files.Manager
	if opts.ArchiveUploads && paths != nil {
		archive = files.NewManager(paths, logger)
	}

	a.setupRouter(archive)
	a.createServer()
	return a, nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter(archive *files.Manager) {
	r := chi.NewRouter()

	// RequestID → RealIP → Tracing → Logger → Recoverer
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.Tracing(a.OTelProviders.Tracer))
	r.Use(customMiddleware.StructuredLogger(a.Logger, a.httpMetrics))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.SecurityHeaders)

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	health := transport.NewHealthHandler(a.Logger)
	stocktake := transport.NewStocktakeHandler(a.Processor, transport.HandlerConfig{
		MaxUploadBytes: a.Config.Server.MaxUploadBytes,
		RunTimeout:     a.Config.Server.RunTimeout,
		BOMPrefix:      a.Config.Export.BOMPrefix,
	}, archive, a.errorHandler, a.Logger)

	r.Get("/", transport.ServeUploadPage("/api/stocktake", a.Logger))

	r.Route("/api", func(r chi.Router) {
		r.With(render.SetContentType(render.ContentTypeJSON)).Get("/health", health.HealthCheck)
		r.With(render.SetContentType(render.ContentTypeJSON)).Get("/version", health.Version)

		r.Group(func(r chi.Router) {
			if a.Config.RateLimit.Enabled {
				r.Use(customMiddleware.NewRateLimiter(
					a.Config.RateLimit.RPS,
					a.Config.RateLimit.Burst,
					a.Logger,
				).Handler)
			}
			r.Mount("/stocktake", stocktake.Routes())
		})
	})

	r.Handle("/metrics", transport.NewMetricsHandler(a.OTelProviders.PrometheusHTTP))

	a.Router = r
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Serve accepts connections on l until the server is shut down
func (a *Application) Serve(ctx context.Context, l net.Listener) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("address", l.Addr().String()))

	if err := a.Server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Run serves on the configured port until ctx is cancelled or the process
// receives SIGINT or SIGTERM, then shuts down gracefully
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.Serve(ctx, l)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		a.Logger.Info("Received shutdown signal")
	}

	// a fresh context so shutdown is not cut short by the cancelled one
	if err := a.Stop(context.Background()); err != nil {
		return err
	}
	return <-serveErr
}
