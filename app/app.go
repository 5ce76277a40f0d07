package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/streamgate/catalog"
	"github.com/kbukum/streamgate/component"
	"github.com/kbukum/streamgate/database"
	"github.com/kbukum/streamgate/handler"
	"github.com/kbukum/streamgate/logger"
	"github.com/kbukum/streamgate/objectstore"
	"github.com/kbukum/streamgate/observability"
	"github.com/kbukum/streamgate/server"
	"github.com/kbukum/streamgate/stream"
	"github.com/kbukum/streamgate/upload"
	"github.com/kbukum/streamgate/util"
)

// App is the running service.
type App struct {
	Cfg        *Config
	Components *component.Registry
	Logger     *logger.Logger

	database    *database.Component
	objectstore *objectstore.Component
	server      *server.Server
	telemetry   *observability.Provider
	metrics     *observability.Metrics
}

// Option configures an App.
type Option func(*App)

// WithLogger replaces the logger built from cfg.Logging.
func WithLogger(l *logger.Logger) Option {
	return func(a *App) { a.Logger = l }
}

// New validates cfg and prepares the infrastructure components. Nothing is
// started until Start or Run.
func New(cfg *Config, opts ...Option) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	a := &App{Cfg: cfg, Components: component.NewRegistry()}
	for _, opt := range opts {
		opt(a)
	}
	if a.Logger == nil {
		a.Logger = logger.Init(cfg.Logging, cfg.Name)
	}
	return a, nil
}

// Start brings the service up: telemetry, infrastructure, core services and
// finally the HTTP server.
func (a *App) Start(ctx context.Context) error {
	started := time.Now()
	a.Logger.Info("Starting application", map[string]interface{}{
		"name":        a.Cfg.Name,
		"version":     a.Cfg.Version,
		"environment": a.Cfg.Environment,
	})

	telemetry, err := observability.Init(ctx, a.Cfg.Observability, a.Cfg.Name, a.Cfg.Version, a.Cfg.Environment)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	a.telemetry = telemetry
	metrics, err := observability.NewMetrics(observability.Meter())
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	a.metrics = metrics

	a.database = database.NewComponent(a.Cfg.Database, a.Logger).WithAutoMigrate(&catalog.VideoRecord{})
	a.objectstore = objectstore.NewComponent(a.Cfg.ObjectStore, metrics, a.Logger)
	for _, c := range []component.Component{a.database, a.objectstore} {
		if err := a.Components.Register(c); err != nil {
			return err
		}
	}

	a.Logger.Info("Phase 1: Starting infrastructure")
	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	a.Logger.Info("Phase 2: Wiring services and routes")
	a.server = a.buildServer()
	if err := a.Components.Register(server.NewComponent(a.server)); err != nil {
		return err
	}
	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("server start failed: %w", err)
	}

	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", logger.ErrorFields("ready_check", err))
	}
	a.Logger.Info("Application ready", map[string]interface{}{
		"addr":            a.server.Addr(),
		"stream_window":   util.FormatSize(a.Cfg.Stream.Bytes()),
		"startup_time_ms": time.Since(started).Milliseconds(),
	})
	return nil
}

func (a *App) buildServer() *server.Server {
	records := catalog.NewGormStore(a.database.DB().GormDB)
	store := a.objectstore.Client()

	opts := a.Cfg.Upload
	opts.Metrics = a.metrics
	h := handler.New(
		upload.New(store, records, opts, a.Logger),
		stream.New(store, records, stream.Options{WindowSize: a.Cfg.Stream.Bytes(), Metrics: a.metrics}, a.Logger),
		catalog.NewQuery(records, a.Logger),
		a.Logger,
	)

	srv := server.New(a.Cfg.Server, a.metrics, a.Logger)
	srv.RegisterDefaultEndpoints(a.Cfg.Name, a.Components.HealthAll, map[string]string{
		"environment":   a.Cfg.Environment,
		"objectstore":   a.Cfg.ObjectStore.Provider,
		"database":      a.Cfg.Database.Driver,
		"stream_window": util.FormatSize(a.Cfg.Stream.Bytes()),
		"max_body_size": a.Cfg.Server.MaxBodySize,
	})
	h.Register(srv.GinEngine())
	for _, r := range srv.GinEngine().Routes() {
		a.Logger.Debug("Route registered", map[string]interface{}{
			logger.FieldMethod: r.Method,
			logger.FieldPath:   r.Path,
		})
	}
	return srv
}

// Addr returns the HTTP listen address once started.
func (a *App) Addr() string {
	if a.server == nil {
		return ""
	}
	return a.server.Addr()
}

// ReadyCheck reports every component that is not healthy.
func (a *App) ReadyCheck(ctx context.Context) error {
	var unhealthy []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status != component.StatusHealthy {
			detail := h.Name + "=" + string(h.Status)
			if h.Message != "" {
				detail += "(" + h.Message + ")"
			}
			unhealthy = append(unhealthy, detail)
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// Run starts the service, blocks until SIGINT, SIGTERM or ctx ends, then
// shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		if stopErr := a.Shutdown(context.Background()); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
		return err
	}
	a.WaitForSignal(ctx)
	return a.Shutdown(context.Background())
}

// WaitForSignal blocks until an interrupt or term signal, or ctx ends.
func (a *App) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received shutdown signal", map[string]interface{}{"signal": sig.String()})
		return sig
	case <-ctx.Done():
		a.Logger.Info("Context canceled, shutting down")
		return nil
	}
}

// Shutdown stops components in reverse order and flushes telemetry, all
// within the server's graceful timeout.
func (a *App) Shutdown(ctx context.Context) error {
	timeout := a.Cfg.Server.ShutdownTimeout()
	a.Logger.Info("Shutting down application", map[string]interface{}{"timeout": timeout.String()})

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("Shutdown completed with errors", logger.ErrorFields("stop_components", err))
		errs = append(errs, err)
	}
	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.Logger.Error("Telemetry shutdown failed", logger.ErrorFields("telemetry_shutdown", err))
			errs = append(errs, err)
		}
	}

	a.Logger.Info("Application shutdown complete")
	return errors.Join(errs...)
}
