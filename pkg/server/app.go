package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"LinkSight/internal/registry"
	"LinkSight/internal/usecase"
	"LinkSight/pkg/cache"
	pkgch "LinkSight/pkg/clickhouse"
	"LinkSight/pkg/config"
	xhttp "LinkSight/pkg/http"
	applogger "LinkSight/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg     *config.Config
	l       *applogger.Logger
	reg     *registry.Registry
	svc     *usecase.PredictionService
	audit   *usecase.AuditProcessor
	handler xhttp.Handler

	chClient *pkgch.Client
	cacheSvc cache.Service

	watcher    *registry.Watcher
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	reg *registry.Registry,
	svc *usecase.PredictionService,
	audit *usecase.AuditProcessor,
	handler xhttp.Handler,
	chClient *pkgch.Client,
	cacheSvc cache.Service,
) *App {
	return &App{
		cfg:      cfg,
		l:        l,
		reg:      reg,
		svc:      svc,
		audit:    audit,
		handler:  handler,
		chClient: chClient,
		cacheSvc: cacheSvc,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initial model scan. A bad pair is skipped inside Load; only a broken
	// walk aborts startup.
	if err := a.reg.Load(ctx); err != nil {
		a.l.Error("initial model scan failed", applogger.Error(err))
		return err
	}
	a.l.Info("models loaded",
		applogger.Int("count", a.reg.Len()),
		applogger.String("dir", a.cfg.Models.Dir),
	)

	a.audit.Start()

	if a.cfg.Models.Watch {
		// Reload through the service so the response cache is purged with
		// the snapshot swap, same as POST /api/models/reload.
		reload := func(ctx context.Context) error {
			_, err := a.svc.Reload(ctx)
			return err
		}
		w, err := registry.NewWatcher(a.cfg.Models.Dir, reload, a.l, a.cfg.Models.WatchDebounce)
		if err != nil {
			a.l.Error("model watcher init failed", applogger.Error(err))
			return err
		}
		if err := w.Start(ctx); err != nil {
			a.l.Error("model watcher start failed", applogger.Error(err))
			return err
		}
		a.watcher = w
		a.l.Info("model watcher started", applogger.String("dir", a.cfg.Models.Dir))
	}

	opts := []xhttp.ServerOption{
		xhttp.WithAddr(a.cfg.Server.Host, a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	}
	if a.cfg.CORS.Enabled {
		opts = append(opts, xhttp.WithCORS(a.cfg.CORS.Origins))
	}
	if a.cfg.Metrics.Enabled {
		if a.cfg.Metrics.Path != "" {
			opts = append(opts, xhttp.WithMetricsPath(a.cfg.Metrics.Path))
		}
	} else {
		opts = append(opts, xhttp.WithMetricsPath(""))
	}

	a.httpServer = xhttp.NewServer(a.l, a.handler, opts...)
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.l.Warn("model watcher stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	// Drains buffered events and closes the sinks, including the Kafka
	// producer and the WebSocket hub.
	a.audit.Close()

	if a.cacheSvc != nil {
		if err := a.cacheSvc.Close(); err != nil {
			a.l.Warn("cache close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
