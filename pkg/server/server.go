package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"shortlink/pkg/config"
	httphandler "shortlink/pkg/http"
	"shortlink/pkg/logging"
	"shortlink/pkg/migrations"
	"shortlink/pkg/service"
	"shortlink/pkg/storage"

	"github.com/go-chi/chi/v5"
)

// Routes selects which route set a binary serves.
type Routes func(chi.Router, *httphandler.Handler)

type App struct {
	cfg     *config.Config
	logger  *logging.Logger
	store   storage.Backend
	links   *service.LinkService
	httpSrv *http.Server
}

// OpenStore opens the configured backend, migrating Postgres first.
func OpenStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (storage.Backend, error) {
	if cfg.Store.Driver == storage.DriverPostgres {
		if err := migrations.Run(cfg.Store.DatabaseURL, logger.Logger); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	store, err := storage.Open(ctx, storage.Options{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		RedisURL:    cfg.Store.RedisURL,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	logger.Info(ctx, "storage initialized", "driver", cfg.Store.Driver)
	return store, nil
}

func New(ctx context.Context, cfg *config.Config, logger *logging.Logger, routes Routes) (*App, error) {
	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	links := service.NewLinkService(store, logger, service.Options{
		ClickTimeout:   cfg.Links.ClickTimeout,
		InsertAttempts: cfg.Links.InsertAttempts,
	})
	handler := httphandler.NewHandler(links, logger, cfg.Server.BaseURL)

	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
		links:  links,
		httpSrv: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      httphandler.NewRouter(logger, handler, routes),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}, nil
}

// Serve accepts connections on ln until ctx is canceled, then shuts down.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info(ctx, "starting server", "addr", ln.Addr().String())
		errCh <- a.httpSrv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		a.closeStore(ctx)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info(ctx, "shutting down")
	return a.Shutdown(context.WithoutCancel(ctx))
}

// ListenAndServe binds the configured address and calls Serve.
func (a *App) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.httpSrv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.httpSrv.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Shutdown stops accepting requests, waits for in-flight ones and their
// click increments, then closes the store.
func (a *App) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	err := a.httpSrv.Shutdown(ctx)
	if err != nil {
		a.logger.Error(ctx, "server shutdown error", "error", err)
	}
	a.links.Drain()
	a.closeStore(ctx)
	a.logger.Info(ctx, "server stopped gracefully")
	return err
}

func (a *App) closeStore(ctx context.Context) {
	if err := a.store.Close(); err != nil {
		a.logger.Warn(ctx, "close store", "error", err)
	}
}
