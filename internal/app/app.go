// Package app wires the configured backend, notifier, resolver and record
// store together, runs the background sync loop and handles graceful
// shutdown.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/devvoxel/itemdb/internal/config"
	"github.com/devvoxel/itemdb/internal/logging"
	"github.com/devvoxel/itemdb/internal/notify"
	"github.com/devvoxel/itemdb/internal/resolver"
	"github.com/devvoxel/itemdb/internal/storage"
	"github.com/devvoxel/itemdb/internal/store"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	backend  storage.Backend
	notifier notify.Notifier
	store    *store.Store

	closeOnce sync.Once
	closeErr  error
}

// New opens the backend, hydrates the cache and returns a ready app.
// Optional resolver providers are consulted for keys absent from the store.
func New(ctx context.Context, cfg *config.Config, providers ...resolver.Provider) (*App, error) {
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	backend, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("backend init error: %w", err)
	}

	notifier := notify.Select(notify.WebhookConfig{URL: cfg.WebhookURL}, logger)
	res := resolver.Select(logger, providers...)

	st := store.New(backend, cfg, res, notifier, logger)
	if err := st.Load(ctx); err != nil {
		notifier.Close()
		_ = backend.Close()
		return nil, fmt.Errorf("cache load error: %w", err)
	}

	return &App{
		config:   cfg,
		logger:   logger,
		backend:  backend,
		notifier: notifier,
		store:    st,
	}, nil
}

// Store exposes the record store to command handlers.
func (a *App) Store() *store.Store {
	return a.store
}

// Logger exposes the shared logger.
func (a *App) Logger() logging.Logger {
	return a.logger
}

func (a *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts the periodic sync loop and blocks until the context is
// canceled or a termination signal arrives, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	a.logger.Info(ctx, "Starting app...", "backend", a.config.Backend, "items", a.store.Size())

	a.initSignalHandler(cancelFunc)
	a.store.StartSync(ctx, a.config.SyncInterval)

	<-ctx.Done()

	a.logger.Info(context.Background(), "Shutting down...")
	return a.Close()
}

// Close stops sync, drains the notifier and closes the backend. Safe to
// call more than once and after a failed or finished Run.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.store.Close()
		a.notifier.Close()
		a.closeErr = a.backend.Close()
	})
	return a.closeErr
}
