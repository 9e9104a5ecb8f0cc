package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chrissnell/gridlive/internal/cache"
	"github.com/chrissnell/gridlive/internal/dashboard"
	"github.com/chrissnell/gridlive/internal/gridlive"
	"github.com/chrissnell/gridlive/internal/log"
	"github.com/chrissnell/gridlive/internal/managers"
	"github.com/chrissnell/gridlive/internal/metrics"
	"github.com/chrissnell/gridlive/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	config *config.ConfigData
	logger *zap.SugaredLogger
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	return &App{
		config: cfg,
		logger: logger,
	}
}

// Run wires the GridLive client, cache, dashboard service and REST server,
// then blocks until a shutdown signal or ctx cancellation.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := metrics.New()

	store, closeStore, err := cache.Open(ctx, a.config.Cache)
	if err != nil {
		return fmt.Errorf("opening %s cache: %w", a.config.Cache.Backend, err)
	}
	defer closeStore()
	if mem, ok := store.(*cache.Memory); ok {
		managers.StartCacheSweeper(ctx, &wg, mem, a.config.Cache.TTL, a.logger.Named("cache"))
	}
	a.logger.Infof("using %s cache with ttl %v", a.config.Cache.Backend, a.config.Cache.TTL)

	if a.config.GridLive.APIToken == "" {
		a.logger.Warnf("no GridLive API token configured; set %s to enable smart meter data", config.APITokenEnv)
	}
	client, err := gridlive.NewClient(a.config.GridLive, a.config.Series.DefaultLookback, a.logger.Named("gridlive"), m)
	if err != nil {
		return err
	}

	svc := dashboard.New(client, cache.Instrument(store, m), dashboard.OptionsFromConfig(a.config), a.logger.Named("dashboard"), m)

	// Initialize the controller manager
	cm, err := managers.NewControllerManager(ctx, &wg, a.config, svc, m, a.logger)
	if err != nil {
		return err
	}
	err = cm.StartControllers()
	if err != nil {
		return err
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}
