// Package app wires configuration, the alarm pipeline, and the source and
// controller managers into a running process.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/satfire/firewatch/internal/alloc"
	"github.com/satfire/firewatch/internal/archive"
	"github.com/satfire/firewatch/internal/log"
	"github.com/satfire/firewatch/internal/managers"
	"github.com/satfire/firewatch/internal/pipeline"
	"github.com/satfire/firewatch/internal/poster"
	"github.com/satfire/firewatch/internal/publisher"
	"github.com/satfire/firewatch/internal/suppress"
	"github.com/satfire/firewatch/internal/types"
	"github.com/satfire/firewatch/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfgData, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %v", err)
	}
	if err := cfgData.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	store, err := archive.NewStore(cfgData.Engine.AlarmsDir, cfgData.Engine.AlarmFilePrefix, a.logger)
	if err != nil {
		return err
	}
	ids, err := alloc.New(cfgData.Engine.IDCacheFile, a.logger)
	if err != nil {
		return err
	}
	suppressor := suppress.New(store, *cfgData.Engine.HourThreshold, *cfgData.Engine.SpatialThresholdKm, a.logger)

	var post *poster.Poster
	if cfgData.Poster != nil && cfgData.Poster.Enabled {
		token := os.Getenv(cfgData.Poster.XAuthTokenEnv)
		if token == "" {
			return fmt.Errorf("poster is enabled but environment variable %s is not set", cfgData.Poster.XAuthTokenEnv)
		}
		post = poster.New(cfgData.Poster.RESTAPIURL, token)
	}

	publishers, err := a.buildPublishers(cfgData)
	if err != nil {
		return err
	}
	defer func() {
		for _, pub := range publishers {
			if err := pub.Close(); err != nil {
				a.logger.Errorf("error closing publisher: %v", err)
			}
		}
	}()

	engine := pipeline.New(store, ids, suppressor, post, publishers,
		*cfgData.Engine.LongFiresThresholdKm, a.logger)

	granules := make(chan types.GranuleNotification, cfgData.Engine.QueueSize)
	wg.Add(1)
	go func() {
		defer wg.Done()
		engine.Run(ctx, granules)
	}()

	// Initialize the source manager
	sm, err := managers.NewSourceManager(ctx, &wg, cfgData, granules, a.logger)
	if err != nil {
		return err
	}
	if err := sm.StartSources(); err != nil {
		return err
	}

	// Initialize the controller manager
	cm, err := managers.NewControllerManager(ctx, &wg, cfgData, engine, store, a.logger)
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
	sm.StopSources()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()

	// Persist the allocator state one last time so the next run resumes the
	// detection id sequence instead of reusing ids.
	if err := ids.Flush(); err != nil {
		a.logger.Errorf("could not persist detection id state: %v", err)
	}

	log.Info("shutdown complete")

	return nil
}

// buildPublishers creates the enabled alarm notice publishers
func (a *App) buildPublishers(cfgData *config.ConfigData) ([]publisher.Publisher, error) {
	var pubs []publisher.Publisher
	for _, pc := range cfgData.Publishers {
		if !pc.Enabled {
			a.logger.Infof("Skipping disabled publisher [%s]", pc.Name)
			continue
		}
		switch pc.Type {
		case "tcp":
			a.logger.Infof("Initializing TCP publisher [%v]", pc.Name)
			pubs = append(pubs, publisher.NewTCP(pc.Address))
		case "spool":
			a.logger.Infof("Initializing spool publisher [%v]", pc.Name)
			spool, err := publisher.NewSpool(pc.Directory)
			if err != nil {
				return nil, fmt.Errorf("error creating publisher [%s]: %w", pc.Name, err)
			}
			pubs = append(pubs, spool)
		default:
			return nil, fmt.Errorf("unknown publisher type: %s", pc.Type)
		}
	}
	return pubs, nil
}
