package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/satfire/firewatch/internal/sources"
	"github.com/satfire/firewatch/internal/sources/tcplistener"
	"github.com/satfire/firewatch/internal/sources/watcher"
	"github.com/satfire/firewatch/internal/types"
	"github.com/satfire/firewatch/pkg/config"
	"go.uber.org/zap"
)

// SourceManager defines the interface for managing granule notification sources
type SourceManager interface {
	StartSources() error
	StopSources() error
}

// NewSourceManager creates a SourceManager object, populated with all enabled notification sources
func NewSourceManager(ctx context.Context, wg *sync.WaitGroup, cfgData *config.ConfigData, granules chan types.GranuleNotification, logger *zap.SugaredLogger) (SourceManager, error) {
	sm := &sourceManager{
		ctx:      ctx,
		wg:       wg,
		granules: granules,
		logger:   logger,
		sources:  make(map[string]sources.Source),
	}

	for _, sourceConfig := range cfgData.Sources {
		if !sourceConfig.Enabled {
			logger.Infof("Skipping disabled source [%s]", sourceConfig.Name)
			continue
		}
		source, err := sm.createSource(sourceConfig)
		if err != nil {
			return nil, fmt.Errorf("error creating source [%s]: %w", sourceConfig.Name, err)
		}
		sm.sources[sourceConfig.Name] = source
	}

	return sm, nil
}

type sourceManager struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	granules chan types.GranuleNotification
	logger   *zap.SugaredLogger
	sources  map[string]sources.Source
}

func (s *sourceManager) StartSources() error {
	for name, source := range s.sources {
		s.logger.Infof("Starting source [%v]...", name)
		if err := source.StartSource(); err != nil {
			return fmt.Errorf("failed to start source [%s]: %w", name, err)
		}
	}
	return nil
}

// StopSources stops every source, logging failures rather than aborting so
// that one stuck source cannot keep the rest from shutting down.
func (s *sourceManager) StopSources() error {
	for name, source := range s.sources {
		if err := source.StopSource(); err != nil {
			s.logger.Errorf("Error stopping source %s: %v", name, err)
		}
	}
	return nil
}

// createSource creates the appropriate source based on the source type
func (s *sourceManager) createSource(sc config.SourceData) (sources.Source, error) {
	switch sc.Type {
	case "watcher":
		s.logger.Infof("Initializing spool watcher source [%v]", sc.Name)
		return watcher.NewSource(s.ctx, s.wg, sc, s.granules, s.logger), nil
	case "tcplistener":
		s.logger.Infof("Initializing TCP listener source [%v]", sc.Name)
		return tcplistener.NewSource(s.ctx, s.wg, sc, s.granules, s.logger), nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", sc.Type)
	}
}
