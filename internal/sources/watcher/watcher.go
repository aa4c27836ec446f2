// Package watcher polls a spool directory for granule notification files
// dropped there by the upstream processing chain.
package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satfire/firewatch/internal/types"
	"github.com/satfire/firewatch/pkg/config"
)

// Source watches one spool directory. Notification files are enqueued in
// name order and removed once handed to the engine; a file that fails to
// decode is set aside with a .bad suffix so it cannot wedge the feed.
type Source struct {
	ctx      context.Context
	cancel   context.CancelFunc
	wg       *sync.WaitGroup
	cfg      config.SourceData
	granules chan<- types.GranuleNotification
	logger   *zap.SugaredLogger
}

func NewSource(ctx context.Context, wg *sync.WaitGroup, cfg config.SourceData, granules chan<- types.GranuleNotification, logger *zap.SugaredLogger) *Source {
	ctx, cancel := context.WithCancel(ctx)
	return &Source{
		ctx:      ctx,
		cancel:   cancel,
		wg:       wg,
		cfg:      cfg,
		granules: granules,
		logger:   logger,
	}
}

func (s *Source) SourceName() string {
	return s.cfg.Name
}

// StartSource verifies the spool directory and launches the polling loop
func (s *Source) StartSource() error {
	if _, err := os.Stat(s.cfg.Directory); err != nil {
		return fmt.Errorf("watcher source [%s] cannot read spool directory: %v", s.cfg.Name, err)
	}
	s.logger.Infof("watcher source [%s] polling %v every %d seconds",
		s.cfg.Name, s.cfg.Directory, s.cfg.PollIntervalSeconds)

	s.wg.Add(1)
	go s.poll()
	return nil
}

func (s *Source) StopSource() error {
	s.cancel()
	return nil
}

func (s *Source) poll() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Duration(s.cfg.PollIntervalSeconds) * time.Second)
	defer ticker.Stop()

	// drain whatever was spooled before we came up
	s.sweep()
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Infof("watcher source [%s] stopped", s.cfg.Name)
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep enqueues every notification file currently in the directory. Files
// are removed only after the engine has accepted them, so a crash between
// the two never loses a granule.
func (s *Source) sweep() {
	entries, err := os.ReadDir(s.cfg.Directory)
	if err != nil {
		s.logger.Warnf("watcher source [%s] could not list spool directory: %v", s.cfg.Name, err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.cfg.Directory, entry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warnf("watcher source [%s] could not read %v: %v", s.cfg.Name, path, err)
			continue
		}
		var g types.GranuleNotification
		if err := json.Unmarshal(data, &g); err != nil {
			s.logger.Warnf("watcher source [%s] setting aside malformed notification %v: %v",
				s.cfg.Name, path, err)
			if err := os.Rename(path, path+".bad"); err != nil {
				s.logger.Warnf("watcher source [%s] could not set aside %v: %v", s.cfg.Name, path, err)
			}
			continue
		}

		select {
		case s.granules <- g:
		case <-s.ctx.Done():
			return
		}
		if err := os.Remove(path); err != nil {
			s.logger.Warnf("watcher source [%s] could not remove %v: %v", s.cfg.Name, path, err)
		}
	}
}
