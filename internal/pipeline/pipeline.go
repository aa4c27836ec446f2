// Package pipeline runs granules through the alarm stages: read the
// detections, stamp identifiers, drop spurious points, cluster, split long
// fires, pick representatives, check the archive for recent neighbors, and
// archive, post and announce whatever survives.
package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satfire/firewatch/internal/alloc"
	"github.com/satfire/firewatch/internal/archive"
	"github.com/satfire/firewatch/internal/cluster"
	"github.com/satfire/firewatch/internal/detections"
	"github.com/satfire/firewatch/internal/poster"
	"github.com/satfire/firewatch/internal/publisher"
	"github.com/satfire/firewatch/internal/suppress"
	"github.com/satfire/firewatch/internal/types"
)

// Stats counts what the engine has processed since startup. Served by the
// management REST endpoint.
type Stats struct {
	Granules            int       `json:"granules"`
	Skipped             int       `json:"skipped"`
	Detections          int       `json:"detections"`
	Spurious            int       `json:"spurious"`
	PersistentAnomalies int       `json:"persistent_anomalies"`
	Clusters            int       `json:"clusters"`
	Candidates          int       `json:"candidates"`
	Alarms              int       `json:"alarms"`
	Suppressed          int       `json:"suppressed"`
	PostFailures        int       `json:"post_failures"`
	LastGranule         time.Time `json:"last_granule"`
}

// Engine owns the alarm pipeline. All granules flow through a single
// goroutine, so archive lookups always observe the records written for
// earlier granules and for earlier alarms of the same granule.
type Engine struct {
	store      *archive.Store
	ids        *alloc.Allocator
	suppressor *suppress.Suppressor
	poster     *poster.Poster
	publishers []publisher.Publisher
	splitKm    float64
	logger     *zap.SugaredLogger

	mu    sync.Mutex
	stats Stats
}

// New assembles an engine. poster may be nil when outbound posting is not
// configured; publishers may be empty.
func New(store *archive.Store, ids *alloc.Allocator, suppressor *suppress.Suppressor, post *poster.Poster,
	publishers []publisher.Publisher, longFiresThresholdKm float64, logger *zap.SugaredLogger) *Engine {
	return &Engine{
		store:      store,
		ids:        ids,
		suppressor: suppressor,
		poster:     post,
		publishers: publishers,
		splitKm:    longFiresThresholdKm,
		logger:     logger,
	}
}

// Run consumes granule notifications until the context is canceled.
func (e *Engine) Run(ctx context.Context, granules <-chan types.GranuleNotification) {
	e.logger.Info("alarm engine started")
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("alarm engine stopped")
			return
		case g := <-granules:
			if err := e.ProcessGranule(ctx, g); err != nil {
				e.logger.Errorf("skipping granule %v: %v", g.URI, err)
			}
		}
	}
}

// ProcessGranule runs one granule through the full pipeline. Messages whose
// data type does not reference a detections file are counted and skipped
// without error. An error is returned only when the granule itself cannot be
// read; failures past that point affect single alarms and are logged instead
// of aborting the batch.
func (e *Engine) ProcessGranule(ctx context.Context, g types.GranuleNotification) error {
	switch g.DataType {
	case "", "file", "collection", "dataset":
	case "info":
		// no fires detected in the granule, nothing to alarm on
		e.logger.Infof("no-fires message for granule from %v, no alarm to generate", g.PlatformName)
		e.skip()
		return nil
	default:
		e.logger.Infof("skipping message with unsupported data type %q", g.DataType)
		e.skip()
		return nil
	}

	ds, err := detections.ReadGranule(g.URI)
	if err != nil {
		e.skip()
		return err
	}

	now := time.Now().UTC()
	e.ids.Assign(ds, now)
	if err := e.ids.Flush(); err != nil {
		e.logger.Warnf("could not persist detection id state: %v", err)
	}

	kept, spurious, anomalies := detections.RemoveSpurious(ds)
	if spurious > 0 || anomalies > 0 {
		e.logger.Infof("dropped %d spurious detections and %d persistent anomalies from %v",
			spurious, anomalies, g.URI)
	}

	groups := cluster.Group(kept, cluster.MergeRadiusKm)
	var parts []types.Cluster
	for _, c := range groups {
		sub, split := cluster.Split(c, e.splitKm)
		if split {
			e.logger.Infof("cluster %v wider than %v km, split into %d sub-clusters",
				c.ID, e.splitKm, len(sub))
		}
		parts = append(parts, sub...)
	}

	alarms, suppressed, postFailures := 0, 0, 0
	for _, c := range parts {
		alarm := cluster.SelectRepresentative(c)
		ok, cause := e.suppressor.ShouldTrigger(alarm, alarm.Representative.ObservationTime)
		if !ok {
			suppressed++
			e.logger.Infof("alarm %v suppressed by archived record %v",
				alarm.Representative.ID, cause.Path)
			continue
		}

		entry, err := e.store.Write(alarm)
		if err != nil {
			e.logger.Errorf("could not archive alarm %v: %v", alarm.Representative.ID, err)
			continue
		}
		alarms++

		if e.poster != nil {
			if err := e.poster.Post(ctx, alarm); err != nil {
				postFailures++
				e.logger.Errorf("could not post alarm %v: %v", alarm.Representative.ID, err)
			}
		}

		notice := publisher.NewNotice(alarm, entry.Path, g)
		for _, pub := range e.publishers {
			if err := pub.Publish(notice); err != nil {
				e.logger.Errorf("could not publish notice %v: %v", notice.UID, err)
			}
		}
	}

	e.mu.Lock()
	e.stats.Granules++
	e.stats.Detections += len(ds)
	e.stats.Spurious += spurious
	e.stats.PersistentAnomalies += anomalies
	e.stats.Clusters += len(groups)
	e.stats.Candidates += len(parts)
	e.stats.Alarms += alarms
	e.stats.Suppressed += suppressed
	e.stats.PostFailures += postFailures
	e.stats.LastGranule = now
	e.mu.Unlock()

	e.logger.Infof("granule %v: %d detections, %d clusters, %d candidates, %d alarms, %d suppressed",
		g.URI, len(ds), len(groups), len(parts), alarms, suppressed)
	return nil
}

// Stats returns a snapshot of the run counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// skip counts one inbound message that produced no granule run.
func (e *Engine) skip() {
	e.mu.Lock()
	e.stats.Skipped++
	e.mu.Unlock()
}
