// Package suppress decides whether a candidate alarm duplicates a recently
// archived alarm for the same fire.
package suppress

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/satfire/firewatch/internal/archive"
	"github.com/satfire/firewatch/internal/types"
	"go.uber.org/zap"
)

// Suppressor scans the alarm archive for records close in time and space to
// a candidate alarm.
type Suppressor struct {
	store    *archive.Store
	hours    float64
	radiusKm float64
	logger   *zap.SugaredLogger
}

// New creates a suppressor. hourThreshold is the lookback window in hours; a
// zero or negative value disables suppression entirely. spatialThresholdKm
// is the distance below which an archived alarm claims the candidate.
func New(store *archive.Store, hourThreshold, spatialThresholdKm float64, logger *zap.SugaredLogger) *Suppressor {
	return &Suppressor{
		store:    store,
		hours:    hourThreshold,
		radiusKm: spatialThresholdKm,
		logger:   logger,
	}
}

// ShouldTrigger reports whether the candidate should raise a new alarm.
// Archive records whose encoded time lies strictly between
// obs - hour_threshold and obs are examined in descending time order, most
// recent first; the first record within the suppression radius rejects the
// candidate and is returned as the cause. Records that cannot be read are
// skipped. An empty window accepts the candidate.
func (s *Suppressor) ShouldTrigger(candidate types.Alarm, obs time.Time) (bool, *archive.Entry) {
	if s.hours <= 0 {
		return true, nil
	}

	windowStart := obs.Add(-time.Duration(s.hours * float64(time.Hour)))
	entries, err := s.store.Between(windowStart, obs)
	if err != nil {
		s.logger.Warnf("could not scan alarm archive, accepting candidate: %v", err)
		return true, nil
	}

	point := orb.Point{candidate.Representative.Longitude, candidate.Representative.Latitude}
	for i := len(entries) - 1; i >= 0; i-- {
		stored, err := s.store.Read(entries[i])
		if err != nil {
			s.logger.Warnf("skipping unreadable archive record: %v", err)
			continue
		}
		storedPoint := orb.Point{stored.Representative.Longitude, stored.Representative.Latitude}
		if geo.DistanceHaversine(point, storedPoint)/1000.0 < s.radiusKm {
			return false, &entries[i]
		}
	}
	return true, nil
}
