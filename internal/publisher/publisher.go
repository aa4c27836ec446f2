// Package publisher emits one outbound notice per accepted alarm so
// downstream consumers (dashboards, notifiers) learn about new fires.
package publisher

import (
	"path/filepath"

	"github.com/google/uuid"
	"github.com/satfire/firewatch/internal/types"
)

// Publisher delivers alarm notices. Implementations must tolerate being
// called once per alarm from the engine loop; failures are logged by the
// caller and never block the pipeline.
type Publisher interface {
	Publish(n types.AlarmNotice) error
	Close() error
}

// NewNotice assembles the outbound notice for one accepted alarm and its
// archive record. Granule metadata fills the fields the detection itself
// does not carry.
func NewNotice(a types.Alarm, recordPath string, g types.GranuleNotification) types.AlarmNotice {
	d := a.Representative
	platform := d.PlatformName
	if platform == "" {
		platform = g.PlatformName
	}
	return types.AlarmNotice{
		UID:              uuid.New().String(),
		PlatformName:     platform,
		OrbitNumber:      g.OrbitNumber,
		Power:            d.Power,
		TB:               d.TB,
		RelatedDetection: a.RelatedDetection,
		Coordinates:      [2]float64{d.Longitude, d.Latitude},
		ObservationTime:  types.FormatObservationTime(d.ObservationTime),
		File:             filepath.Base(recordPath),
		URI:              recordPath,
	}
}
