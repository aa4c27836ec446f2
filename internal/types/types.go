package types

import "time"

// Detection is a single geolocated fire-pixel report from one satellite
// granule. Detections are immutable once read; the allocator stamps ID on
// id-less detections at intake, before clustering.
type Detection struct {
	Longitude         float64
	Latitude          float64
	Power             float64 // fire radiative power, MW
	TB                float64 // brightness temperature, K
	TBCelsius         *float64
	Confidence        int
	ObservationTime   time.Time
	PlatformName      string
	PersistentAnomaly bool
	ID                string
}

// Cluster is a non-empty group of detections believed to originate from one
// physical fire at one observation time. The ID is derived from the seed
// detection's fixed-point coordinates and is unique within one granule.
type Cluster struct {
	ID         string
	Detections []Detection
}

// Alarm is the single representative detection chosen for a cluster,
// eligible for external notification. RelatedDetection is true when the
// source cluster had more than one member.
type Alarm struct {
	Representative   Detection
	RelatedDetection bool
}

// GranuleNotification is one inbound message announcing a detections file
// for one satellite overpass. Only URI is consumed by the engine; the rest
// is metadata carried through to alarm notices.
type GranuleNotification struct {
	PlatformName string `json:"platform_name,omitempty"`
	Sensor       string `json:"sensor,omitempty"`
	OrbitNumber  int    `json:"orbit_number,omitempty"`
	StartTime    string `json:"start_time,omitempty"`
	EndTime      string `json:"end_time,omitempty"`
	URI          string `json:"uri"`
	Format       string `json:"format,omitempty"`
	DataType     string `json:"data_type,omitempty"`
}

// AlarmNotice is the outbound status message emitted for one accepted alarm.
type AlarmNotice struct {
	UID              string     `json:"uid"`
	PlatformName     string     `json:"platform_name,omitempty"`
	OrbitNumber      int        `json:"orbit_number,omitempty"`
	Power            float64    `json:"power"`
	TB               float64    `json:"tb"`
	RelatedDetection bool       `json:"related_detection"`
	Coordinates      [2]float64 `json:"coordinates"` // lon, lat
	ObservationTime  string     `json:"observation_time"`
	File             string     `json:"file"`
	URI              string     `json:"uri"`
}

// Observation times travel as ISO-8601 strings, with microseconds, usually
// without a zone designator. Zoneless timestamps are taken as UTC.
const (
	obsTimeLayout      = "2006-01-02T15:04:05.999999"
	obsTimeLayoutZoned = "2006-01-02T15:04:05.999999Z07:00"
)

// ParseObservationTime parses an observation timestamp, accepting zoned and
// zoneless forms, and normalizes the result to UTC.
func ParseObservationTime(s string) (time.Time, error) {
	if t, err := time.Parse(obsTimeLayoutZoned, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(obsTimeLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FormatObservationTime renders a timestamp in the zoneless UTC form used in
// archive records and notices.
func FormatObservationTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000")
}
