// Package detections reads fire detection GeoJSON and converts between
// detection records and GeoJSON features.
package detections

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/satfire/firewatch/internal/types"
)

// ReadGranule reads one granule's detections file, a GeoJSON
// FeatureCollection of Point features. The returned slice preserves feature
// order. A file that cannot be read or decoded fails as a whole; the caller
// skips the granule.
func ReadGranule(path string) ([]types.Detection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading detections file: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decoding detections file %s: %w", path, err)
	}

	ds := make([]types.Detection, 0, len(fc.Features))
	for i, f := range fc.Features {
		d, err := FromFeature(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d in %s: %w", i, path, err)
		}
		ds = append(ds, d)
	}
	return ds, nil
}

// FromFeature converts one GeoJSON feature into a Detection. Geometry must
// be a point; power, tb and observation_time properties are required.
func FromFeature(f *geojson.Feature) (types.Detection, error) {
	var d types.Detection

	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		return d, fmt.Errorf("geometry is %T, want Point", f.Geometry)
	}
	d.Longitude = pt.Lon()
	d.Latitude = pt.Lat()

	power, ok := floatProp(f.Properties, "power")
	if !ok {
		return d, fmt.Errorf("missing power property")
	}
	d.Power = power

	tb, ok := floatProp(f.Properties, "tb")
	if !ok {
		return d, fmt.Errorf("missing tb property")
	}
	d.TB = tb

	obs, ok := f.Properties["observation_time"].(string)
	if !ok {
		return d, fmt.Errorf("missing observation_time property")
	}
	t, err := types.ParseObservationTime(obs)
	if err != nil {
		return d, fmt.Errorf("bad observation_time %q: %w", obs, err)
	}
	d.ObservationTime = t

	// upstream producer spells this property tb_celcius
	if c, ok := floatProp(f.Properties, "tb_celcius"); ok {
		d.TBCelsius = &c
	}
	d.Confidence = f.Properties.MustInt("confidence", 0)
	d.PlatformName = f.Properties.MustString("platform_name", "")
	d.PersistentAnomaly = f.Properties.MustBool("persistent_anomaly", false)
	d.ID = f.Properties.MustString("id", "")

	return d, nil
}

// AlarmToFeature converts an accepted alarm into the single GeoJSON feature
// form used for archive records and REST posts.
func AlarmToFeature(a types.Alarm) *geojson.Feature {
	d := a.Representative
	f := geojson.NewFeature(orb.Point{d.Longitude, d.Latitude})
	f.Properties["power"] = d.Power
	f.Properties["tb"] = d.TB
	if d.TBCelsius != nil {
		f.Properties["tb_celcius"] = *d.TBCelsius
	}
	f.Properties["confidence"] = d.Confidence
	f.Properties["observation_time"] = types.FormatObservationTime(d.ObservationTime)
	f.Properties["platform_name"] = d.PlatformName
	f.Properties["related_detection"] = a.RelatedDetection
	if d.ID != "" {
		f.Properties["id"] = d.ID
	}
	return f
}

// UnmarshalAlarm decodes an archived alarm record. Records are written as a
// single feature; collections holding one feature are accepted for
// compatibility with older archives.
func UnmarshalAlarm(data []byte) (types.Alarm, error) {
	f, err := geojson.UnmarshalFeature(data)
	if err != nil {
		fc, fcErr := geojson.UnmarshalFeatureCollection(data)
		if fcErr != nil || len(fc.Features) == 0 {
			return types.Alarm{}, fmt.Errorf("decoding alarm record: %w", err)
		}
		f = fc.Features[0]
	}

	d, err := FromFeature(f)
	if err != nil {
		return types.Alarm{}, err
	}
	return types.Alarm{
		Representative:   d,
		RelatedDetection: f.Properties.MustBool("related_detection", false),
	}, nil
}

// RemoveSpurious drops detections that cannot be real fires: persistent
// thermal anomalies, and points whose brightness-to-power ratio marks them
// as sensor artifacts (tb/power > 1000 with tb above 310 K).
func RemoveSpurious(ds []types.Detection) (kept []types.Detection, spurious, anomalies int) {
	kept = make([]types.Detection, 0, len(ds))
	for _, d := range ds {
		switch {
		case d.PersistentAnomaly:
			anomalies++
		case d.TB/d.Power > 1000 && d.TB > 310:
			spurious++
		default:
			kept = append(kept, d)
		}
	}
	return kept, spurious, anomalies
}

func floatProp(p geojson.Properties, key string) (float64, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
