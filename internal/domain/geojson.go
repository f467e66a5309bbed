package domain

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature property keys read by the fire layer paint expressions and popups.
const (
	PropIntensity  = "frp"
	PropConfidence = "confidence"
	PropDate       = "date"
	PropTime       = "time"
	PropBrightness = "brightness"
	PropSource     = "source"
)

// RecordFeature converts a record to a GeoJSON point feature. Coordinates are
// written in [lon, lat] order.
func RecordFeature(r FireRecord) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{r.Lon, r.Lat})
	f.Properties[PropIntensity] = r.Intensity
	f.Properties[PropConfidence] = r.Confidence
	f.Properties[PropDate] = r.Date
	f.Properties[PropTime] = r.Time
	f.Properties[PropBrightness] = r.Brightness
	f.Properties[PropSource] = r.Source
	return f
}

// FeatureCollection converts records to a collection in record order.
func FeatureCollection(records []FireRecord) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range records {
		fc.Append(RecordFeature(r))
	}
	return fc
}
