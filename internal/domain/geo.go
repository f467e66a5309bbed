package domain

import (
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// flankAngleDeg is the half-width of the predicted spread sector.
const flankAngleDeg = 30.0

// DistanceKm is the great-circle distance between two [lon, lat] points.
func DistanceKm(a, b orb.Point) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat(), a.Lon())
	p2 := s2.LatLngFromDegrees(b.Lat(), b.Lon())
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// Nearest returns the index of the record closest to at and its distance.
// ok is false when records is empty.
func Nearest(records []FireRecord, at orb.Point) (idx int, km float64, ok bool) {
	idx, km = -1, math.Inf(1)
	for i, r := range records {
		d := DistanceKm(at, orb.Point{r.Lon, r.Lat})
		if d < km {
			idx, km = i, d
		}
	}
	return idx, km, idx >= 0
}

// DestinationPoint travels distanceKm from origin along bearingDeg (0 = north).
func DestinationPoint(origin orb.Point, bearingDeg, distanceKm float64) orb.Point {
	p := s2.LatLngFromDegrees(origin.Lat(), origin.Lon())
	bearing := bearingDeg * math.Pi / 180
	angular := distanceKm / EarthRadiusKm

	lat1 := p.Lat.Radians()
	lon1 := p.Lng.Radians()

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(angular) +
		math.Cos(lat1)*math.Sin(angular)*math.Cos(bearing))
	lon2 := lon1 + math.Atan2(
		math.Sin(bearing)*math.Sin(angular)*math.Cos(lat1),
		math.Cos(angular)-math.Sin(lat1)*math.Sin(lat2))

	dest := s2.LatLng{Lat: s1.Angle(lat2), Lng: s1.Angle(lon2)}.Normalized()
	return orb.Point{dest.Lng.Degrees(), dest.Lat.Degrees()}
}

// SpreadCone is a one-hour fire spread prediction driven by wind.
type SpreadCone struct {
	Origin      orb.Point `json:"origin"`
	Head        orb.Point `json:"head"`
	ROSKmh      float64   `json:"ros_kmh"`
	DistanceKm  float64   `json:"distance_km"`
	BearingDeg  float64   `json:"bearing_deg"`
	AreaRiskKm2 float64   `json:"area_risk_km2"`
	Message     string    `json:"message"`
}

// PredictSpread estimates the fire front after one hour. Rate of spread is
// taken as 10% of wind speed (moderate fuel), floored at 0.1 km/h. The
// head moves along bearingDeg, the direction the wind carries the fire.
func PredictSpread(origin orb.Point, windKmh, bearingDeg float64) SpreadCone {
	ros := math.Max(0.1, windKmh*0.1)
	distance := ros * 1.0
	bearingDeg = math.Mod(math.Mod(bearingDeg, 360)+360, 360)

	return SpreadCone{
		Origin:      origin,
		Head:        DestinationPoint(origin, bearingDeg, distance),
		ROSKmh:      ros,
		DistanceKm:  distance,
		BearingDeg:  bearingDeg,
		AreaRiskKm2: 0.5 * distance * (distance * math.Tan(flankAngleDeg*math.Pi/180)),
		Message:     fmt.Sprintf("Predicted spread %.2fkm @ %g deg in 1 hr", distance, bearingDeg),
	}
}

// MetersPerSecondToKmh converts wind speed units.
func MetersPerSecondToKmh(v float64) float64 {
	return v * 3.6
}
