package domain

import (
	"context"
	"math"
)

// HighCOThreshold is the CO concentration (µg/m³) above which a point is
// flagged as a possible fire.
const HighCOThreshold = 1000.0

// DefaultLocationName labels points the weather API cannot name (open ocean, wilderness).
const DefaultLocationName = "Target Zone"

// aqiColors is the fixed badge palette for AQI levels 1 through 5.
var aqiColors = map[int]string{
	1: "#00e400",
	2: "#ffff00",
	3: "#ff7e00",
	4: "#ff0000",
	5: "#7e0023",
}

// Weather is current conditions at a point.
type Weather struct {
	Name        string  `json:"name"`
	TempC       float64 `json:"temp_c"`
	WindSpeed   float64 `json:"wind_speed"` // m/s
	WindDeg     float64 `json:"wind_deg"`
	Description string  `json:"description"`
}

// AirComponents are pollutant concentrations in µg/m³.
type AirComponents struct {
	CO   float64 `json:"co"`
	NO   float64 `json:"no"`
	NO2  float64 `json:"no2"`
	O3   float64 `json:"o3"`
	SO2  float64 `json:"so2"`
	PM25 float64 `json:"pm2_5"`
	PM10 float64 `json:"pm10"`
	NH3  float64 `json:"nh3"`
}

// AirQuality is the AQI level plus its components.
type AirQuality struct {
	AQI        int           `json:"aqi"`
	Components AirComponents `json:"components"`
}

// WeatherSource provides point telemetry.
type WeatherSource interface {
	CurrentWeather(ctx context.Context, lat, lon float64) (Weather, error)
	AirPollution(ctx context.Context, lat, lon float64) (AirQuality, error)
}

// Inspection is the display-only result of inspecting one point.
type Inspection struct {
	Lat     float64    `json:"lat"`
	Lng     float64    `json:"lng"`
	Weather Weather    `json:"weather"`
	Air     AirQuality `json:"air"`

	// NearestFireKm is the great-circle distance to the closest loaded
	// hotspot, nil when no fires are loaded.
	NearestFireKm *float64 `json:"nearest_fire_km,omitempty"`
}

// LocationName returns the weather station name or the placeholder label.
func (i Inspection) LocationName() string {
	if i.Weather.Name == "" {
		return DefaultLocationName
	}
	return i.Weather.Name
}

// HighCO reports whether CO exceeds the possible-fire threshold.
func (i Inspection) HighCO() bool {
	return i.Air.Components.CO > HighCOThreshold
}

// RoundedTemp rounds half up, matching how the map client displays degrees.
func (i Inspection) RoundedTemp() int {
	return int(math.Floor(i.Weather.TempC + 0.5))
}

// AQIColor returns the badge color for an AQI level, grey when out of range.
func AQIColor(aqi int) string {
	if c, ok := aqiColors[aqi]; ok {
		return c
	}
	return "#ccc"
}
