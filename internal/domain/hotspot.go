package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// Defaults applied when a hotspot row lacks a usable value.
const (
	DefaultIntensity  = 10.0
	DefaultBrightness = 300.0
	DefaultConfidence = "nominal"

	// minHotspotBodyLen is the shortest body that can hold a header and one row.
	minHotspotBodyLen = 50
)

// ErrInvalidHotspotBody is returned when the hotspot API answers with an error
// page or a truncated body instead of CSV.
var ErrInvalidHotspotBody = errors.New("invalid hotspot response body")

// Satellite identifies one FIRMS product to query.
type Satellite struct {
	ID   string // FIRMS source identifier, e.g. "VIIRS_SNPP_NRT"
	Name string // display name stored on each record
}

// DefaultSatellites are queried in this order; aggregation preserves it.
var DefaultSatellites = []Satellite{
	{ID: "VIIRS_SNPP_NRT", Name: "VIIRS SNPP"},
	{ID: "VIIRS_NOAA20_NRT", Name: "VIIRS NOAA-20"},
}

// SatelliteByID returns the known display name for id, falling back to the id itself.
func SatelliteByID(id string) Satellite {
	for _, s := range DefaultSatellites {
		if s.ID == id {
			return s
		}
	}
	return Satellite{ID: id, Name: id}
}

// FireRecord is one thermal anomaly detection.
type FireRecord struct {
	Lon        float64 `json:"lon"`
	Lat        float64 `json:"lat"`
	Intensity  float64 `json:"frp"`
	Confidence string  `json:"confidence"`
	Date       string  `json:"date"`
	Time       string  `json:"time"`
	Brightness float64 `json:"brightness"`
	Source     string  `json:"source"`
}

// FireSnapshot is the result of one overlay load. It replaces the previous
// snapshot wholesale.
type FireSnapshot struct {
	Records   []FireRecord
	FetchedAt time.Time
}

// snapshotClock stamps FetchedAt.
var snapshotClock = clockwork.NewRealClock()

// SetClock replaces the snapshot time source; nil restores the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	snapshotClock = c
}

// NewFireSnapshot stamps records with the current time.
func NewFireSnapshot(records []FireRecord) FireSnapshot {
	return FireSnapshot{Records: records, FetchedAt: snapshotClock.Now()}
}

// ValidateHotspotBody rejects HTML error pages and bodies too short to be CSV.
func ValidateHotspotBody(body string) error {
	if strings.Contains(body, "<!DOCTYPE") || strings.Contains(body, "<html") {
		return ErrInvalidHotspotBody
	}
	if len(body) < minHotspotBodyLen {
		return ErrInvalidHotspotBody
	}
	return nil
}
