package domain

import (
	"encoding/csv"
	"math"
	"strconv"
	"strings"
)

// hotspotColumns holds header positions; -1 means the column is absent.
type hotspotColumns struct {
	lat, lon   int
	frp        int
	confidence int
	date, time int
	brightness int
}

// ParseHotspotCSV converts a FIRMS CSV body into fire records tagged with
// sourceName. Each line is parsed on its own, so a malformed line, including
// one with an unterminated quote, only costs that row. Rows whose latitude or
// longitude cannot be parsed are dropped; all other missing values fall back
// to their defaults.
func ParseHotspotCSV(body, sourceName string) []FireRecord {
	lines := strings.Split(strings.TrimSpace(body), "\n")

	header, err := parseLine(lines[0])
	if err != nil {
		return nil
	}
	cols := locateColumns(header)

	var records []FireRecord
	for _, line := range lines[1:] {
		row, err := parseLine(line)
		if err != nil || len(row) == 0 {
			continue
		}

		lat, okLat := parseCoordinate(field(row, cols.lat))
		lon, okLon := parseCoordinate(field(row, cols.lon))
		if !okLat || !okLon {
			continue
		}

		records = append(records, FireRecord{
			Lon:        lon,
			Lat:        lat,
			Intensity:  parseFloatOr(field(row, cols.frp), DefaultIntensity),
			Confidence: stringOr(field(row, cols.confidence), DefaultConfidence),
			Date:       field(row, cols.date),
			Time:       field(row, cols.time),
			Brightness: parseFloatOr(field(row, cols.brightness), DefaultBrightness),
			Source:     sourceName,
		})
	}
	return records
}

// parseLine splits one CSV line into trimmed fields. Blank lines yield no fields.
func parseLine(line string) ([]string, error) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r.Read()
}

// locateColumns finds column positions case-insensitively. Brightness is
// matched by substring because each sensor names it differently.
func locateColumns(header []string) hotspotColumns {
	cols := hotspotColumns{lat: -1, lon: -1, frp: -1, confidence: -1, date: -1, time: -1, brightness: -1}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		switch h {
		case "latitude":
			setOnce(&cols.lat, i)
		case "longitude":
			setOnce(&cols.lon, i)
		case "frp":
			setOnce(&cols.frp, i)
		case "confidence":
			setOnce(&cols.confidence, i)
		case "acq_date":
			setOnce(&cols.date, i)
		case "acq_time":
			setOnce(&cols.time, i)
		}
		if strings.Contains(h, "bright") {
			setOnce(&cols.brightness, i)
		}
	}
	return cols
}

func setOnce(dst *int, i int) {
	if *dst < 0 {
		*dst = i
	}
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseCoordinate(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseFloatOr(s string, fallback float64) float64 {
	v, ok := parseCoordinate(s)
	if !ok {
		return fallback
	}
	return v
}

func stringOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
