package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// WorldBounds covers the whole globe; used until a client reports its viewport.
var WorldBounds = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

// NewBounds builds a viewport bound from west, south, east, north. Map
// clients report longitudes beyond ±180 when world copies are visible: west
// is wrapped into [-180, 180) and east keeps its distance from west, so a
// viewport crossing the antimeridian ends past 180. A span of a full turn or
// more covers the world. Latitudes are clamped.
func NewBounds(west, south, east, north float64) orb.Bound {
	south, north = clamp(south, -90, 90), clamp(north, -90, 90)
	if south > north {
		south, north = north, south
	}

	span := east - west
	if span < 0 {
		// Already wrapped: west is left of the antimeridian, east right of it.
		span += 360
	}
	if span >= 360 {
		return orb.Bound{Min: orb.Point{-180, south}, Max: orb.Point{180, north}}
	}
	west = wrapLongitude(west)
	return orb.Bound{Min: orb.Point{west, south}, Max: orb.Point{west + span, north}}
}

// SplitAntimeridian returns b as one or two bounds within [-180, 180]. A
// bound ending past 180 is cut at the antimeridian; the western part comes
// first.
func SplitAntimeridian(b orb.Bound) []orb.Bound {
	if b.Max.X() <= 180 {
		return []orb.Bound{b}
	}
	return []orb.Bound{
		{Min: b.Min, Max: orb.Point{180, b.Max.Y()}},
		{Min: orb.Point{-180, b.Min.Y()}, Max: orb.Point{b.Max.X() - 360, b.Max.Y()}},
	}
}

func wrapLongitude(lon float64) float64 {
	return lon - 360*math.Floor((lon+180)/360)
}

// FormatBBox renders b as "west,south,east,north" with two decimals.
func FormatBBox(b orb.Bound) string {
	return fmt.Sprintf("%.2f,%.2f,%.2f,%.2f", b.Left(), b.Bottom(), b.Right(), b.Top())
}

// ParseBBox parses "west,south,east,north".
func ParseBBox(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("parse bbox %q: want 4 comma separated values", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("parse bbox %q: %w", s, err)
		}
		v[i] = f
	}
	return NewBounds(v[0], v[1], v[2], v[3]), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
