package domain

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceKm(t *testing.T) {
	// One degree of longitude at the equator.
	assert.InDelta(t, 111.19, DistanceKm(orb.Point{0, 0}, orb.Point{1, 0}), 0.05)
	assert.Zero(t, DistanceKm(orb.Point{20.3, 10.5}, orb.Point{20.3, 10.5}))
}

func TestNearest(t *testing.T) {
	records := []FireRecord{
		{Lon: 10, Lat: 10},
		{Lon: 0.5, Lat: 0.5},
		{Lon: -40, Lat: 5},
	}

	idx, km, ok := Nearest(records, orb.Point{0, 0})
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.InDelta(t, 78.6, km, 0.5)

	_, _, ok = Nearest(nil, orb.Point{0, 0})
	assert.False(t, ok)
}

func TestDestinationPoint(t *testing.T) {
	t.Run("north", func(t *testing.T) {
		p := DestinationPoint(orb.Point{0, 0}, 0, 111.19)
		assert.InDelta(t, 1.0, p.Lat(), 0.001)
		assert.InDelta(t, 0.0, p.Lon(), 1e-9)
	})

	t.Run("east", func(t *testing.T) {
		p := DestinationPoint(orb.Point{0, 0}, 90, 111.19)
		assert.InDelta(t, 1.0, p.Lon(), 0.001)
		assert.InDelta(t, 0.0, p.Lat(), 1e-9)
	})

	t.Run("wraps across the antimeridian", func(t *testing.T) {
		p := DestinationPoint(orb.Point{179.9, 0}, 90, 111.19)
		assert.InDelta(t, -179.1, p.Lon(), 0.01)
	})
}

func TestPredictSpread(t *testing.T) {
	t.Run("rate is ten percent of wind", func(t *testing.T) {
		cone := PredictSpread(orb.Point{0, 0}, 20, 0)

		assert.InDelta(t, 2.0, cone.ROSKmh, 1e-9)
		assert.InDelta(t, 2.0, cone.DistanceKm, 1e-9)
		assert.InDelta(t, 1.1547, cone.AreaRiskKm2, 1e-4)
		assert.InDelta(t, 2.0, DistanceKm(cone.Origin, cone.Head), 1e-6)
		assert.Greater(t, cone.Head.Lat(), 0.0)
		assert.Equal(t, "Predicted spread 2.00km @ 0 deg in 1 hr", cone.Message)
	})

	t.Run("calm wind uses the floor rate", func(t *testing.T) {
		cone := PredictSpread(orb.Point{0, 0}, 0, 45)
		assert.InDelta(t, 0.1, cone.ROSKmh, 1e-9)
	})

	t.Run("bearing is normalized", func(t *testing.T) {
		assert.InDelta(t, 270.0, PredictSpread(orb.Point{0, 0}, 10, -90).BearingDeg, 1e-9)
		assert.InDelta(t, 45.0, PredictSpread(orb.Point{0, 0}, 10, 405).BearingDeg, 1e-9)
	})
}

func TestMetersPerSecondToKmh(t *testing.T) {
	assert.InDelta(t, 36.0, MetersPerSecondToKmh(10), 1e-9)
}
