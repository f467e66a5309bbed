package mapstyle

import (
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/wildfire-globe-service/internal/domain"
)

// Fire hotspot source and layer identifiers.
const (
	SourceFire      = "fire-source"
	LayerFireGlow   = "fire-glow"
	LayerFirePoints = "fire-points"
)

// Intensity color ramp breakpoints in MW.
var fireColorStops = []any{
	0, "#ffff00",
	50, "#ffa500",
	150, "#ff4500",
	300, "#ff0000",
}

// FireSource wraps hotspot features in a GeoJSON source.
func FireSource(fc *geojson.FeatureCollection) Source {
	return Source{Type: "geojson", Data: fc}
}

// FireLayers returns the glow layer followed by the sharp point layer.
// Radius grows with zoom and with intensity; color ramps yellow to red.
func FireLayers() []Layer {
	return []Layer{
		{
			ID:     LayerFireGlow,
			Type:   "circle",
			Source: SourceFire,
			Paint: map[string]any{
				"circle-radius":  fireRadius([3]float64{3, 8, 15}, [3]float64{8, 20, 40}),
				"circle-color":   fireColor(),
				"circle-blur":    1.0,
				"circle-opacity": 0.5,
			},
		},
		{
			ID:     LayerFirePoints,
			Type:   "circle",
			Source: SourceFire,
			Paint: map[string]any{
				"circle-radius":       fireRadius([3]float64{2, 5, 10}, [3]float64{5, 12, 25}),
				"circle-color":        fireColor(),
				"circle-stroke-width": 1.0,
				"circle-stroke-color": "#fff",
			},
		},
	}
}

// fireRadius interpolates over zoom 2 and 8; at each zoom the radius
// interpolates over intensity 0, 100, 500.
func fireRadius(atZoom2, atZoom8 [3]float64) []any {
	byIntensity := func(r [3]float64) []any {
		return []any{"interpolate", []any{"linear"}, []any{"get", domain.PropIntensity}, 0, r[0], 100, r[1], 500, r[2]}
	}
	return []any{
		"interpolate", []any{"linear"}, []any{"zoom"},
		2, byIntensity(atZoom2),
		8, byIntensity(atZoom8),
	}
}

func fireColor() []any {
	return append([]any{"interpolate", []any{"linear"}, []any{"get", domain.PropIntensity}}, fireColorStops...)
}
