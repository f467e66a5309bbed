package mapstyle

// Supplementary source and layer identifiers.
const (
	SourceSentinel2   = "sentinel-2-source"
	SourceGasBase     = "gas-base"
	SourceWeatherWind = "weather-wind"
	SourceWeatherTemp = "weather-temp"

	LayerSentinel2 = "sentinel-2"
	LayerNO2       = "no2-layer"
	LayerCO        = "co-layer"
	LayerSO2       = "so2-layer"
	LayerWind      = "wind-layer"
	LayerTemp      = "temp-layer"
	LayerSky       = "sky"
)

const (
	gasOpacity     = 0.55
	weatherOpacity = 0.6
)

// Supplement is one source and the layers drawn from it, added after the
// base map has loaded. Layers with Source == "" (sky) have no SourceID.
type Supplement struct {
	SourceID string
	Source   Source
	Layers   []Layer

	// Below places the layers under this layer when it exists.
	Below string

	// NeedsWeatherKey marks OpenWeatherMap tile overlays.
	NeedsWeatherKey bool
}

// Supplements returns the post-load additions in insertion order. All
// layers start hidden except the sky effect. weatherKey is embedded in
// OpenWeatherMap tile URLs.
func Supplements(weatherKey string) []Supplement {
	return []Supplement{
		{
			SourceID: SourceSentinel2,
			Source: Source{
				Type:        "raster",
				Tiles:       []string{"https://tiles.maps.eox.at/wmts/1.0.0/s2cloudless-2021_3857/default/g/{z}/{y}/{x}.jpg"},
				TileSize:    256,
				MaxZoom:     14,
				Attribution: "Sentinel-2 Cloudless (EOX)",
			},
			Layers: []Layer{{
				ID:     LayerSentinel2,
				Type:   "raster",
				Source: SourceSentinel2,
				Layout: hidden(),
				Paint:  map[string]any{"raster-opacity": 1.0},
			}},
			Below: LayerOSMRoads,
		},
		{
			SourceID: SourceGasBase,
			Source: Source{
				Type:     "raster",
				Tiles:    openWeatherTiles("pressure_new", weatherKey),
				TileSize: 256,
			},
			Layers: []Layer{
				gasLayer(LayerNO2, 160),
				gasLayer(LayerCO, 80),
				gasLayer(LayerSO2, 220),
			},
			NeedsWeatherKey: true,
		},
		{
			SourceID:        SourceWeatherWind,
			Source:          Source{Type: "raster", Tiles: openWeatherTiles("wind_new", weatherKey), TileSize: 256},
			Layers:          []Layer{weatherLayer(LayerWind, SourceWeatherWind)},
			NeedsWeatherKey: true,
		},
		{
			SourceID:        SourceWeatherTemp,
			Source:          Source{Type: "raster", Tiles: openWeatherTiles("temp_new", weatherKey), TileSize: 256},
			Layers:          []Layer{weatherLayer(LayerTemp, SourceWeatherTemp)},
			NeedsWeatherKey: true,
		},
		{
			Layers: []Layer{{
				ID:   LayerSky,
				Type: "sky",
				Paint: map[string]any{
					"sky-type":                     "atmosphere",
					"sky-atmosphere-sun":           []float64{0, 0},
					"sky-atmosphere-sun-intensity": 15.0,
				},
			}},
		},
	}
}

// gasLayer tints the shared gas tiles with a fixed hue rotation.
func gasLayer(id string, hue float64) Layer {
	return Layer{
		ID:     id,
		Type:   "raster",
		Source: SourceGasBase,
		Layout: hidden(),
		Paint:  map[string]any{"raster-opacity": gasOpacity, "raster-hue-rotate": hue},
	}
}

func weatherLayer(id, source string) Layer {
	return Layer{
		ID:     id,
		Type:   "raster",
		Source: source,
		Layout: hidden(),
		Paint:  map[string]any{"raster-opacity": weatherOpacity},
	}
}
