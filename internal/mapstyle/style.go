// Package mapstyle declares the MapLibre style document served to map clients:
// the base tile sources and layers, the supplementary overlays added after
// load, and the fire hotspot layers.
package mapstyle

import (
	"fmt"
	"net/url"
)

// Layer visibility values.
const (
	VisibilityVisible = "visible"
	VisibilityNone    = "none"
)

// Projection types.
const (
	ProjectionGlobe    = "globe"
	ProjectionMercator = "mercator"
)

// Base source and layer identifiers.
const (
	SourceSatellite = "satellite"
	SourceTerrain   = "terrainSource"
	SourceOSMRoads  = "osmRoads"
	SourceContours  = "contours"

	LayerSatellite = "satellite"
	LayerOSMRoads  = "osm-roads"
	LayerContours  = "contours-layer"
)

// Style is a MapLibre style document (version 8).
type Style struct {
	Version    int               `json:"version"`
	Name       string            `json:"name,omitempty"`
	Center     []float64         `json:"center,omitempty"`
	Zoom       float64           `json:"zoom"`
	Pitch      float64           `json:"pitch"`
	Bearing    float64           `json:"bearing"`
	Sources    map[string]Source `json:"sources"`
	Layers     []Layer           `json:"layers"`
	Terrain    *Terrain          `json:"terrain,omitempty"`
	Projection *Projection       `json:"projection,omitempty"`
}

// Source is a tile or GeoJSON data source.
type Source struct {
	Type        string   `json:"type"`
	Tiles       []string `json:"tiles,omitempty"`
	TileSize    int      `json:"tileSize,omitempty"`
	MaxZoom     int      `json:"maxzoom,omitempty"`
	Encoding    string   `json:"encoding,omitempty"`
	Attribution string   `json:"attribution,omitempty"`
	Data        any      `json:"data,omitempty"`
}

// Layer draws one source.
type Layer struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Source string         `json:"source,omitempty"`
	Layout map[string]any `json:"layout,omitempty"`
	Paint  map[string]any `json:"paint,omitempty"`
}

// Visible reports whether the layer is drawn. An absent visibility property means visible.
func (l Layer) Visible() bool {
	v, ok := l.Layout["visibility"]
	return !ok || v == VisibilityVisible
}

// Terrain renders elevation from a raster-dem source.
type Terrain struct {
	Source       string  `json:"source"`
	Exaggeration float64 `json:"exaggeration"`
}

// Projection selects how the map surface is drawn.
type Projection struct {
	Type string `json:"type"`
}

// Options sets the view parameters of the bootstrap style.
type Options struct {
	Center              [2]float64 // lng, lat
	Zoom                float64
	Pitch               float64
	TerrainExaggeration float64
}

// Bootstrap returns the initial style: four base sources, three base layers
// with only satellite visible, terrain, and the globe projection.
func Bootstrap(opts Options) Style {
	return Style{
		Version: 8,
		Name:    "wildfire-globe",
		Center:  []float64{opts.Center[0], opts.Center[1]},
		Zoom:    opts.Zoom,
		Pitch:   opts.Pitch,
		Bearing: 0,
		Sources: map[string]Source{
			SourceSatellite: {
				Type:        "raster",
				Tiles:       []string{"https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}"},
				TileSize:    256,
				MaxZoom:     17,
				Attribution: "Esri, Maxar, Earthstar Geographics",
			},
			SourceTerrain: {
				Type:        "raster-dem",
				Tiles:       []string{"https://s3.amazonaws.com/elevation-tiles-prod/terrarium/{z}/{x}/{y}.png"},
				Encoding:    "terrarium",
				TileSize:    256,
				MaxZoom:     15,
				Attribution: "AWS Terrain Tiles",
			},
			SourceOSMRoads: {
				Type:        "raster",
				Tiles:       []string{"https://tile.openstreetmap.org/{z}/{x}/{y}.png"},
				TileSize:    256,
				MaxZoom:     18,
				Attribution: "© OpenStreetMap contributors",
			},
			SourceContours: {
				Type: "raster",
				Tiles: []string{
					"https://a.tile.opentopomap.org/{z}/{x}/{y}.png",
					"https://b.tile.opentopomap.org/{z}/{x}/{y}.png",
					"https://c.tile.opentopomap.org/{z}/{x}/{y}.png",
				},
				TileSize:    256,
				MaxZoom:     15,
				Attribution: "© OpenTopoMap",
			},
		},
		Layers: []Layer{
			{ID: LayerSatellite, Type: "raster", Source: SourceSatellite},
			{ID: LayerOSMRoads, Type: "raster", Source: SourceOSMRoads, Layout: hidden()},
			{
				ID:     LayerContours,
				Type:   "raster",
				Source: SourceContours,
				Layout: hidden(),
				Paint:  map[string]any{"raster-opacity": 1.0},
			},
		},
		Terrain:    DefaultTerrain(opts.TerrainExaggeration),
		Projection: &Projection{Type: ProjectionGlobe},
	}
}

// DefaultTerrain returns the terrain descriptor over the AWS terrarium source.
func DefaultTerrain(exaggeration float64) *Terrain {
	return &Terrain{Source: SourceTerrain, Exaggeration: exaggeration}
}

func hidden() map[string]any {
	return map[string]any{"visibility": VisibilityNone}
}

// openWeatherTiles builds an OpenWeatherMap tile template for a map layer
// such as "wind_new".
func openWeatherTiles(layer, key string) []string {
	return []string{fmt.Sprintf("https://tile.openweathermap.org/map/%s/{z}/{x}/{y}.png?appid=%s", layer, url.QueryEscape(key))}
}
