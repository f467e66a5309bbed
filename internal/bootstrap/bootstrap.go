// Package bootstrap runs the ordered initialization sequence that brings up
// the map and its components. Each step reads what earlier steps stored in
// the shared State; the first failing step aborts the sequence.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/wildfire-globe-service/internal/config"
	"github.com/couchcryptid/wildfire-globe-service/internal/domain"
	"github.com/couchcryptid/wildfire-globe-service/internal/mapstyle"
	"github.com/couchcryptid/wildfire-globe-service/internal/mapview"
	"github.com/couchcryptid/wildfire-globe-service/internal/observability"
	"github.com/couchcryptid/wildfire-globe-service/internal/pipeline"
)

// Step is one stage of initialization.
type Step struct {
	Name string
	Run  func(ctx context.Context, s *State) error
}

// State accumulates the outputs of completed steps.
type State struct {
	Client    *config.ClientConfig
	Map       *mapview.Map
	Controls  *mapview.Controls
	Fires     *pipeline.FireOverlay
	Inspector *pipeline.Inspector
}

// Deps are the collaborators the default steps need. The adapter
// constructors receive the keys from the loaded client configuration and
// are only called when that key is present.
type Deps struct {
	LoadConfig func(ctx context.Context) (*config.ClientConfig, error)
	NewFetcher func(firmsKey string) pipeline.HotspotFetcher
	NewWeather func(weatherKey string) domain.WeatherSource

	Sinks               []pipeline.HotspotSink
	Fire                pipeline.FireOptions
	GlobePitch          float64
	TerrainExaggeration float64

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Run executes steps in order. It returns the state and the first error,
// wrapped with the failing step's name; later steps do not run.
func Run(ctx context.Context, steps []Step, logger *slog.Logger) (*State, error) {
	s := &State{}
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return s, fmt.Errorf("bootstrap step %q: %w", step.Name, err)
		}
		start := time.Now()
		if err := step.Run(ctx, s); err != nil {
			logger.Error("bootstrap step failed", "step", step.Name, "index", i+1, "error", err)
			return s, fmt.Errorf("bootstrap step %q: %w", step.Name, err)
		}
		logger.Debug("bootstrap step done", "step", step.Name, "index", i+1, "duration", time.Since(start))
	}
	logger.Info("bootstrap complete", "steps", len(steps))
	return s, nil
}

// DefaultSteps is the full sequence: configuration, map, layer registry,
// view controls, fire overlay, point inspector, and finally the load signal
// that releases everything waiting on the map.
func DefaultSteps(d Deps) []Step {
	return []Step{
		{Name: "config", Run: func(ctx context.Context, s *State) error {
			cc, err := d.LoadConfig(ctx)
			if err != nil {
				return err
			}
			s.Client = cc
			return nil
		}},
		{Name: "map", Run: func(_ context.Context, s *State) error {
			lng, lat := s.Client.Center()
			style := mapstyle.Bootstrap(mapstyle.Options{
				Center:              [2]float64{lng, lat},
				Zoom:                s.Client.Zoom(),
				Pitch:               d.GlobePitch,
				TerrainExaggeration: d.TerrainExaggeration,
			})
			s.Map = mapview.New(style, config.MaxZoom)
			return nil
		}},
		{Name: "layers", Run: func(_ context.Context, s *State) error {
			return mapview.RegisterLayers(s.Map, s.Client.OpenWeatherKey, d.Logger)
		}},
		{Name: "controls", Run: func(_ context.Context, s *State) error {
			c, err := mapview.InstallControls(s.Map, mapview.ControlsOptions{
				Terrain: *mapstyle.DefaultTerrain(d.TerrainExaggeration),
				Pitch3D: d.GlobePitch,
			})
			if err != nil {
				return err
			}
			s.Controls = c
			return nil
		}},
		{Name: "fires", Run: func(_ context.Context, s *State) error {
			var fetcher pipeline.HotspotFetcher
			if s.Client.FireOverlayEnabled() {
				fetcher = d.NewFetcher(s.Client.FirmsMapKey)
			}
			s.Fires = pipeline.NewFireOverlay(fetcher, s.Map, d.Fire, d.Sinks, d.Logger, d.Metrics)
			return nil
		}},
		{Name: "inspector", Run: func(_ context.Context, s *State) error {
			var source domain.WeatherSource
			if s.Client.WeatherEnabled() {
				source = d.NewWeather(s.Client.OpenWeatherKey)
			}
			s.Inspector = pipeline.NewInspector(source, s.Map, s.Fires, d.Logger, d.Metrics)
			return nil
		}},
		{Name: "load", Run: func(_ context.Context, s *State) error {
			return s.Map.MarkLoaded()
		}},
	}
}
