package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Fallbacks applied when the client payload omits the default view.
const (
	FallbackLng  = 75.0
	FallbackLat  = 20.0
	FallbackZoom = 2.0

	// MaxZoom is the deepest zoom level the map allows.
	MaxZoom = 22.0
)

// ClientConfig is the flat payload served at /config and loaded by map
// clients before anything else initializes. Optional keys may be absent.
type ClientConfig struct {
	FirmsMapKey    string    `json:"FIRMS_MAP_KEY"`
	OpenWeatherKey string    `json:"OPENWEATHER_KEY"`
	DefaultCenter  []float64 `json:"DEFAULT_CENTER,omitempty"` // [lng, lat]
	DefaultZoom    *float64  `json:"DEFAULT_ZOOM,omitempty"`
}

// Center returns the default view center, falling back to (75, 20).
func (c ClientConfig) Center() (lng, lat float64) {
	if len(c.DefaultCenter) != 2 {
		return FallbackLng, FallbackLat
	}
	return c.DefaultCenter[0], c.DefaultCenter[1]
}

// Zoom returns the default zoom, falling back to 2.
func (c ClientConfig) Zoom() float64 {
	if c.DefaultZoom == nil {
		return FallbackZoom
	}
	return *c.DefaultZoom
}

// FireOverlayEnabled reports whether a hotspot API key is present.
func (c ClientConfig) FireOverlayEnabled() bool { return c.FirmsMapKey != "" }

// WeatherEnabled reports whether a weather API key is present.
func (c ClientConfig) WeatherEnabled() bool { return c.OpenWeatherKey != "" }

// Fetch issues one GET for the client payload. A non-2xx status or an
// undecodable body is an error; callers must abort initialization.
func Fetch(ctx context.Context, client *http.Client, url string) (*ClientConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create config request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("config request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		return nil, fmt.Errorf("config request failed: status %d", resp.StatusCode)
	}

	var cc ClientConfig
	if err := json.NewDecoder(resp.Body).Decode(&cc); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if len(cc.DefaultCenter) != 0 && len(cc.DefaultCenter) != 2 {
		return nil, fmt.Errorf("decode config: DEFAULT_CENTER must be [lng, lat], got %d values", len(cc.DefaultCenter))
	}
	return &cc, nil
}
