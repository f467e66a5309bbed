package mapview

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/wildfire-globe-service/internal/domain"
	"github.com/couchcryptid/wildfire-globe-service/internal/mapstyle"
)

// Map-native control kinds.
const (
	ControlNavigation = "navigation"
	ControlScale      = "scale"
	ControlFullscreen = "fullscreen"
)

// ControlsOptions configures InstallControls.
type ControlsOptions struct {
	Terrain mapstyle.Terrain
	Pitch3D float64
}

// Controls groups the interactive view components.
type Controls struct {
	Projection *ProjectionToggle
	Basemap    *BasemapSelector
	Overlay    *OverlaySelector
	Readout    *CoordinateReadout
}

// ViewState is the client-facing summary of the view.
type ViewState struct {
	Projection  string    `json:"projection"`
	Is3D        bool      `json:"is_3d"`
	ToggleLabel string    `json:"toggle_label"`
	Pitch       float64   `json:"pitch"`
	Bearing     float64   `json:"bearing"`
	Center      orb.Point `json:"center"`
	Zoom        float64   `json:"zoom"`
	Terrain     bool      `json:"terrain"`
	Basemap     string    `json:"basemap"`
	Overlay     string    `json:"overlay"`
	Visible     []string  `json:"visible_layers"`
	Cursor      string    `json:"cursor"`
	Readout     string    `json:"readout"`
	Bounds      string    `json:"bbox"`
}

// InstallControls adds the navigation, scale, and fullscreen controls,
// builds the toggle and selectors, and applies the satellite basemap.
func InstallControls(h Handle, opts ControlsOptions) (*Controls, error) {
	h.AddControl(Control{Kind: ControlNavigation, Position: "top-right"})
	h.AddControl(Control{Kind: ControlScale, Position: "bottom-left"})
	h.AddControl(Control{Kind: ControlFullscreen, Position: "top-right"})

	overlay := NewOverlaySelector(h)
	c := &Controls{
		Projection: NewProjectionToggle(h, opts.Terrain, opts.Pitch3D),
		Basemap:    NewBasemapSelector(h),
		Overlay:    overlay,
		Readout:    NewCoordinateReadout(h, overlay),
	}
	if err := c.Basemap.Select(BasemapSatellite); err != nil {
		return nil, fmt.Errorf("install controls: %w", err)
	}
	return c, nil
}

// View summarizes the map and control state.
func (c *Controls) View(m *Map) ViewState {
	snap := m.Snapshot()

	v := ViewState{
		Is3D:        c.Projection.Is3D(),
		ToggleLabel: c.Projection.Label(),
		Pitch:       snap.Camera.Pitch,
		Bearing:     snap.Camera.Bearing,
		Center:      snap.Camera.Center,
		Zoom:        snap.Camera.Zoom,
		Terrain:     snap.Style.Terrain != nil,
		Basemap:     c.Basemap.Current(),
		Overlay:     c.Overlay.Current(),
		Visible:     snap.VisibleLayers(),
		Cursor:      snap.Cursor,
		Readout:     c.Readout.Text(),
		Bounds:      domain.FormatBBox(snap.Bounds),
	}
	if snap.Style.Projection != nil {
		v.Projection = snap.Style.Projection.Type
	}
	return v
}
