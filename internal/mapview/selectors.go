package mapview

import (
	"errors"
	"fmt"
	"sync"

	"github.com/couchcryptid/wildfire-globe-service/internal/mapstyle"
)

// ErrUnknownMode is returned for a basemap or overlay name outside the fixed set.
var ErrUnknownMode = errors.New("unknown mode")

// Basemap modes.
const (
	BasemapSatellite = "satellite"
	BasemapRoadmap   = "roadmap"
	BasemapContours  = "contours"
)

// Weather overlay modes.
const (
	OverlayNone = "none"
	OverlayNO2  = "no2"
	OverlayCO   = "co"
	OverlaySO2  = "so2"
	OverlayWind = "wind"
	OverlayTemp = "temp"
)

// basemapLayers is the mutually exclusive layer set. Contours are drawn over satellite.
var basemapLayers = map[string][]string{
	BasemapSatellite: {mapstyle.LayerSatellite},
	BasemapRoadmap:   {mapstyle.LayerOSMRoads},
	BasemapContours:  {mapstyle.LayerSatellite, mapstyle.LayerContours},
}

var basemapAll = []string{mapstyle.LayerSatellite, mapstyle.LayerOSMRoads, mapstyle.LayerContours}

var overlayLayers = map[string][]string{
	OverlayNone: nil,
	OverlayNO2:  {mapstyle.LayerNO2},
	OverlayCO:   {mapstyle.LayerCO},
	OverlaySO2:  {mapstyle.LayerSO2},
	OverlayWind: {mapstyle.LayerWind},
	OverlayTemp: {mapstyle.LayerTemp},
}

var overlayAll = []string{
	mapstyle.LayerNO2, mapstyle.LayerCO, mapstyle.LayerSO2,
	mapstyle.LayerWind, mapstyle.LayerTemp,
}

// BasemapModes lists the selectable basemaps in menu order.
var BasemapModes = []string{BasemapSatellite, BasemapRoadmap, BasemapContours}

// OverlayModes lists the selectable weather overlays in menu order.
var OverlayModes = []string{OverlayNone, OverlayNO2, OverlayCO, OverlaySO2, OverlayWind, OverlayTemp}

// exclusiveSelector hides every layer in a group, then shows the layers
// mapped to the chosen mode. Layers that do not exist yet are skipped.
type exclusiveSelector struct {
	mu      sync.Mutex
	h       Handle
	kind    string
	all     []string
	modes   map[string][]string
	current string
}

func (s *exclusiveSelector) selectMode(mode string) error {
	show, ok := s.modes[mode]
	if !ok {
		return fmt.Errorf("select %s %q: %w", s.kind, mode, ErrUnknownMode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock := s.h.LockFrame()
	defer unlock()

	for _, id := range s.all {
		if err := s.setVisibility(id, mapstyle.VisibilityNone); err != nil {
			return err
		}
	}
	for _, id := range show {
		if err := s.setVisibility(id, mapstyle.VisibilityVisible); err != nil {
			return err
		}
	}
	s.current = mode
	return nil
}

func (s *exclusiveSelector) setVisibility(id, v string) error {
	if !s.h.HasLayer(id) {
		return nil
	}
	if err := s.h.SetLayoutProperty(id, "visibility", v); err != nil {
		return fmt.Errorf("select %s: %w", s.kind, err)
	}
	return nil
}

func (s *exclusiveSelector) mode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// BasemapSelector keeps exactly one basemap mode active.
type BasemapSelector struct {
	sel exclusiveSelector
}

// NewBasemapSelector creates a selector. Call Select to apply a mode.
func NewBasemapSelector(h Handle) *BasemapSelector {
	return &BasemapSelector{sel: exclusiveSelector{
		h: h, kind: "basemap", all: basemapAll, modes: basemapLayers,
	}}
}

// Select applies mode. Unknown modes return ErrUnknownMode and change nothing.
func (b *BasemapSelector) Select(mode string) error { return b.sel.selectMode(mode) }

// Current returns the active mode.
func (b *BasemapSelector) Current() string { return b.sel.mode() }

// OverlaySelector shows at most one weather overlay.
type OverlaySelector struct {
	sel exclusiveSelector
}

// NewOverlaySelector creates a selector with no overlay active.
func NewOverlaySelector(h Handle) *OverlaySelector {
	return &OverlaySelector{sel: exclusiveSelector{
		h: h, kind: "overlay", all: overlayAll, modes: overlayLayers, current: OverlayNone,
	}}
}

// Select applies mode. Unknown modes return ErrUnknownMode and change nothing.
func (o *OverlaySelector) Select(mode string) error { return o.sel.selectMode(mode) }

// Current returns the active overlay.
func (o *OverlaySelector) Current() string { return o.sel.mode() }

// InspectsPoints reports whether the active overlay is one users probe by clicking.
func (o *OverlaySelector) InspectsPoints() bool {
	switch o.Current() {
	case OverlayTemp, OverlayWind:
		return true
	}
	return false
}
