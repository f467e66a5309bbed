package mapview

import (
	"fmt"
	"sync"

	"github.com/paulmach/orb"
)

// Cursor affordances.
const (
	CursorDefault   = ""
	CursorCrosshair = "crosshair"
	CursorPointer   = "pointer"
)

// CoordinateReadout mirrors the pointer position into a status line.
type CoordinateReadout struct {
	h       Handle
	overlay *OverlaySelector

	mu   sync.Mutex
	text string
}

// NewCoordinateReadout creates a readout. overlay decides the cursor.
func NewCoordinateReadout(h Handle, overlay *OverlaySelector) *CoordinateReadout {
	return &CoordinateReadout{h: h, overlay: overlay}
}

// PointerMove formats the position to six decimals, stores it, and sets a
// crosshair cursor while a temperature or wind overlay is active.
func (r *CoordinateReadout) PointerMove(at orb.Point) string {
	text := FormatCoords(at)

	r.mu.Lock()
	r.text = text
	r.mu.Unlock()

	if r.overlay != nil && r.overlay.InspectsPoints() {
		r.h.SetCursor(CursorCrosshair)
	} else {
		r.h.SetCursor(CursorDefault)
	}
	return text
}

// Text returns the last rendered line.
func (r *CoordinateReadout) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text
}

// FormatCoords renders a [lon, lat] point as "Lat: x | Lng: y".
func FormatCoords(at orb.Point) string {
	return fmt.Sprintf("Lat: %.6f | Lng: %.6f", at.Lat(), at.Lon())
}
