package mapview

import (
	"sync"

	"github.com/couchcryptid/wildfire-globe-service/internal/mapstyle"
)

// Toggle button labels name the mode a press switches to.
const (
	Label2D = "2D"
	Label3D = "3D"
)

// ProjectionToggle switches between 3D (globe, terrain, pitched) and 2D
// (mercator, no terrain, flat and north-up). It starts in 3D.
type ProjectionToggle struct {
	mu      sync.Mutex
	h       Handle
	terrain mapstyle.Terrain
	pitch3D float64
	is3D    bool
}

// NewProjectionToggle creates a toggle that restores terrain and pitch3D on
// return to 3D.
func NewProjectionToggle(h Handle, terrain mapstyle.Terrain, pitch3D float64) *ProjectionToggle {
	return &ProjectionToggle{h: h, terrain: terrain, pitch3D: pitch3D, is3D: true}
}

// Toggle performs one transition and reports whether the map is now 3D.
// Concurrent calls are serialized; each sees the state the previous left.
func (t *ProjectionToggle) Toggle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	unlock := t.h.LockFrame()
	defer unlock()

	if t.is3D {
		t.h.SetProjection(mapstyle.ProjectionMercator)
		t.h.SetTerrain(nil)
		zero := 0.0
		t.h.EaseTo(CameraOptions{Pitch: &zero, Bearing: &zero})
	} else {
		t.h.SetProjection(mapstyle.ProjectionGlobe)
		terrain := t.terrain
		t.h.SetTerrain(&terrain)
		pitch := t.pitch3D
		t.h.EaseTo(CameraOptions{Pitch: &pitch})
	}
	t.is3D = !t.is3D
	return t.is3D
}

// Is3D reports the current state.
func (t *ProjectionToggle) Is3D() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.is3D
}

// Label is the button text: "2D" while in 3D, "3D" while in 2D.
func (t *ProjectionToggle) Label() string {
	if t.Is3D() {
		return Label2D
	}
	return Label3D
}
