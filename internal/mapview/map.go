// Package mapview holds the server-side model of the map instance and the
// components that mutate it: the layer registry, projection toggle, basemap
// and overlay selectors, and the coordinate readout.
package mapview

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/couchcryptid/wildfire-globe-service/internal/domain"
	"github.com/couchcryptid/wildfire-globe-service/internal/mapstyle"
)

// maxPopups bounds how many popups the handle remembers.
const maxPopups = 64

var (
	ErrSourceExists = errors.New("source already exists")
	ErrLayerExists  = errors.New("layer already exists")
	ErrNoSource     = errors.New("source does not exist")
	ErrNoLayer      = errors.New("layer does not exist")
	ErrNoPopup      = errors.New("popup does not exist")
)

// Handle is the set of map operations components perform. Every component
// receives the handle explicitly at construction.
type Handle interface {
	HasSource(id string) bool
	HasLayer(id string) bool
	AddSource(id string, src mapstyle.Source) error
	AddLayer(layer mapstyle.Layer, before string) error
	MoveLayer(id, before string) error
	SetLayoutProperty(layerID, name string, value any) error
	SetSourceData(id string, data any) error
	SetProjection(projection string)
	SetTerrain(t *mapstyle.Terrain)
	EaseTo(c CameraOptions)
	SetCursor(cursor string)
	AddControl(c Control)
	OpenPopup(at orb.Point, html string) string
	SetPopupHTML(id, html string) error
	Bounds() orb.Bound
	WhenLoaded(fn func() error) error

	// LockFrame holds back snapshot readers until the returned func is
	// called, so a multi-step change is observed as one.
	LockFrame() (unlock func())
}

// Camera is the current view.
type Camera struct {
	Center  orb.Point `json:"center"`
	Zoom    float64   `json:"zoom"`
	Pitch   float64   `json:"pitch"`
	Bearing float64   `json:"bearing"`
	MaxZoom float64   `json:"max_zoom"`
}

// CameraOptions are the fields an ease changes. Nil fields keep their value.
type CameraOptions struct {
	Center  *orb.Point
	Zoom    *float64
	Pitch   *float64
	Bearing *float64
}

// Control is a map-native control placed in a corner.
type Control struct {
	Kind     string `json:"kind"`
	Position string `json:"position"`
}

// Popup is an HTML popup anchored at a coordinate.
type Popup struct {
	ID     string    `json:"id"`
	LngLat orb.Point `json:"lng_lat"`
	HTML   string    `json:"html"`
}

// Map is the in-memory map instance. Each operation is atomic; multi-step
// changes use LockFrame.
type Map struct {
	frame sync.RWMutex
	mu    sync.RWMutex

	style    mapstyle.Style
	camera   Camera
	bounds   orb.Bound
	cursor   string
	controls []Control

	popups     map[string]*Popup
	popupOrder []string

	loaded bool
	onLoad []func() error
}

var _ Handle = (*Map)(nil)

// New constructs the map from a bootstrap style. The camera starts at the
// style's center, zoom, pitch, and bearing.
func New(style mapstyle.Style, maxZoom float64) *Map {
	var center orb.Point
	if len(style.Center) == 2 {
		center = orb.Point{style.Center[0], style.Center[1]}
	}
	if style.Sources == nil {
		style.Sources = map[string]mapstyle.Source{}
	}
	return &Map{
		style: style,
		camera: Camera{
			Center:  center,
			Zoom:    style.Zoom,
			Pitch:   style.Pitch,
			Bearing: style.Bearing,
			MaxZoom: maxZoom,
		},
		bounds: domain.WorldBounds,
		popups: make(map[string]*Popup),
	}
}

// WhenLoaded runs fn once the map has loaded, immediately if it already has.
func (m *Map) WhenLoaded(fn func() error) error {
	m.mu.Lock()
	if !m.loaded {
		m.onLoad = append(m.onLoad, fn)
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()
	return fn()
}

// MarkLoaded signals load and runs the queued callbacks in registration
// order. Callback errors are joined.
func (m *Map) MarkLoaded() error {
	m.mu.Lock()
	if m.loaded {
		m.mu.Unlock()
		return nil
	}
	m.loaded = true
	pending := m.onLoad
	m.onLoad = nil
	m.mu.Unlock()

	var errs []error
	for _, fn := range pending {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Loaded reports whether MarkLoaded has run.
func (m *Map) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

func (m *Map) LockFrame() func() {
	m.frame.Lock()
	return m.frame.Unlock
}

func (m *Map) HasSource(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.style.Sources[id]
	return ok
}

func (m *Map) HasLayer(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.layerIndex(id) >= 0
}

func (m *Map) AddSource(id string, src mapstyle.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.style.Sources[id]; ok {
		return fmt.Errorf("add source %q: %w", id, ErrSourceExists)
	}
	m.style.Sources[id] = src
	return nil
}

// AddLayer appends the layer, or inserts it below before when that layer exists.
func (m *Map) AddLayer(layer mapstyle.Layer, before string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.layerIndex(layer.ID) >= 0 {
		return fmt.Errorf("add layer %q: %w", layer.ID, ErrLayerExists)
	}
	if layer.Source != "" {
		if _, ok := m.style.Sources[layer.Source]; !ok {
			return fmt.Errorf("add layer %q: %w: %s", layer.ID, ErrNoSource, layer.Source)
		}
	}
	layer.Layout = maps.Clone(layer.Layout)
	m.insertLayer(layer, before)
	return nil
}

// MoveLayer moves id directly below before, or to the top when before is empty.
func (m *Map) MoveLayer(id, before string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.layerIndex(id)
	if i < 0 {
		return fmt.Errorf("move layer %q: %w", id, ErrNoLayer)
	}
	if before != "" && m.layerIndex(before) < 0 {
		return fmt.Errorf("move layer %q before %q: %w", id, before, ErrNoLayer)
	}
	layer := m.style.Layers[i]
	m.style.Layers = slices.Delete(m.style.Layers, i, i+1)
	m.insertLayer(layer, before)
	return nil
}

func (m *Map) SetLayoutProperty(layerID, name string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.layerIndex(layerID)
	if i < 0 {
		return fmt.Errorf("set %s on %q: %w", name, layerID, ErrNoLayer)
	}
	if m.style.Layers[i].Layout == nil {
		m.style.Layers[i].Layout = map[string]any{}
	}
	m.style.Layers[i].Layout[name] = value
	return nil
}

// SetSourceData replaces a GeoJSON source's data in place.
func (m *Map) SetSourceData(id string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.style.Sources[id]
	if !ok {
		return fmt.Errorf("set data on %q: %w", id, ErrNoSource)
	}
	src.Data = data
	m.style.Sources[id] = src
	return nil
}

func (m *Map) SetProjection(projection string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.style.Projection = &mapstyle.Projection{Type: projection}
}

// SetTerrain enables terrain, or removes it when t is nil.
func (m *Map) SetTerrain(t *mapstyle.Terrain) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t == nil {
		m.style.Terrain = nil
		return
	}
	cp := *t
	m.style.Terrain = &cp
}

func (m *Map) EaseTo(c CameraOptions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.Center != nil {
		m.camera.Center = *c.Center
	}
	if c.Zoom != nil {
		m.camera.Zoom = min(*c.Zoom, m.camera.MaxZoom)
	}
	if c.Pitch != nil {
		m.camera.Pitch = *c.Pitch
	}
	if c.Bearing != nil {
		m.camera.Bearing = *c.Bearing
	}
}

func (m *Map) SetCursor(cursor string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursor = cursor
}

func (m *Map) AddControl(c Control) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.controls = append(m.controls, c)
}

// OpenPopup shows html at a coordinate and returns the popup id. The oldest
// popup is forgotten once maxPopups are open.
func (m *Map) OpenPopup(at orb.Point, html string) string {
	id := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.popups[id] = &Popup{ID: id, LngLat: at, HTML: html}
	m.popupOrder = append(m.popupOrder, id)
	if len(m.popupOrder) > maxPopups {
		delete(m.popups, m.popupOrder[0])
		m.popupOrder = m.popupOrder[1:]
	}
	return id
}

func (m *Map) SetPopupHTML(id, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.popups[id]
	if !ok {
		return fmt.Errorf("popup %q: %w", id, ErrNoPopup)
	}
	p.HTML = html
	return nil
}

// Popup returns a copy of an open popup.
func (m *Map) Popup(id string) (Popup, bool) {
	m.frame.RLock()
	defer m.frame.RUnlock()
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.popups[id]
	if !ok {
		return Popup{}, false
	}
	return *p, true
}

func (m *Map) Bounds() orb.Bound {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bounds
}

// SetBounds records the viewport the client reports after the camera settles.
func (m *Map) SetBounds(b orb.Bound) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bounds = b
}

// Snapshot is a consistent copy of the map state.
type Snapshot struct {
	Style    mapstyle.Style `json:"style"`
	Camera   Camera         `json:"camera"`
	Bounds   orb.Bound      `json:"-"`
	Cursor   string         `json:"cursor"`
	Controls []Control      `json:"controls"`
	Loaded   bool           `json:"loaded"`
}

// Snapshot copies the current state. It waits for any LockFrame holder.
func (m *Map) Snapshot() Snapshot {
	m.frame.RLock()
	defer m.frame.RUnlock()
	m.mu.RLock()
	defer m.mu.RUnlock()

	style := m.style
	style.Sources = maps.Clone(m.style.Sources)
	style.Layers = make([]mapstyle.Layer, len(m.style.Layers))
	for i, l := range m.style.Layers {
		l.Layout = maps.Clone(l.Layout)
		style.Layers[i] = l
	}
	if m.style.Terrain != nil {
		t := *m.style.Terrain
		style.Terrain = &t
	}
	if m.style.Projection != nil {
		p := *m.style.Projection
		style.Projection = &p
	}

	// The served style opens where the camera currently is.
	style.Center = []float64{m.camera.Center.Lon(), m.camera.Center.Lat()}
	style.Zoom = m.camera.Zoom
	style.Pitch = m.camera.Pitch
	style.Bearing = m.camera.Bearing

	return Snapshot{
		Style:    style,
		Camera:   m.camera,
		Bounds:   m.bounds,
		Cursor:   m.cursor,
		Controls: slices.Clone(m.controls),
		Loaded:   m.loaded,
	}
}

// Layer returns a copy of a layer in the current snapshot.
func (s Snapshot) Layer(id string) (mapstyle.Layer, bool) {
	for _, l := range s.Style.Layers {
		if l.ID == id {
			return l, true
		}
	}
	return mapstyle.Layer{}, false
}

// VisibleLayers lists visible layer ids in draw order.
func (s Snapshot) VisibleLayers() []string {
	var ids []string
	for _, l := range s.Style.Layers {
		if l.Visible() {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

// layerIndex requires m.mu.
func (m *Map) layerIndex(id string) int {
	return slices.IndexFunc(m.style.Layers, func(l mapstyle.Layer) bool { return l.ID == id })
}

// insertLayer requires m.mu held for writing.
func (m *Map) insertLayer(layer mapstyle.Layer, before string) {
	if i := m.layerIndex(before); before != "" && i >= 0 {
		m.style.Layers = slices.Insert(m.style.Layers, i, layer)
		return
	}
	m.style.Layers = append(m.style.Layers, layer)
}
