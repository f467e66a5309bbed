// Package pipeline runs the fire overlay ETL and the point inspector against
// the map handle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/wildfire-globe-service/internal/debounce"
	"github.com/couchcryptid/wildfire-globe-service/internal/domain"
	"github.com/couchcryptid/wildfire-globe-service/internal/mapstyle"
	"github.com/couchcryptid/wildfire-globe-service/internal/mapview"
	"github.com/couchcryptid/wildfire-globe-service/internal/observability"
)

// ErrDisabled is returned by operations whose API key is not configured.
var ErrDisabled = errors.New("disabled: no API key configured")

// ErrNoHotspot is returned when a click lands on no rendered hotspot.
var ErrNoHotspot = errors.New("no hotspot at location")

// Load triggers, recorded on the refresh counter.
const (
	TriggerInitial  = "initial"
	TriggerViewport = "viewport"
	TriggerManual   = "manual"
)

// HotspotFetcher retrieves one satellite product's detections in a bbox.
type HotspotFetcher interface {
	FetchHotspots(ctx context.Context, sat domain.Satellite, bbox orb.Bound) ([]domain.FireRecord, error)
}

// FireOptions tune the overlay.
type FireOptions struct {
	Sources      []domain.Satellite
	Debounce     time.Duration
	InitialDelay time.Duration
	HitRadiusKm  float64
	Clock        clockwork.Clock
}

// FireHit is a rendered hotspot under a click.
type FireHit struct {
	PopupID    string            `json:"popup_id"`
	Record     domain.FireRecord `json:"record"`
	DistanceKm float64           `json:"distance_km"`
	HTML       string            `json:"html"`
}

// FireOverlay fetches hotspots for the current viewport, renders them as a
// GeoJSON source with glow and point layers, and refreshes on viewport
// changes once the first load has rendered.
type FireOverlay struct {
	fetcher HotspotFetcher
	handle  mapview.Handle
	sinks   []HotspotSink
	opts    FireOptions
	logger  *slog.Logger
	metrics *observability.Metrics

	debouncer *debounce.Debouncer
	runCtx    atomic.Pointer[context.Context]
	renderMu  sync.Mutex
	latest    atomic.Pointer[domain.FireSnapshot]
	ready     atomic.Bool
}

// NewFireOverlay creates the overlay. A nil fetcher disables it: loads
// return ErrDisabled and viewport changes are ignored.
func NewFireOverlay(fetcher HotspotFetcher, h mapview.Handle, opts FireOptions, sinks []HotspotSink, logger *slog.Logger, metrics *observability.Metrics) *FireOverlay {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if len(opts.Sources) == 0 {
		opts.Sources = domain.DefaultSatellites
	}
	f := &FireOverlay{
		fetcher: fetcher,
		handle:  h,
		sinks:   sinks,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
	f.debouncer = debounce.New(opts.Debounce, f.refreshFromViewport, debounce.WithClock(opts.Clock))

	if f.Enabled() {
		metrics.FireOverlayEnabled.Set(1)
	} else {
		metrics.FireOverlayEnabled.Set(0)
	}
	return f
}

// Enabled reports whether a hotspot fetcher is configured.
func (f *FireOverlay) Enabled() bool {
	return f.fetcher != nil
}

// CheckReadiness returns nil once the first load has rendered, or
// immediately when the overlay is disabled.
func (f *FireOverlay) CheckReadiness(_ context.Context) error {
	if f.Enabled() && !f.ready.Load() {
		return errors.New("fire overlay has not loaded yet")
	}
	return nil
}

// Run waits for the map to load, performs the initial load after the
// configured delay, and then serves viewport refreshes until ctx is done.
func (f *FireOverlay) Run(ctx context.Context) error {
	if !f.Enabled() {
		f.logger.Info("fire overlay disabled, no FIRMS key configured")
		return nil
	}
	f.runCtx.Store(&ctx)
	defer f.debouncer.Stop()

	loaded := make(chan struct{})
	if err := f.handle.WhenLoaded(func() error {
		close(loaded)
		return nil
	}); err != nil {
		return fmt.Errorf("wait for map load: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil
	case <-loaded:
	}

	select {
	case <-ctx.Done():
		return nil
	case <-f.opts.Clock.After(f.opts.InitialDelay):
	}

	f.logger.Info("fire overlay started", "sources", len(f.opts.Sources), "debounce", f.opts.Debounce)
	if _, err := f.Load(ctx, TriggerInitial); err != nil && ctx.Err() == nil {
		f.logger.Error("initial fire load failed", "error", err)
	}

	<-ctx.Done()
	f.logger.Info("fire overlay stopping", "reason", ctx.Err())
	return nil
}

// ViewportSettled schedules a debounced refresh. Calls before the fire
// source exists are ignored so the initial load is not raced.
func (f *FireOverlay) ViewportSettled() {
	if !f.Enabled() {
		return
	}
	if !f.handle.HasSource(mapstyle.SourceFire) {
		f.metrics.FireRefreshSkipped.Inc()
		return
	}
	f.debouncer.Trigger()
}

func (f *FireOverlay) refreshFromViewport() {
	ctx := context.Background()
	if p := f.runCtx.Load(); p != nil {
		ctx = *p
	}
	if _, err := f.Load(ctx, TriggerViewport); err != nil && ctx.Err() == nil {
		f.logger.Error("viewport fire refresh failed", "error", err)
	}
}

// Load fetches every source for the map's current bounds, renders the
// aggregate, and hands it to the sinks. Sources that fail are left out;
// the load itself fails only when rendering does.
func (f *FireOverlay) Load(ctx context.Context, trigger string) (domain.FireSnapshot, error) {
	if !f.Enabled() {
		return domain.FireSnapshot{}, ErrDisabled
	}
	start := time.Now()
	bbox := f.handle.Bounds()
	f.metrics.FireRefreshes.WithLabelValues(trigger).Inc()

	records := fetchAll(ctx, f.fetcher, f.opts.Sources, bbox, f.logger)
	if err := ctx.Err(); err != nil {
		return domain.FireSnapshot{}, fmt.Errorf("load fires: %w", err)
	}

	snap := domain.NewFireSnapshot(records)
	if err := f.render(snap); err != nil {
		return domain.FireSnapshot{}, fmt.Errorf("render fires: %w", err)
	}
	f.latest.Store(&snap)
	f.ready.Store(true)

	f.metrics.FireFeatures.Set(float64(len(records)))
	f.metrics.FireLoadDuration.Observe(time.Since(start).Seconds())
	f.logger.Info("fire overlay loaded",
		"trigger", trigger,
		"features", len(records),
		"bbox", domain.FormatBBox(bbox),
	)

	f.publish(ctx, snap)
	return snap, nil
}

// render creates the source and layers on first use and afterwards replaces
// the source data only.
func (f *FireOverlay) render(snap domain.FireSnapshot) error {
	f.renderMu.Lock()
	defer f.renderMu.Unlock()

	fc := domain.FeatureCollection(snap.Records)
	if f.handle.HasSource(mapstyle.SourceFire) {
		return f.handle.SetSourceData(mapstyle.SourceFire, fc)
	}
	if err := f.handle.AddSource(mapstyle.SourceFire, mapstyle.FireSource(fc)); err != nil {
		return err
	}
	for _, l := range mapstyle.FireLayers() {
		if err := f.handle.AddLayer(l, ""); err != nil {
			return err
		}
	}
	return nil
}

func (f *FireOverlay) publish(ctx context.Context, snap domain.FireSnapshot) {
	for _, s := range f.sinks {
		if err := s.Publish(ctx, snap); err != nil {
			f.metrics.SinkErrors.WithLabelValues(s.Name()).Inc()
			f.logger.Warn("hotspot sink failed", "sink", s.Name(), "error", err)
		}
	}
}

// Latest returns the most recent snapshot, or the zero value before the first load.
func (f *FireOverlay) Latest() domain.FireSnapshot {
	if p := f.latest.Load(); p != nil {
		return *p
	}
	return domain.FireSnapshot{}
}

// FeatureCollection returns the rendered hotspots.
func (f *FireOverlay) FeatureCollection() *geojson.FeatureCollection {
	return domain.FeatureCollection(f.Latest().Records)
}

// Nearest returns the distance to the closest rendered hotspot.
func (f *FireOverlay) Nearest(at orb.Point) (float64, bool) {
	_, km, ok := domain.Nearest(f.Latest().Records, at)
	return km, ok
}

// hit finds the closest rendered hotspot within the hit radius.
func (f *FireOverlay) hit(at orb.Point) (domain.FireRecord, float64, bool) {
	records := f.Latest().Records
	i, km, ok := domain.Nearest(records, at)
	if !ok || km > f.opts.HitRadiusKm {
		return domain.FireRecord{}, 0, false
	}
	return records[i], km, true
}

// Hover sets the pointer cursor when at is over a rendered hotspot.
func (f *FireOverlay) Hover(at orb.Point) bool {
	if _, _, ok := f.hit(at); !ok {
		return false
	}
	f.handle.SetCursor(mapview.CursorPointer)
	return true
}

// Click opens a popup describing the hotspot under at.
func (f *FireOverlay) Click(at orb.Point) (FireHit, error) {
	if !f.Enabled() {
		return FireHit{}, ErrDisabled
	}
	rec, km, ok := f.hit(at)
	if !ok {
		return FireHit{}, ErrNoHotspot
	}
	html, err := domain.RenderFirePopupHTML(rec)
	if err != nil {
		return FireHit{}, err
	}
	id := f.handle.OpenPopup(orb.Point{rec.Lon, rec.Lat}, html)
	return FireHit{PopupID: id, Record: rec, DistanceKm: km, HTML: html}, nil
}
