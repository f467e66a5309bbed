package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wildfire-globe-service/internal/domain"
	"github.com/couchcryptid/wildfire-globe-service/internal/mapstyle"
	"github.com/couchcryptid/wildfire-globe-service/internal/mapview"
	"github.com/couchcryptid/wildfire-globe-service/internal/observability"
	"github.com/couchcryptid/wildfire-globe-service/internal/pipeline"
)

// --- mocks ---

type mockFetcher struct {
	records map[string][]domain.FireRecord
	errs    map[string]error
	delays  map[string]time.Duration

	calls atomic.Int64
	mu    sync.Mutex
	boxes []orb.Bound
}

func (m *mockFetcher) FetchHotspots(_ context.Context, sat domain.Satellite, bbox orb.Bound) ([]domain.FireRecord, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.boxes = append(m.boxes, bbox)
	m.mu.Unlock()

	if d := m.delays[sat.ID]; d > 0 {
		time.Sleep(d)
	}
	if err := m.errs[sat.ID]; err != nil {
		return nil, err
	}
	return m.records[sat.ID], nil
}

// antimeridianFetcher serves records by the west edge of the requested box.
type antimeridianFetcher struct {
	byEdge map[float64][]domain.FireRecord
	boxes  []string
}

func (a *antimeridianFetcher) FetchHotspots(_ context.Context, _ domain.Satellite, bbox orb.Bound) ([]domain.FireRecord, error) {
	a.boxes = append(a.boxes, domain.FormatBBox(bbox))
	return a.byEdge[bbox.Min.X()], nil
}

type mockSink struct {
	name string
	err  error

	mu    sync.Mutex
	snaps []domain.FireSnapshot
}

func (m *mockSink) Name() string { return m.name }

func (m *mockSink) Publish(_ context.Context, snap domain.FireSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps = append(m.snaps, snap)
	return m.err
}

// --- helpers ---

var (
	snpp  = domain.DefaultSatellites[0]
	noaa  = domain.DefaultSatellites[1]
	fireA = domain.FireRecord{Lon: -121.62, Lat: 39.76, Intensity: 45.6, Confidence: "h", Date: "2024-08-01", Time: "2112", Brightness: 340.1, Source: snpp.Name}
	fireB = domain.FireRecord{Lon: -121.60, Lat: 39.77, Intensity: 12.1, Confidence: "n", Date: "2024-08-01", Time: "2112", Brightness: 322.5, Source: snpp.Name}
	fireC = domain.FireRecord{Lon: 150.10, Lat: -33.80, Intensity: 300, Confidence: "h", Date: "2024-08-01", Time: "0412", Brightness: 360, Source: noaa.Name}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMap() *mapview.Map {
	return mapview.New(mapstyle.Bootstrap(mapstyle.Options{
		Center:              [2]float64{75, 20},
		Zoom:                2,
		Pitch:               5,
		TerrainExaggeration: 1.2,
	}), 22)
}

func newOverlay(f pipeline.HotspotFetcher, m *mapview.Map, clock clockwork.Clock, sinks ...pipeline.HotspotSink) (*pipeline.FireOverlay, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	opts := pipeline.FireOptions{
		Debounce:     time.Second,
		InitialDelay: time.Second,
		HitRadiusKm:  5,
		Clock:        clock,
	}
	return pipeline.NewFireOverlay(f, m, opts, sinks, discardLogger(), metrics), metrics
}

func renderedRecords(t *testing.T, m *mapview.Map) []orb.Point {
	t.Helper()
	src, ok := m.Snapshot().Style.Sources[mapstyle.SourceFire]
	require.True(t, ok, "fire source should exist")
	fc, ok := src.Data.(*geojson.FeatureCollection)
	require.True(t, ok)
	pts := make([]orb.Point, len(fc.Features))
	for i, f := range fc.Features {
		pts[i] = f.Geometry.(orb.Point)
	}
	return pts
}

func fireLayerCount(m *mapview.Map) int {
	n := 0
	for _, l := range m.Snapshot().Style.Layers {
		if l.Source == mapstyle.SourceFire {
			n++
		}
	}
	return n
}

// --- tests ---

func TestFireOverlay_Load_RendersInSourceOrder(t *testing.T) {
	f := &mockFetcher{
		records: map[string][]domain.FireRecord{
			snpp.ID: {fireA, fireB},
			noaa.ID: {fireC},
		},
		// The second source answers first; aggregation must not care.
		delays: map[string]time.Duration{snpp.ID: 30 * time.Millisecond},
	}
	m := newTestMap()
	o, metrics := newOverlay(f, m, clockwork.NewFakeClock())

	snap, err := o.Load(context.Background(), pipeline.TriggerManual)
	require.NoError(t, err)

	want := []domain.FireRecord{fireA, fireB, fireC}
	if diff := cmp.Diff(want, snap.Records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []orb.Point{{fireA.Lon, fireA.Lat}, {fireB.Lon, fireB.Lat}, {fireC.Lon, fireC.Lat}}, renderedRecords(t, m))

	layer, ok := m.Snapshot().Layer(mapstyle.LayerFireGlow)
	require.True(t, ok)
	assert.Equal(t, 0.5, layer.Paint["circle-opacity"])
	_, ok = m.Snapshot().Layer(mapstyle.LayerFirePoints)
	assert.True(t, ok)

	assert.InDelta(t, 3, testutil.ToFloat64(metrics.FireFeatures), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FireRefreshes.WithLabelValues(pipeline.TriggerManual)), 0)
	assert.NoError(t, o.CheckReadiness(context.Background()))
}

func TestFireOverlay_Load_ReplacesDataOnReload(t *testing.T) {
	f := &mockFetcher{records: map[string][]domain.FireRecord{snpp.ID: {fireA, fireB}}}
	m := newTestMap()
	o, _ := newOverlay(f, m, clockwork.NewFakeClock())

	_, err := o.Load(context.Background(), pipeline.TriggerManual)
	require.NoError(t, err)
	require.Len(t, renderedRecords(t, m), 2)

	f.records = map[string][]domain.FireRecord{noaa.ID: {fireC}}
	_, err = o.Load(context.Background(), pipeline.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, []orb.Point{{fireC.Lon, fireC.Lat}}, renderedRecords(t, m))
	assert.Equal(t, 2, fireLayerCount(m), "layers are created once")
	assert.Equal(t, []domain.FireRecord{fireC}, o.Latest().Records)
}

func TestFireOverlay_Load_SkipsFailedSource(t *testing.T) {
	f := &mockFetcher{
		records: map[string][]domain.FireRecord{noaa.ID: {fireC}},
		errs:    map[string]error{snpp.ID: domain.ErrInvalidHotspotBody},
	}
	m := newTestMap()
	o, _ := newOverlay(f, m, clockwork.NewFakeClock())

	snap, err := o.Load(context.Background(), pipeline.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, []domain.FireRecord{fireC}, snap.Records)
}

func TestFireOverlay_Load_AllSourcesFailRendersEmpty(t *testing.T) {
	boom := errors.New("connection refused")
	f := &mockFetcher{errs: map[string]error{snpp.ID: boom, noaa.ID: boom}}
	m := newTestMap()
	o, _ := newOverlay(f, m, clockwork.NewFakeClock())

	snap, err := o.Load(context.Background(), pipeline.TriggerManual)
	require.NoError(t, err)
	assert.Empty(t, snap.Records)
	assert.Empty(t, renderedRecords(t, m))
}

func TestFireOverlay_Load_UsesMapBounds(t *testing.T) {
	f := &mockFetcher{}
	m := newTestMap()
	box := domain.NewBounds(-125, 32, -114, 42)
	m.SetBounds(box)
	o, _ := newOverlay(f, m, clockwork.NewFakeClock())

	_, err := o.Load(context.Background(), pipeline.TriggerManual)
	require.NoError(t, err)

	require.Len(t, f.boxes, 2)
	assert.Equal(t, box, f.boxes[0])
	assert.Equal(t, box, f.boxes[1])
}

func TestFireOverlay_Load_SplitsViewportAtAntimeridian(t *testing.T) {
	west := domain.FireRecord{Lon: 175, Lat: -15, Source: "VIIRS SNPP"}
	east := domain.FireRecord{Lon: -175, Lat: -16, Source: "VIIRS SNPP"}
	f := &antimeridianFetcher{byEdge: map[float64][]domain.FireRecord{170: {west}, -180: {east}}}
	m := newTestMap()
	m.SetBounds(domain.NewBounds(170, -20, 190, -10))
	o := pipeline.NewFireOverlay(f, m, pipeline.FireOptions{
		Sources:     domain.DefaultSatellites[:1],
		HitRadiusKm: 5,
		Clock:       clockwork.NewFakeClock(),
	}, nil, discardLogger(), observability.NewMetricsForTesting())

	snap, err := o.Load(context.Background(), pipeline.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, []string{"170.00,-20.00,180.00,-10.00", "-180.00,-20.00,-170.00,-10.00"}, f.boxes)
	if diff := cmp.Diff([]domain.FireRecord{west, east}, snap.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestFireOverlay_Load_StampsSnapshot(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.August, 1, 21, 15, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() {
		domain.SetClock(nil)
	})

	o, _ := newOverlay(&mockFetcher{}, newTestMap(), clockwork.NewFakeClock())
	snap, err := o.Load(context.Background(), pipeline.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, fakeClock.Now(), snap.FetchedAt)
}

func TestFireOverlay_Disabled(t *testing.T) {
	m := newTestMap()
	o, metrics := newOverlay(nil, m, clockwork.NewFakeClock())

	assert.False(t, o.Enabled())
	assert.NoError(t, o.CheckReadiness(context.Background()))
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.FireOverlayEnabled), 0)

	_, err := o.Load(context.Background(), pipeline.TriggerManual)
	require.ErrorIs(t, err, pipeline.ErrDisabled)
	_, err = o.Click(orb.Point{0, 0})
	require.ErrorIs(t, err, pipeline.ErrDisabled)

	o.ViewportSettled()
	assert.False(t, m.HasSource(mapstyle.SourceFire))
	require.NoError(t, o.Run(context.Background()))
}

func TestFireOverlay_NotReadyBeforeFirstLoad(t *testing.T) {
	o, _ := newOverlay(&mockFetcher{}, newTestMap(), clockwork.NewFakeClock())
	assert.Error(t, o.CheckReadiness(context.Background()))
}

func TestFireOverlay_ViewportSettled_IgnoredBeforeFirstRender(t *testing.T) {
	f := &mockFetcher{}
	fake := clockwork.NewFakeClock()
	o, metrics := newOverlay(f, newTestMap(), fake)

	o.ViewportSettled()
	fake.Advance(5 * time.Second)

	assert.Zero(t, f.calls.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FireRefreshSkipped), 0)
}

func TestFireOverlay_ViewportSettled_Debounces(t *testing.T) {
	f := &mockFetcher{records: map[string][]domain.FireRecord{snpp.ID: {fireA}}}
	fake := clockwork.NewFakeClock()
	m := newTestMap()
	o, metrics := newOverlay(f, m, fake)

	_, err := o.Load(context.Background(), pipeline.TriggerManual)
	require.NoError(t, err)
	base := f.calls.Load()

	o.ViewportSettled()
	fake.Advance(500 * time.Millisecond)
	o.ViewportSettled()
	fake.Advance(500 * time.Millisecond)
	o.ViewportSettled()
	assert.Equal(t, base, f.calls.Load(), "no refresh while the viewport keeps moving")

	fake.Advance(time.Second)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.FireRefreshes.WithLabelValues(pipeline.TriggerViewport)) == 1 &&
			f.calls.Load() == base+int64(len(domain.DefaultSatellites))
	}, time.Second, 5*time.Millisecond)
}

func TestFireOverlay_Run_InitialLoadAfterMapLoad(t *testing.T) {
	f := &mockFetcher{records: map[string][]domain.FireRecord{snpp.ID: {fireA}}}
	fake := clockwork.NewFakeClock()
	m := newTestMap()
	o, metrics := newOverlay(f, m, fake)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	// Nothing happens until the map reports loaded.
	require.NoError(t, m.MarkLoaded())

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.NoError(t, fake.BlockUntilContext(waitCtx, 1))
	assert.Zero(t, f.calls.Load())

	fake.Advance(time.Second)
	assert.Eventually(t, func() bool {
		return o.CheckReadiness(context.Background()) == nil
	}, time.Second, 5*time.Millisecond)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FireRefreshes.WithLabelValues(pipeline.TriggerInitial)), 0)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestFireOverlay_Run_CancelledBeforeMapLoad(t *testing.T) {
	f := &mockFetcher{}
	o, _ := newOverlay(f, newTestMap(), clockwork.NewFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, o.Run(ctx))
	assert.Zero(t, f.calls.Load())
}

func TestFireOverlay_Sinks(t *testing.T) {
	f := &mockFetcher{records: map[string][]domain.FireRecord{snpp.ID: {fireA}}}
	good := &mockSink{name: "archive"}
	bad := &mockSink{name: "kafka", err: errors.New("broker unavailable")}
	o, metrics := newOverlay(f, newTestMap(), clockwork.NewFakeClock(), bad, good)

	_, err := o.Load(context.Background(), pipeline.TriggerManual)
	require.NoError(t, err, "sink failures never fail the load")

	require.Len(t, good.snaps, 1)
	assert.Equal(t, []domain.FireRecord{fireA}, good.snaps[0].Records)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SinkErrors.WithLabelValues("kafka")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.SinkErrors.WithLabelValues("archive")), 0)
}

func TestFireOverlay_ClickAndHover(t *testing.T) {
	f := &mockFetcher{records: map[string][]domain.FireRecord{snpp.ID: {fireA, fireB}}}
	m := newTestMap()
	o, _ := newOverlay(f, m, clockwork.NewFakeClock())
	_, err := o.Load(context.Background(), pipeline.TriggerManual)
	require.NoError(t, err)

	t.Run("click near a hotspot opens its popup", func(t *testing.T) {
		hit, err := o.Click(orb.Point{-121.621, 39.761})
		require.NoError(t, err)

		assert.Equal(t, fireA, hit.Record)
		assert.Less(t, hit.DistanceKm, 1.0)
		assert.Contains(t, hit.HTML, "45.6 MW")
		assert.Contains(t, hit.HTML, "39.7600°, -121.6200°")

		popup, ok := m.Popup(hit.PopupID)
		require.True(t, ok)
		assert.Equal(t, orb.Point{fireA.Lon, fireA.Lat}, popup.LngLat)
		assert.Equal(t, hit.HTML, popup.HTML)
	})

	t.Run("click far from every hotspot", func(t *testing.T) {
		_, err := o.Click(orb.Point{0, 0})
		require.ErrorIs(t, err, pipeline.ErrNoHotspot)
	})

	t.Run("hover sets the pointer cursor", func(t *testing.T) {
		assert.False(t, o.Hover(orb.Point{10, 10}))
		assert.True(t, o.Hover(orb.Point{-121.6, 39.77}))
		assert.Equal(t, mapview.CursorPointer, m.Snapshot().Cursor)
	})

	t.Run("nearest", func(t *testing.T) {
		km, ok := o.Nearest(orb.Point{-121.62, 39.76})
		require.True(t, ok)
		assert.InDelta(t, 0, km, 0.001)
	})
}

func TestFireOverlay_FeatureCollection(t *testing.T) {
	f := &mockFetcher{records: map[string][]domain.FireRecord{snpp.ID: {fireA}}}
	o, _ := newOverlay(f, newTestMap(), clockwork.NewFakeClock())

	assert.Empty(t, o.FeatureCollection().Features)

	_, err := o.Load(context.Background(), pipeline.TriggerManual)
	require.NoError(t, err)

	fc := o.FeatureCollection()
	require.Len(t, fc.Features, 1)
	assert.Equal(t, 45.6, fc.Features[0].Properties[domain.PropIntensity])
	assert.Equal(t, snpp.Name, fc.Features[0].Properties[domain.PropSource])
}
