package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/wildfire-globe-service/internal/adapter/http"
	"github.com/couchcryptid/wildfire-globe-service/internal/adapter/sqlite"
	"github.com/couchcryptid/wildfire-globe-service/internal/bootstrap"
	"github.com/couchcryptid/wildfire-globe-service/internal/config"
	"github.com/couchcryptid/wildfire-globe-service/internal/domain"
	"github.com/couchcryptid/wildfire-globe-service/internal/mapview"
	"github.com/couchcryptid/wildfire-globe-service/internal/observability"
	"github.com/couchcryptid/wildfire-globe-service/internal/pipeline"
)

var paradise = domain.FireRecord{
	Lon: -121.6, Lat: 39.76, Intensity: 42.5, Confidence: "h",
	Date: "2024-08-01", Time: "0412", Brightness: 331.2, Source: "VIIRS SNPP",
}

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type stubFetcher struct{}

func (stubFetcher) FetchHotspots(_ context.Context, sat domain.Satellite, _ orb.Bound) ([]domain.FireRecord, error) {
	if sat.ID != domain.DefaultSatellites[0].ID {
		return nil, nil
	}
	return []domain.FireRecord{paradise}, nil
}

type stubWeather struct {
	err error
}

func (s stubWeather) CurrentWeather(context.Context, float64, float64) (domain.Weather, error) {
	return domain.Weather{Name: "Paradise", TempC: 31.4, WindSpeed: 10, WindDeg: 0, Description: "smoke"}, s.err
}

func (s stubWeather) AirPollution(context.Context, float64, float64) (domain.AirQuality, error) {
	return domain.AirQuality{AQI: 3, Components: domain.AirComponents{CO: 400}}, s.err
}

type stubArchive struct {
	rows      []sqlite.ArchivedHotspot
	gotLimit  int
	returnErr error
}

func (s *stubArchive) Recent(_ context.Context, limit int) ([]sqlite.ArchivedHotspot, error) {
	s.gotLimit = limit
	return s.rows, s.returnErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	srv     *httpadapter.Server
	state   *bootstrap.State
	metrics *observability.Metrics
}

func newFixture(t *testing.T, cc config.ClientConfig, weather stubWeather, archive httpadapter.ArchiveReader) fixture {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	state, err := bootstrap.Run(context.Background(), bootstrap.DefaultSteps(bootstrap.Deps{
		LoadConfig: func(context.Context) (*config.ClientConfig, error) { return &cc, nil },
		NewFetcher: func(string) pipeline.HotspotFetcher { return stubFetcher{} },
		NewWeather: func(string) domain.WeatherSource { return weather },
		Fire:       pipeline.FireOptions{Debounce: time.Hour, HitRadiusKm: 5},
		GlobePitch: 5,
		Logger:     discardLogger(),
		Metrics:    metrics,
	}), discardLogger())
	require.NoError(t, err)

	svc := httpadapter.Services{
		Client:    cc,
		Map:       state.Map,
		Controls:  state.Controls,
		Fires:     state.Fires,
		Inspector: state.Inspector,
		Archive:   archive,
	}
	return fixture{
		srv:     httpadapter.NewServer(":0", svc, &mockReadiness{}, metrics, discardLogger()),
		state:   state,
		metrics: metrics,
	}
}

func newKeyedFixture(t *testing.T) fixture {
	return newFixture(t, config.ClientConfig{FirmsMapKey: "map-key", OpenWeatherKey: "ow-key"}, stubWeather{}, nil)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, r))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", httpadapter.Services{}, &mockReadiness{err: readyErr},
		observability.NewMetricsForTesting(), discardLogger())
}

func TestHealthzReturns200(t *testing.T) {
	rec := do(t, newTestServer(nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := do(t, newTestServer(nil), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := do(t, newTestServer(fmt.Errorf("not ready yet")), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestServer(nil), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(nil)

	rec := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Len(t, rec.Header().Get(httpadapter.RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(httpadapter.RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(httpadapter.RequestIDHeader))
}

func TestConfigAndStyle(t *testing.T) {
	f := newKeyedFixture(t)

	rec := do(t, f.srv, http.MethodGet, "/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cc := decode[map[string]any](t, rec)
	assert.Equal(t, "map-key", cc["FIRMS_MAP_KEY"])
	assert.Equal(t, "ow-key", cc["OPENWEATHER_KEY"])

	rec = do(t, f.srv, http.MethodGet, "/style.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	style := decode[map[string]any](t, rec)
	assert.EqualValues(t, 8, style["version"])
	assert.NotEmpty(t, style["layers"])
}

func TestViewControls(t *testing.T) {
	f := newKeyedFixture(t)

	rec := do(t, f.srv, http.MethodGet, "/api/view", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[mapview.ViewState](t, rec)
	assert.Equal(t, mapview.BasemapSatellite, view.Basemap)
	assert.True(t, view.Is3D)
	assert.Equal(t, mapview.Label2D, view.ToggleLabel)

	rec = do(t, f.srv, http.MethodPost, "/api/view/projection/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[mapview.ViewState](t, rec)
	assert.False(t, view.Is3D)
	assert.False(t, view.Terrain)
	assert.Zero(t, view.Pitch)

	rec = do(t, f.srv, http.MethodPut, "/api/view/basemap", `{"mode":"roadmap"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mapview.BasemapRoadmap, decode[mapview.ViewState](t, rec).Basemap)

	rec = do(t, f.srv, http.MethodPut, "/api/view/overlay", `{"overlay":"wind"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mapview.OverlayWind, decode[mapview.ViewState](t, rec).Overlay)

	assert.Equal(t, http.StatusBadRequest, do(t, f.srv, http.MethodPut, "/api/view/basemap", `{"mode":"terrain"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, f.srv, http.MethodPut, "/api/view/overlay", `{"overlay":"rain"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, f.srv, http.MethodPut, "/api/view/basemap", `{"basemap":"roadmap"}`).Code)
}

func TestPointer(t *testing.T) {
	f := newKeyedFixture(t)

	rec := do(t, f.srv, http.MethodPost, "/api/view/pointer", `{"lng":-122.4194,"lat":37.7749}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "Lat: 37.774900 | Lng: -122.419400", body["readout"])
	assert.Equal(t, false, body["over_fire"])

	assert.Equal(t, http.StatusBadRequest, do(t, f.srv, http.MethodPost, "/api/view/pointer", `{"lng":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, f.srv, http.MethodPost, "/api/view/pointer", `{"lng":200,"lat":0}`).Code)
}

func TestViewport(t *testing.T) {
	f := newKeyedFixture(t)

	rec := do(t, f.srv, http.MethodPost, "/api/view/viewport", `{"west":-122.5,"south":39.1,"east":-121.25,"north":40.33}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "-122.50,39.10,-121.25,40.33", decode[map[string]string](t, rec)["bbox"])
	assert.Equal(t, domain.NewBounds(-122.5, 39.1, -121.25, 40.33), f.state.Map.Bounds())

	// A world copy west of -180 keeps its width across the antimeridian.
	rec = do(t, f.srv, http.MethodPost, "/api/view/viewport", `{"west":-190,"south":-20,"east":-170,"north":-10}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "170.00,-20.00,190.00,-10.00", decode[map[string]string](t, rec)["bbox"])

	assert.Equal(t, http.StatusBadRequest, do(t, f.srv, http.MethodPost, "/api/view/viewport", `{"west":1}`).Code)
}

func TestFires_LoadListClick(t *testing.T) {
	f := newKeyedFixture(t)

	rec := do(t, f.srv, http.MethodPost, "/api/fires/load", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["features"])

	rec = do(t, f.srv, http.MethodGet, "/api/fires", "")
	require.Equal(t, http.StatusOK, rec.Code)
	fc, err := geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, orb.Point{paradise.Lon, paradise.Lat}, fc.Features[0].Geometry)

	rec = do(t, f.srv, http.MethodPost, "/api/view/pointer", `{"lng":-121.6,"lat":39.76}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["over_fire"])
	assert.Equal(t, mapview.CursorPointer, body["cursor"])

	rec = do(t, f.srv, http.MethodPost, "/api/fires/click", `{"lng":-121.601,"lat":39.761}`)
	require.Equal(t, http.StatusOK, rec.Code)
	hit := decode[pipeline.FireHit](t, rec)
	assert.Equal(t, paradise, hit.Record)
	assert.Contains(t, hit.HTML, "Fire Detected")

	rec = do(t, f.srv, http.MethodGet, "/api/popups/"+hit.PopupID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, hit.HTML, decode[mapview.Popup](t, rec).HTML)

	assert.Equal(t, http.StatusNotFound, do(t, f.srv, http.MethodPost, "/api/fires/click", `{"lng":10,"lat":10}`).Code)
}

func TestFires_Disabled(t *testing.T) {
	f := newFixture(t, config.ClientConfig{}, stubWeather{}, nil)

	assert.Equal(t, http.StatusServiceUnavailable, do(t, f.srv, http.MethodPost, "/api/fires/load", "").Code)

	rec := do(t, f.srv, http.MethodGet, "/api/fires", "")
	require.Equal(t, http.StatusOK, rec.Code)
	fc, err := geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Empty(t, fc.Features)
}

func TestFiresArchive(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		f := newKeyedFixture(t)
		assert.Equal(t, http.StatusServiceUnavailable, do(t, f.srv, http.MethodGet, "/api/fires/archive", "").Code)
	})

	t.Run("default limit", func(t *testing.T) {
		archive := &stubArchive{rows: []sqlite.ArchivedHotspot{{FireRecord: paradise, FetchedAt: time.Unix(0, 0).UTC()}}}
		f := newFixture(t, config.ClientConfig{FirmsMapKey: "k"}, stubWeather{}, archive)

		rec := do(t, f.srv, http.MethodGet, "/api/fires/archive", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, sqlite.DefaultRecentLimit, archive.gotLimit)
		rows := decode[[]map[string]any](t, rec)
		require.Len(t, rows, 1)
		assert.Equal(t, "VIIRS SNPP", rows[0]["source"])
	})

	t.Run("explicit limit and empty result", func(t *testing.T) {
		archive := &stubArchive{}
		f := newFixture(t, config.ClientConfig{}, stubWeather{}, archive)

		rec := do(t, f.srv, http.MethodGet, "/api/fires/archive?limit=5", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 5, archive.gotLimit)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("bad limit", func(t *testing.T) {
		f := newFixture(t, config.ClientConfig{}, stubWeather{}, &stubArchive{})
		assert.Equal(t, http.StatusBadRequest, do(t, f.srv, http.MethodGet, "/api/fires/archive?limit=0", "").Code)
		assert.Equal(t, http.StatusBadRequest, do(t, f.srv, http.MethodGet, "/api/fires/archive?limit=x", "").Code)
	})

	t.Run("query error", func(t *testing.T) {
		f := newFixture(t, config.ClientConfig{}, stubWeather{}, &stubArchive{returnErr: errors.New("disk full")})
		assert.Equal(t, http.StatusInternalServerError, do(t, f.srv, http.MethodGet, "/api/fires/archive", "").Code)
	})
}

func TestInspect(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newKeyedFixture(t)

		rec := do(t, f.srv, http.MethodGet, "/api/inspect?lat=39.7&lng=-121.6", "")
		require.Equal(t, http.StatusOK, rec.Code)
		out := decode[pipeline.Inspection](t, rec)
		require.NotNil(t, out.Result)
		assert.Equal(t, "Paradise", out.Result.Weather.Name)
		assert.Contains(t, out.HTML, "AQI 3")

		popup := decode[mapview.Popup](t, do(t, f.srv, http.MethodGet, "/api/popups/"+out.PopupID, ""))
		assert.Equal(t, out.HTML, popup.HTML)
	})

	t.Run("upstream failure", func(t *testing.T) {
		f := newFixture(t, config.ClientConfig{OpenWeatherKey: "k"}, stubWeather{err: errors.New("status 500")}, nil)

		rec := do(t, f.srv, http.MethodGet, "/api/inspect?lat=39.7&lng=-121.6", "")
		require.Equal(t, http.StatusBadGateway, rec.Code)
		out := decode[pipeline.Inspection](t, rec)
		assert.Equal(t, domain.FailurePopupHTML, out.HTML)
		assert.Nil(t, out.Result)
	})

	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, config.ClientConfig{}, stubWeather{}, nil)
		assert.Equal(t, http.StatusServiceUnavailable, do(t, f.srv, http.MethodGet, "/api/inspect?lat=1&lng=1", "").Code)
	})

	t.Run("bad query", func(t *testing.T) {
		f := newKeyedFixture(t)
		assert.Equal(t, http.StatusBadRequest, do(t, f.srv, http.MethodGet, "/api/inspect?lat=abc&lng=1", "").Code)
		assert.Equal(t, http.StatusBadRequest, do(t, f.srv, http.MethodGet, "/api/inspect?lat=95&lng=1", "").Code)
	})
}

func TestSpread(t *testing.T) {
	f := newKeyedFixture(t)

	rec := do(t, f.srv, http.MethodGet, "/api/spread?lat=39.7&lng=-121.6", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cone := decode[domain.SpreadCone](t, rec)
	assert.InDelta(t, 180, cone.BearingDeg, 1e-9)
	assert.InDelta(t, 3.6, cone.ROSKmh, 1e-9)

	bad := newFixture(t, config.ClientConfig{OpenWeatherKey: "k"}, stubWeather{err: errors.New("timeout")}, nil)
	assert.Equal(t, http.StatusBadGateway, do(t, bad.srv, http.MethodGet, "/api/spread?lat=1&lng=1", "").Code)
}

func TestPopupNotFound(t *testing.T) {
	f := newKeyedFixture(t)
	assert.Equal(t, http.StatusNotFound, do(t, f.srv, http.MethodGet, "/api/popups/nope", "").Code)
}
