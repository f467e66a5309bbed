package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/wildfire-globe-service/internal/domain"
	"github.com/couchcryptid/wildfire-globe-service/internal/mapview"
	"github.com/couchcryptid/wildfire-globe-service/internal/observability"
)

// NearestFire reports the distance from a point to the closest loaded hotspot.
type NearestFire interface {
	Nearest(at orb.Point) (km float64, ok bool)
}

// Inspection is the outcome of one point inspection. Result is nil on failure.
type Inspection struct {
	PopupID string             `json:"popup_id"`
	HTML    string             `json:"html"`
	Result  *domain.Inspection `json:"result,omitempty"`
}

// Inspector fetches weather and air quality for a clicked point and shows
// them in a popup.
type Inspector struct {
	source  domain.WeatherSource
	handle  mapview.Handle
	fires   NearestFire
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewInspector creates an inspector. A nil source disables it. fires may be nil.
func NewInspector(source domain.WeatherSource, h mapview.Handle, fires NearestFire, logger *slog.Logger, metrics *observability.Metrics) *Inspector {
	i := &Inspector{
		source:  source,
		handle:  h,
		fires:   fires,
		logger:  logger,
		metrics: metrics,
	}
	if i.Enabled() {
		metrics.InspectorEnabled.Set(1)
	} else {
		metrics.InspectorEnabled.Set(0)
	}
	return i
}

// Enabled reports whether a weather source is configured.
func (i *Inspector) Enabled() bool {
	return i.source != nil
}

// Inspect opens a placeholder popup at the point, fetches weather and air
// pollution concurrently, and replaces the popup with the telemetry or the
// failure message. The returned Inspection is populated in both cases.
func (i *Inspector) Inspect(ctx context.Context, at orb.Point) (Inspection, error) {
	if !i.Enabled() {
		return Inspection{}, ErrDisabled
	}
	id := i.handle.OpenPopup(at, domain.PlaceholderPopupHTML)
	out := Inspection{PopupID: id, HTML: domain.PlaceholderPopupHTML}

	result, err := i.fetch(ctx, at)
	if err == nil {
		out.HTML, err = domain.RenderInspectionHTML(result)
	}
	if err != nil {
		i.metrics.InspectRequests.WithLabelValues("error").Inc()
		i.logger.Warn("point inspection failed", "lat", at.Lat(), "lng", at.Lon(), "error", err)
		out.HTML = domain.FailurePopupHTML
		if perr := i.handle.SetPopupHTML(id, out.HTML); perr != nil {
			i.logger.Debug("failure popup closed before update", "popup", id, "error", perr)
		}
		return out, fmt.Errorf("inspect point: %w", err)
	}

	if perr := i.handle.SetPopupHTML(id, out.HTML); perr != nil {
		i.logger.Debug("inspection popup closed before update", "popup", id, "error", perr)
	}
	i.metrics.InspectRequests.WithLabelValues("success").Inc()
	out.Result = &result
	return out, nil
}

func (i *Inspector) fetch(ctx context.Context, at orb.Point) (domain.Inspection, error) {
	result := domain.Inspection{Lat: at.Lat(), Lng: at.Lon()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := i.source.CurrentWeather(gctx, at.Lat(), at.Lon())
		if err != nil {
			return fmt.Errorf("current weather: %w", err)
		}
		result.Weather = w
		return nil
	})
	g.Go(func() error {
		a, err := i.source.AirPollution(gctx, at.Lat(), at.Lon())
		if err != nil {
			return fmt.Errorf("air pollution: %w", err)
		}
		result.Air = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Inspection{}, err
	}

	if i.fires != nil {
		if km, ok := i.fires.Nearest(at); ok {
			result.NearestFireKm = &km
		}
	}
	return result, nil
}

// Spread predicts where a fire at the point would be in one hour, pushed
// downwind by the current wind.
func (i *Inspector) Spread(ctx context.Context, at orb.Point) (domain.SpreadCone, error) {
	if !i.Enabled() {
		return domain.SpreadCone{}, ErrDisabled
	}
	w, err := i.source.CurrentWeather(ctx, at.Lat(), at.Lon())
	if err != nil {
		return domain.SpreadCone{}, fmt.Errorf("spread: current weather: %w", err)
	}
	// Meteorological direction is where the wind blows from.
	downwind := w.WindDeg + 180
	return domain.PredictSpread(at, domain.MetersPerSecondToKmh(w.WindSpeed), downwind), nil
}
