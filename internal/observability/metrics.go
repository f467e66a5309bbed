package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fire_globe"

// Metrics holds the Prometheus counters, histograms, and gauges for the globe service.
type Metrics struct {
	// Fire overlay metrics.
	HotspotRequests    *prometheus.CounterVec   // labels: source, outcome={success,http_error,invalid_body,transport_error}
	HotspotAPIDuration *prometheus.HistogramVec // labels: source
	HotspotRecords     *prometheus.CounterVec   // labels: source
	FireRefreshes      *prometheus.CounterVec   // labels: trigger={initial,viewport,manual}
	FireRefreshSkipped prometheus.Counter
	FireLoadDuration   prometheus.Histogram
	FireFeatures       prometheus.Gauge
	FireOverlayEnabled prometheus.Gauge
	SinkErrors         *prometheus.CounterVec // labels: sink

	// Point inspector metrics.
	InspectRequests    *prometheus.CounterVec   // labels: outcome={success,error}
	WeatherCache       *prometheus.CounterVec   // labels: kind={weather,air}, result={hit,miss}
	WeatherAPIDuration *prometheus.HistogramVec // labels: kind={weather,air}
	InspectorEnabled   prometheus.Gauge

	// View state metrics.
	ViewChanges *prometheus.CounterVec // labels: control={projection,basemap,overlay}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.HotspotRequests,
		m.HotspotAPIDuration,
		m.HotspotRecords,
		m.FireRefreshes,
		m.FireRefreshSkipped,
		m.FireLoadDuration,
		m.FireFeatures,
		m.FireOverlayEnabled,
		m.SinkErrors,
		m.InspectRequests,
		m.WeatherCache,
		m.WeatherAPIDuration,
		m.InspectorEnabled,
		m.ViewChanges,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		HotspotRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hotspot_requests_total",
			Help:      help("FIRMS area requests by source and outcome."),
		}, []string{"source", "outcome"}),
		HotspotAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "hotspot_api_duration_seconds",
			Help:      help("FIRMS area request duration in seconds."),
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		HotspotRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hotspot_records_total",
			Help:      help("Hotspot records parsed by source."),
		}, []string{"source"}),
		FireRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fire_refreshes_total",
			Help:      help("Fire overlay loads by trigger."),
		}, []string{"trigger"}),
		FireRefreshSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fire_refresh_skipped_total",
			Help:      help("Viewport changes ignored because the fire overlay has not loaded yet."),
		}),
		FireLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fire_load_duration_seconds",
			Help:      help("Duration of a complete fetch, parse, and render cycle."),
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		FireFeatures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fire_features",
			Help:      help("Number of hotspot features currently rendered."),
		}),
		FireOverlayEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fire_overlay_enabled",
			Help:      help("1 when a FIRMS key is configured, 0 otherwise."),
		}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      help("Hotspot sink publish failures by sink."),
		}, []string{"sink"}),
		InspectRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inspect_requests_total",
			Help:      help("Point inspections by outcome."),
		}, []string{"outcome"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_total",
			Help:      help("Weather cache lookups by kind and result."),
		}, []string{"kind", "result"}),
		WeatherAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_api_duration_seconds",
			Help:      help("OpenWeatherMap request duration in seconds."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"kind"}),
		InspectorEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inspector_enabled",
			Help:      help("1 when an OpenWeatherMap key is configured, 0 otherwise."),
		}),
		ViewChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_changes_total",
			Help:      help("View control changes by control."),
		}, []string{"control"}),
	}
}
