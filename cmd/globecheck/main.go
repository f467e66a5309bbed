// Command globecheck runs the full client initialization sequence against a
// live deployment: it fetches the /config payload, brings up the map and
// every component with the real FIRMS and OpenWeatherMap adapters, and then
// exercises a fire load and a point inspection. Each phase is reported as
// PASS or FAIL.
//
// Usage:
//
//	go run ./cmd/globecheck \
//	  -config-url http://localhost:8080/config \
//	  -inspect 39.76,-121.60
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/paulmach/orb"

	"github.com/couchcryptid/wildfire-globe-service/internal/adapter/firms"
	"github.com/couchcryptid/wildfire-globe-service/internal/adapter/openweather"
	"github.com/couchcryptid/wildfire-globe-service/internal/bootstrap"
	"github.com/couchcryptid/wildfire-globe-service/internal/config"
	"github.com/couchcryptid/wildfire-globe-service/internal/domain"
	"github.com/couchcryptid/wildfire-globe-service/internal/observability"
	"github.com/couchcryptid/wildfire-globe-service/internal/pipeline"
)

// phase tracks pass/fail for one check.
type phase struct {
	name    string
	skipped bool
	errors  []string
	notes   []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type options struct {
	configURL string
	firmsURL  string
	owURL     string
	bbox      string
	inspect   string
	timeout   time.Duration
	logLevel  string
}

func main() {
	var o options
	flag.StringVar(&o.configURL, "config-url", "", "URL of the /config payload")
	flag.StringVar(&o.firmsURL, "firms-url", "https://firms.modaps.eosdis.nasa.gov", "FIRMS API base URL")
	flag.StringVar(&o.owURL, "openweather-url", "https://api.openweathermap.org", "OpenWeatherMap API base URL")
	flag.StringVar(&o.bbox, "bbox", "", "viewport for the fire load as west,south,east,north (default: whole world)")
	flag.StringVar(&o.inspect, "inspect", "", "point to inspect as lat,lng (skipped when empty)")
	flag.DurationVar(&o.timeout, "timeout", 30*time.Second, "overall deadline")
	flag.StringVar(&o.logLevel, "log-level", "warn", "log level for component output")
	flag.Parse()

	if o.configURL == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(o))
}

func run(o options) int {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	logger := sharedobs.NewLogger(o.logLevel, "text")
	metrics := observability.NewMetricsForTesting()

	fmt.Println("=== Wildfire Globe Initialization Check ===")
	fmt.Println()

	// Every bootstrap step reports as its own phase.
	deps := bootstrap.Deps{
		LoadConfig: func(ctx context.Context) (*config.ClientConfig, error) {
			return config.Fetch(ctx, &http.Client{Timeout: 10 * time.Second}, o.configURL)
		},
		NewFetcher: func(key string) pipeline.HotspotFetcher {
			return firms.NewClient(key, o.firmsURL, 15*time.Second, metrics, logger)
		},
		NewWeather: func(key string) domain.WeatherSource {
			return openweather.NewClient(key, o.owURL, 10*time.Second, metrics, logger)
		},
		Fire:                pipeline.FireOptions{HitRadiusKm: 5},
		GlobePitch:          5,
		TerrainExaggeration: 1.2,
		Logger:              logger,
		Metrics:             metrics,
	}
	state, phases, err := bootstrapPhases(ctx, bootstrap.DefaultSteps(deps), logger)

	track := func(name string) *phase {
		p := &phase{name: name}
		phases = append(phases, p)
		return p
	}
	if err == nil {
		checkState(track("map state"), state)
		checkFires(ctx, track("fire load"), state, o.bbox)
		checkInspect(ctx, track("point inspection"), state, o.inspect)
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		switch {
		case !p.passed():
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		case p.skipped:
			status = "\033[33mSKIP\033[0m"
		}
		fmt.Printf("  %-32s %s\n", p.name, status)
		for _, n := range p.notes {
			fmt.Printf("      %s\n", n)
		}
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll checks passed.")
		return 0
	}
	fmt.Println("\nCheck FAILED.")
	return 1
}

// bootstrapPhases runs the steps and reports each as a phase. Steps after a
// failure never run and are reported as skipped. An abort outside any step,
// such as an expired deadline, fails the step it stopped at.
func bootstrapPhases(ctx context.Context, steps []bootstrap.Step, logger *slog.Logger) (*bootstrap.State, []*phase, error) {
	phases := make([]*phase, len(steps))
	ran := make([]bool, len(steps))
	wrapped := make([]bootstrap.Step, len(steps))
	for i, s := range steps {
		p := &phase{name: "bootstrap: " + s.Name}
		phases[i] = p
		wrapped[i] = bootstrap.Step{Name: s.Name, Run: func(ctx context.Context, st *bootstrap.State) error {
			ran[i] = true
			err := s.Run(ctx, st)
			if err != nil {
				p.errorf("%v", err)
			}
			return err
		}}
	}

	state, err := bootstrap.Run(ctx, wrapped, logger)
	if err == nil {
		return state, phases, nil
	}

	reported := false
	for _, p := range phases {
		reported = reported || !p.passed()
	}
	for i, p := range phases {
		if ran[i] {
			continue
		}
		if !reported {
			p.errorf("%v", err)
			reported = true
			continue
		}
		p.skipped = true
		p.notef("not run: an earlier step failed")
	}
	return state, phases, err
}

func checkState(p *phase, s *bootstrap.State) {
	snap := s.Map.Snapshot()
	if !snap.Loaded {
		p.errorf("map not marked loaded")
	}
	if len(snap.Controls) != 3 {
		p.errorf("controls: got %d, want 3", len(snap.Controls))
	}
	view := s.Controls.View(s.Map)
	p.notef("projection=%s basemap=%s visible=%s", view.Projection, view.Basemap, strings.Join(view.Visible, ","))
	p.notef("fire overlay enabled=%t, inspector enabled=%t", s.Fires.Enabled(), s.Inspector.Enabled())
}

func checkFires(ctx context.Context, p *phase, s *bootstrap.State, bbox string) {
	if !s.Fires.Enabled() {
		p.skipped = true
		p.notef("no FIRMS_MAP_KEY in payload")
		return
	}
	if bbox != "" {
		b, err := domain.ParseBBox(bbox)
		if err != nil {
			p.errorf("%v", err)
			return
		}
		s.Map.SetBounds(b)
	}

	start := time.Now()
	snap, err := s.Fires.Load(ctx, pipeline.TriggerManual)
	if err != nil {
		p.errorf("load: %v", err)
		return
	}
	p.notef("%d hotspots in %s for bbox %s", len(snap.Records), time.Since(start).Round(time.Millisecond), domain.FormatBBox(s.Map.Bounds()))
	if err := s.Fires.CheckReadiness(ctx); err != nil {
		p.errorf("overlay not ready after load: %v", err)
	}
}

func checkInspect(ctx context.Context, p *phase, s *bootstrap.State, point string) {
	if point == "" {
		p.skipped = true
		p.notef("no -inspect point given")
		return
	}
	if !s.Inspector.Enabled() {
		p.skipped = true
		p.notef("no OPENWEATHER_KEY in payload")
		return
	}
	at, err := parseLatLng(point)
	if err != nil {
		p.errorf("%v", err)
		return
	}

	out, err := s.Inspector.Inspect(ctx, at)
	if err != nil {
		p.errorf("inspect: %v", err)
		return
	}
	r := out.Result
	p.notef("%s: %.1f°C, wind %.1f m/s @ %g°, AQI %d, CO %.1f", r.LocationName(), r.Weather.TempC,
		r.Weather.WindSpeed, r.Weather.WindDeg, r.Air.AQI, r.Air.Components.CO)
	if r.NearestFireKm != nil {
		p.notef("nearest hotspot %.1f km", *r.NearestFireKm)
	}
}

func parseLatLng(s string) (orb.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return orb.Point{}, fmt.Errorf("parse point %q: want lat,lng", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("parse latitude %q: %w", parts[0], err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("parse longitude %q: %w", parts[1], err)
	}
	return orb.Point{lng, lat}, nil
}
