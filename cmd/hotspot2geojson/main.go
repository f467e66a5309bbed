// Command hotspot2geojson converts FIRMS area CSV exports into the GeoJSON
// FeatureCollection the fire overlay renders. It uses the same parser and
// feature mapping as the live overlay, so its output doubles as a fixture
// for map client development.
//
// Usage:
//
//	go run ./cmd/hotspot2geojson \
//	  -source VIIRS_SNPP_NRT -in data/viirs_snpp.csv \
//	  -source VIIRS_NOAA20_NRT -in data/viirs_noaa20.csv \
//	  -out data/fires.geojson
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/couchcryptid/wildfire-globe-service/internal/domain"
)

// listFlag collects a repeated string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var sources, inputs listFlag
	flag.Var(&sources, "source", "FIRMS source ID for the matching -in file (repeatable)")
	flag.Var(&inputs, "in", "FIRMS area CSV file (repeatable)")
	out := flag.String("out", "", "output path for the GeoJSON FeatureCollection (default stdout)")
	flag.Parse()

	if len(inputs) == 0 || len(sources) != len(inputs) {
		flag.Usage()
		return errors.New("each -in needs a matching -source")
	}

	var records []domain.FireRecord //nolint:prealloc // size depends on CSV file contents
	for i, path := range inputs {
		sat := domain.SatelliteByID(sources[i])
		recs, err := processCSV(path, sat)
		if err != nil {
			return fmt.Errorf("processing %s: %w", path, err)
		}
		records = append(records, recs...)
		log.Printf("%s: %d hotspots", sat.Name, len(recs))
	}
	log.Printf("total: %d hotspots", len(records))

	if err := writeJSON(*out, domain.FeatureCollection(records)); err != nil {
		return fmt.Errorf("writing GeoJSON: %w", err)
	}
	if *out != "" {
		log.Printf("wrote GeoJSON: %s", *out)
	}

	printStats(records)
	return nil
}

func processCSV(path string, sat domain.Satellite) ([]domain.FireRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	body := string(b)
	if err := domain.ValidateHotspotBody(body); err != nil {
		return nil, err
	}
	return domain.ParseHotspotCSV(body, sat.Name), nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// printStats summarizes hotspots per source and confidence class on stderr.
func printStats(records []domain.FireRecord) {
	if len(records) == 0 {
		return
	}
	counts := map[string]map[string]int{}
	var maxFRP domain.FireRecord
	for _, r := range records {
		if counts[r.Source] == nil {
			counts[r.Source] = map[string]int{}
		}
		counts[r.Source][r.Confidence]++
		if r.Intensity > maxFRP.Intensity {
			maxFRP = r
		}
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	log.Println("--- confidence by source ---")
	for _, name := range names {
		classes := make([]string, 0, len(counts[name]))
		for c, n := range counts[name] {
			classes = append(classes, fmt.Sprintf("%s=%d", c, n))
		}
		sort.Strings(classes)
		log.Printf("  %-16s %s", name, strings.Join(classes, " "))
	}
	log.Printf("strongest: %.1f MW at %.4f,%.4f (%s %s)", maxFRP.Intensity, maxFRP.Lat, maxFRP.Lon, maxFRP.Date, maxFRP.Time)
}
