package pipeline

import (
	"context"
	"log/slog"
	"slices"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/wildfire-globe-service/internal/domain"
)

// fetchAll queries every source concurrently and concatenates the results
// in source order, each source keeping its row order. A viewport crossing the
// antimeridian is queried as two boxes, west part first. A failing source is
// logged and left out.
func fetchAll(ctx context.Context, fetcher HotspotFetcher, sources []domain.Satellite, bbox orb.Bound, logger *slog.Logger) []domain.FireRecord {
	results := make([][]domain.FireRecord, len(sources))
	boxes := domain.SplitAntimeridian(bbox)

	var g errgroup.Group
	for i, sat := range sources {
		g.Go(func() error {
			var records []domain.FireRecord
			for _, box := range boxes {
				part, err := fetcher.FetchHotspots(ctx, sat, box)
				if err != nil {
					logger.Warn("hotspot source skipped", "source", sat.ID, "bbox", domain.FormatBBox(box), "error", err)
					return nil
				}
				records = append(records, part...)
			}
			results[i] = records
			return nil
		})
	}
	_ = g.Wait()

	return slices.Concat(results...)
}
