package pipeline

import (
	"context"

	"github.com/couchcryptid/wildfire-globe-service/internal/domain"
)

// HotspotSink receives every successfully rendered snapshot. Failures are
// logged and counted by the overlay and never fail the load.
type HotspotSink interface {
	Name() string
	Publish(ctx context.Context, snap domain.FireSnapshot) error
}
