package mapview

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/wildfire-globe-service/internal/mapstyle"
)

// RegisterLayers adds the supplementary sources and layers once the map has
// loaded. Weather tile overlays are skipped without a weather key. Imagery
// supplements go below the road layer when it exists.
func RegisterLayers(h Handle, weatherKey string, logger *slog.Logger) error {
	return h.WhenLoaded(func() error {
		added := 0
		for _, sup := range mapstyle.Supplements(weatherKey) {
			if sup.NeedsWeatherKey && weatherKey == "" {
				continue
			}
			if sup.SourceID != "" && !h.HasSource(sup.SourceID) {
				if err := h.AddSource(sup.SourceID, sup.Source); err != nil {
					return fmt.Errorf("register layers: %w", err)
				}
			}
			for _, layer := range sup.Layers {
				if h.HasLayer(layer.ID) {
					continue
				}
				if err := h.AddLayer(layer, ""); err != nil {
					return fmt.Errorf("register layers: %w", err)
				}
				if sup.Below != "" && h.HasLayer(sup.Below) {
					if err := h.MoveLayer(layer.ID, sup.Below); err != nil {
						return fmt.Errorf("register layers: %w", err)
					}
				}
				added++
			}
		}
		logger.Info("supplementary layers registered", "layers", added, "weather_overlays", weatherKey != "")
		return nil
	})
}
