package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/couchcryptid/wildfire-globe-service/internal/adapter/sqlite"
	"github.com/couchcryptid/wildfire-globe-service/internal/domain"
	"github.com/couchcryptid/wildfire-globe-service/internal/mapview"
	"github.com/couchcryptid/wildfire-globe-service/internal/pipeline"
)

// maxArchiveLimit caps the archive listing page size.
const maxArchiveLimit = 1000

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Client)
}

func (s *Server) handleStyle(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Map.Snapshot().Style)
}

func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Controls.View(s.svc.Map))
}

func (s *Server) handleToggle(w http.ResponseWriter, _ *http.Request) {
	s.svc.Controls.Projection.Toggle()
	s.metrics.ViewChanges.WithLabelValues("projection").Inc()
	writeJSON(w, http.StatusOK, s.svc.Controls.View(s.svc.Map))
}

func (s *Server) handleBasemap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.svc.Controls.Basemap.Select(req.Mode); err != nil {
		s.selectError(w, err)
		return
	}
	s.metrics.ViewChanges.WithLabelValues("basemap").Inc()
	writeJSON(w, http.StatusOK, s.svc.Controls.View(s.svc.Map))
}

func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Overlay string `json:"overlay"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.svc.Controls.Overlay.Select(req.Overlay); err != nil {
		s.selectError(w, err)
		return
	}
	s.metrics.ViewChanges.WithLabelValues("overlay").Inc()
	writeJSON(w, http.StatusOK, s.svc.Controls.View(s.svc.Map))
}

func (s *Server) selectError(w http.ResponseWriter, err error) {
	if errors.Is(err, mapview.ErrUnknownMode) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error("view change failed", "error", err)
	writeError(w, http.StatusInternalServerError, "view change failed")
}

func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	at, err := req.point()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	text := s.svc.Controls.Readout.PointerMove(at)
	overFire := s.svc.Fires.Hover(at)
	writeJSON(w, http.StatusOK, map[string]any{
		"readout":   text,
		"over_fire": overFire,
		"cursor":    s.svc.Map.Snapshot().Cursor,
	})
}

func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		West  *float64 `json:"west"`
		South *float64 `json:"south"`
		East  *float64 `json:"east"`
		North *float64 `json:"north"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.West == nil || req.South == nil || req.East == nil || req.North == nil {
		writeError(w, http.StatusBadRequest, "west, south, east and north are required")
		return
	}

	bounds := domain.NewBounds(*req.West, *req.South, *req.East, *req.North)
	s.svc.Map.SetBounds(bounds)
	s.svc.Fires.ViewportSettled()
	writeJSON(w, http.StatusAccepted, map[string]string{"bbox": domain.FormatBBox(bounds)})
}

func (s *Server) handleFires(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Fires.FeatureCollection())
}

func (s *Server) handleFiresLoad(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Fires.Load(r.Context(), pipeline.TriggerManual)
	switch {
	case errors.Is(err, pipeline.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, "fire overlay disabled: no FIRMS key configured")
		return
	case err != nil:
		s.logger.Error("manual fire load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "fire load failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"features":   len(snap.Records),
		"fetched_at": snap.FetchedAt,
	})
}

func (s *Server) handleFiresClick(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	at, err := req.point()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hit, err := s.svc.Fires.Click(at)
	switch {
	case errors.Is(err, pipeline.ErrNoHotspot):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		s.logger.Error("fire click failed", "error", err)
		writeError(w, http.StatusInternalServerError, "fire popup failed")
		return
	}
	writeJSON(w, http.StatusOK, hit)
}

func (s *Server) handleFiresArchive(w http.ResponseWriter, r *http.Request) {
	if s.svc.Archive == nil {
		writeError(w, http.StatusServiceUnavailable, "hotspot archive not configured")
		return
	}

	limit := sqlite.DefaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxArchiveLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxArchiveLimit))
			return
		}
		limit = n
	}

	rows, err := s.svc.Archive.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("archive query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "archive query failed")
		return
	}
	if rows == nil {
		rows = []sqlite.ArchivedHotspot{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	at, err := queryPoint(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.svc.Inspector.Inspect(r.Context(), at)
	switch {
	case errors.Is(err, pipeline.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, "inspector disabled: no OpenWeather key configured")
		return
	case err != nil:
		// The popup already shows the failure message; hand it back too.
		writeJSON(w, http.StatusBadGateway, out)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSpread(w http.ResponseWriter, r *http.Request) {
	at, err := queryPoint(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cone, err := s.svc.Inspector.Spread(r.Context(), at)
	switch {
	case errors.Is(err, pipeline.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, "inspector disabled: no OpenWeather key configured")
		return
	case err != nil:
		s.logger.Warn("spread prediction failed", "error", err)
		writeError(w, http.StatusBadGateway, "weather unavailable")
		return
	}
	writeJSON(w, http.StatusOK, cone)
}

func (s *Server) handlePopup(w http.ResponseWriter, r *http.Request) {
	p, ok := s.svc.Map.Popup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "popup not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
