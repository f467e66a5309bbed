package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/wildfire-globe-service/internal/adapter/sqlite"
	"github.com/couchcryptid/wildfire-globe-service/internal/config"
	"github.com/couchcryptid/wildfire-globe-service/internal/mapview"
	"github.com/couchcryptid/wildfire-globe-service/internal/observability"
	"github.com/couchcryptid/wildfire-globe-service/internal/pipeline"
)

// ArchiveReader lists archived hotspots.
type ArchiveReader interface {
	Recent(ctx context.Context, limit int) ([]sqlite.ArchivedHotspot, error)
}

// Services are the initialized components the handlers drive. Archive is
// nil when no archive database is configured.
type Services struct {
	Client    config.ClientConfig
	Map       *mapview.Map
	Controls  *mapview.Controls
	Fires     *pipeline.FireOverlay
	Inspector *pipeline.Inspector
	Archive   ArchiveReader
}

// Server exposes the map API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	svc        Services
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with every route registered.
func NewServer(addr string, svc Services, ready sharedobs.ReadinessChecker, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      requestLogger(logger, mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second, // a manual fire load waits on FIRMS
			IdleTimeout:  60 * time.Second,
		},
		svc:     svc,
		metrics: metrics,
		logger:  logger,
	}

	mux.HandleFunc("GET /config", s.handleConfig)
	mux.HandleFunc("GET /style.json", s.handleStyle)

	mux.HandleFunc("GET /api/view", s.handleView)
	mux.HandleFunc("POST /api/view/projection/toggle", s.handleToggle)
	mux.HandleFunc("PUT /api/view/basemap", s.handleBasemap)
	mux.HandleFunc("PUT /api/view/overlay", s.handleOverlay)
	mux.HandleFunc("POST /api/view/pointer", s.handlePointer)
	mux.HandleFunc("POST /api/view/viewport", s.handleViewport)

	mux.HandleFunc("GET /api/fires", s.handleFires)
	mux.HandleFunc("POST /api/fires/load", s.handleFiresLoad)
	mux.HandleFunc("POST /api/fires/click", s.handleFiresClick)
	mux.HandleFunc("GET /api/fires/archive", s.handleFiresArchive)

	mux.HandleFunc("GET /api/inspect", s.handleInspect)
	mux.HandleFunc("GET /api/spread", s.handleSpread)
	mux.HandleFunc("GET /api/popups/{id}", s.handlePopup)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
