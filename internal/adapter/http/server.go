package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang/geo/r2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/bike-crash-explorer/internal/adapter/tiles"
	"github.com/couchcryptid/bike-crash-explorer/internal/breakdown"
	"github.com/couchcryptid/bike-crash-explorer/internal/dataset"
	"github.com/couchcryptid/bike-crash-explorer/internal/filter"
	"github.com/couchcryptid/bike-crash-explorer/internal/hover"
	"github.com/couchcryptid/bike-crash-explorer/internal/matrix"
	"github.com/couchcryptid/bike-crash-explorer/internal/pipeline"
)

// Views computes every view the server exposes.
type Views interface {
	sharedobs.ReadinessChecker
	Hex(c filter.Criteria) (*pipeline.HexView, error)
	Hover(c filter.Criteria, cursor r2.Point) (hover.Tooltip, bool, error)
	Frames(c filter.Criteria) (*pipeline.FramesView, error)
	Matrix(c filter.Criteria) (*matrix.Grid, error)
	Temporal(c filter.Criteria) (*pipeline.TemporalView, error)
	Histogram(c filter.Criteria) (breakdown.Histogram, error)
	SmallMultiples(c filter.Criteria, category string) ([]breakdown.Panel, error)
	Groups(c filter.Criteria, column string, groups []string) (breakdown.Groups, error)
	Choices(c filter.Criteria) (*pipeline.Choices, error)
	Reload(ctx context.Context) (*dataset.Snapshot, error)
}

// Options holds the viewer defaults a request may override.
type Options struct {
	BasemapStyle string
	DarkMode     bool
	// Tiles proxies basemap tiles when set; nil draws maps without a basemap.
	Tiles    tiles.Fetcher
	TilesMax int
}

// Server exposes the explorer's views alongside health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	views      Views
	opts       Options
	logger     *slog.Logger
}

// NewServer creates the viewer HTTP server.
func NewServer(addr string, views Views, opts Options, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		views:  views,
		opts:   opts,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(views))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /{$}", s.handleIndex)

	mux.HandleFunc("GET /api/choices", s.handleChoices)
	mux.HandleFunc("GET /api/hexbin", s.handleHexbin)
	mux.HandleFunc("GET /api/hover", s.handleHover)
	mux.HandleFunc("GET /api/frames", s.handleFrames)
	mux.HandleFunc("GET /api/matrix", s.handleMatrix)
	mux.HandleFunc("GET /api/temporal", s.handleTemporal)
	mux.HandleFunc("GET /api/histogram", s.handleHistogram)
	mux.HandleFunc("GET /api/small-multiples", s.handleSmallMultiples)
	mux.HandleFunc("GET /api/groups", s.handleGroups)
	mux.HandleFunc("POST /api/reload", s.handleReload)

	mux.HandleFunc("GET /view/hexbin.svg", s.handleHexbinSVG)
	mux.HandleFunc("GET /view/matrix.svg", s.handleMatrixSVG)
	mux.HandleFunc("GET /view/small-multiples.svg", s.handleSmallMultiplesSVG)
	mux.HandleFunc("GET /view/histogram.png", s.handleHistogramPNG)
	mux.HandleFunc("GET /view/monthly.png", s.handleMonthlyPNG)
	mux.HandleFunc("GET /view/hourly.png", s.handleHourlyPNG)

	if opts.Tiles != nil {
		mux.HandleFunc("GET /tiles/{style}/{z}/{x}/{y}", s.handleTile)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr, "tiles", s.opts.Tiles != nil)
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
