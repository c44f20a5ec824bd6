package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/couchcryptid/bike-crash-explorer/internal/basemap"
	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
	"github.com/couchcryptid/bike-crash-explorer/internal/hexbin"
	"github.com/couchcryptid/bike-crash-explorer/internal/pipeline"
	"github.com/couchcryptid/bike-crash-explorer/internal/render"
)

const (
	contentSVG = "image/svg+xml"
	contentPNG = "image/png"
	mapWidth   = 900
)

// writeImage renders into a buffer first so a drawing error still produces a clean 500.
func (s *Server) writeImage(w http.ResponseWriter, r *http.Request, contentType string, draw func(io.Writer) error) {
	var buf bytes.Buffer
	if err := draw(&buf); err != nil {
		s.logger.Error("render failed", "path", r.URL.Path, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck // client may have gone away
}

// writeViewError is writeError for image routes: no data draws the placeholder figure.
func (s *Server) writeViewError(w http.ResponseWriter, r *http.Request, err error, theme basemap.Theme) {
	if errors.Is(err, pipeline.ErrNoData) {
		s.writeImage(w, r, contentSVG, func(w io.Writer) error {
			return render.Placeholder(w, mapWidth, 0, noDataMessage(r), theme)
		})
		return
	}
	s.writeError(w, r, err)
}

func (s *Server) handleHexbinSVG(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	look, err := s.appearanceFromQuery(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := criteriaFromQuery(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var (
		binning  *hexbin.Binning
		maxCount int
		title    = "Bike Crash Density"
	)
	if y := q.Get("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid year %q", y)})
			return
		}
		frames, err := s.views.Frames(c)
		if err != nil {
			s.writeViewError(w, r, err, look.theme)
			return
		}
		for _, f := range frames.Frames {
			if f.Year == year {
				binning = f.Binning
			}
		}
		if binning == nil {
			s.writeViewError(w, r, pipeline.ErrNoData, look.theme)
			return
		}
		maxCount = frames.MaxCount
		title = fmt.Sprintf("Bike Crash Density, %d", year)
	} else {
		view, err := s.views.Hex(c)
		if err != nil {
			s.writeViewError(w, r, err, look.theme)
			return
		}
		binning = view.Binning
	}

	opts := render.MapOptions{
		Width:    mapWidth,
		Title:    title,
		Theme:    look.theme,
		MaxCount: maxCount,
	}
	if s.opts.Tiles != nil {
		opts.Tiles, opts.Attribution = s.basemapTiles(binning, look)
	}
	s.writeImage(w, r, contentSVG, func(w io.Writer) error {
		return render.HexMap(w, binning, opts)
	})
}

// basemapTiles covers the drawn map with proxied tile URLs. A map that cannot be covered
// is drawn without a basemap.
func (s *Server) basemapTiles(b *hexbin.Binning, look appearance) ([]render.Tile, string) {
	refs, _, err := basemap.Cover(render.MapView(b), s.opts.TilesMax, look.provider.MaxZoom)
	if err != nil {
		s.logger.Warn("basemap cover failed", "provider", look.provider.Name, "error", err)
		return nil, ""
	}
	tiles := make([]render.Tile, len(refs))
	for i, ref := range refs {
		tiles[i] = render.Tile{
			Href:   fmt.Sprintf("/tiles/%s/%d/%d/%d", look.tileStyle(), ref.Tile.Z, ref.Tile.X, ref.Tile.Y),
			Bounds: ref.Bounds,
		}
	}
	return tiles, look.provider.Attribution
}

func (s *Server) handleMatrixSVG(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	look, err := s.appearanceFromQuery(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := criteriaFromQuery(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	grid, err := s.views.Matrix(c)
	if err != nil {
		s.writeViewError(w, r, err, look.theme)
		return
	}
	s.writeImage(w, r, contentSVG, func(w io.Writer) error {
		return render.SeverityMatrix(w, grid, look.theme)
	})
}

func (s *Server) handleSmallMultiplesSVG(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	look, err := s.appearanceFromQuery(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := criteriaFromQuery(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	category := q.Get("category")
	if category == "" {
		category = domain.FieldLightCond
	}
	panels, err := s.views.SmallMultiples(c, category)
	if err != nil {
		s.writeViewError(w, r, err, look.theme)
		return
	}
	s.writeImage(w, r, contentSVG, func(w io.Writer) error {
		return render.SmallMultiples(w, category, panels, look.theme)
	})
}

func (s *Server) handleHistogramPNG(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	look, err := s.appearanceFromQuery(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := criteriaFromQuery(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	h, err := s.views.Histogram(c)
	if err != nil {
		s.writeViewError(w, r, err, look.theme)
		return
	}
	s.writeImage(w, r, contentPNG, func(w io.Writer) error {
		return render.SeverityHistogram(w, h, look.theme)
	})
}

func (s *Server) handleMonthlyPNG(w http.ResponseWriter, r *http.Request) {
	s.handleTemporalPNG(w, r, func(view *pipeline.TemporalView) func(io.Writer, basemap.Theme) error {
		if len(view.Monthly) == 0 {
			return nil
		}
		return func(w io.Writer, theme basemap.Theme) error { return render.MonthlyByYear(w, view.Monthly, theme) }
	})
}

func (s *Server) handleHourlyPNG(w http.ResponseWriter, r *http.Request) {
	s.handleTemporalPNG(w, r, func(view *pipeline.TemporalView) func(io.Writer, basemap.Theme) error {
		if len(view.Hourly) == 0 {
			return nil
		}
		return func(w io.Writer, theme basemap.Theme) error { return render.HourlyByMonth(w, view.Hourly, theme) }
	})
}

// handleTemporalPNG draws one of the temporal charts. chart returns nil when its series
// is empty.
func (s *Server) handleTemporalPNG(w http.ResponseWriter, r *http.Request, chart func(*pipeline.TemporalView) func(io.Writer, basemap.Theme) error) {
	q := r.URL.Query()
	look, err := s.appearanceFromQuery(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := criteriaFromQuery(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.views.Temporal(c)
	if err != nil {
		s.writeViewError(w, r, err, look.theme)
		return
	}
	draw := chart(view)
	if draw == nil {
		s.writeViewError(w, r, pipeline.ErrNoData, look.theme)
		return
	}
	s.writeImage(w, r, contentPNG, func(w io.Writer) error {
		return draw(w, look.theme)
	})
}
