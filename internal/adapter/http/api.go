package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
	"github.com/couchcryptid/bike-crash-explorer/internal/filter"
	"github.com/couchcryptid/bike-crash-explorer/internal/geo"
	"github.com/couchcryptid/bike-crash-explorer/internal/hexbin"
	"github.com/couchcryptid/bike-crash-explorer/internal/hover"
	"github.com/couchcryptid/bike-crash-explorer/internal/matrix"
	"github.com/couchcryptid/bike-crash-explorer/internal/pipeline"
)

type errorResponse struct {
	Error string `json:"error"`
}

type noDataResponse struct {
	NoData  bool   `json:"no_data"`
	Message string `json:"message"`
}

const emptySelection = "No data for selected filters"

// noDataMessage is the placeholder text for the view behind r. Only the matrix explains
// its observation floor.
func noDataMessage(r *http.Request) string {
	switch r.URL.Path {
	case "/api/matrix", "/view/matrix.svg":
		return matrix.Placeholder
	}
	return emptySelection
}

// writeError maps view errors onto responses. A view with nothing to show is not a
// failure: it answers 200 with the placeholder message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, pipeline.ErrNoData):
		writeJSON(w, http.StatusOK, noDataResponse{NoData: true, Message: noDataMessage(r)})
	case errors.Is(err, filter.ErrInvalidChoice):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, pipeline.ErrNotLoaded):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("view failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

type binJSON struct {
	Index    int            `json:"index"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Lat      float64        `json:"lat"`
	Lon      float64        `json:"lon"`
	Count    int            `json:"count"`
	Severity map[string]int `json:"severity"`
}

type dropsJSON struct {
	Missing    int `json:"missing"`
	OutOfRange int `json:"out_of_range"`
}

type binningJSON struct {
	GridSize int        `json:"grid_size"`
	NX       int        `json:"nx"`
	NY       int        `json:"ny"`
	Tiles    int        `json:"tiles"`
	HexSize  float64    `json:"hex_size"`
	Extent   [4]float64 `json:"extent"` // xmin, ymin, xmax, ymax
	Points   int        `json:"points"`
	Outside  int        `json:"outside"`
	MaxCount int        `json:"max_count"`
	Bins     []binJSON  `json:"bins"`
}

func newBinningJSON(b *hexbin.Binning) binningJSON {
	out := binningJSON{
		GridSize: b.GridSize,
		NX:       b.NX,
		NY:       b.NY,
		Tiles:    b.Tiles,
		HexSize:  b.HexSize(),
		Extent:   [4]float64{b.Extent.X.Lo, b.Extent.Y.Lo, b.Extent.X.Hi, b.Extent.Y.Hi},
		Points:   b.Points,
		Outside:  b.Outside,
		MaxCount: b.MaxCount(),
		Bins:     make([]binJSON, len(b.Bins)),
	}
	for i, bin := range b.Bins {
		lat, lon := geo.ToLatLon(bin.Center)
		sev := make(map[string]int, len(bin.Severity))
		for k, v := range bin.Severity {
			sev[string(k)] = v
		}
		out.Bins[i] = binJSON{
			Index:    bin.Index,
			X:        bin.Center.X,
			Y:        bin.Center.Y,
			Lat:      lat,
			Lon:      lon,
			Count:    bin.Count,
			Severity: sev,
		}
	}
	return out
}

type hexResponse struct {
	Version uint64    `json:"version"`
	Records int       `json:"records"`
	Drops   dropsJSON `json:"drops"`
	binningJSON
}

func (s *Server) handleHexbin(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFromQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.views.Hex(c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hexResponse{
		Version:     view.Version,
		Records:     view.Records,
		Drops:       dropsJSON{Missing: view.Drops.Missing, OutOfRange: view.Drops.OutOfRange},
		binningJSON: newBinningJSON(view.Binning),
	})
}

type hoverResponse struct {
	Hit     bool           `json:"hit"`
	Tooltip *hover.Tooltip `json:"tooltip,omitempty"`
	Anchor  *[2]float64    `json:"anchor,omitempty"`
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := criteriaFromQuery(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cursor, err := cursorFromQuery(q)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	tip, ok, err := s.views.Hover(c, cursor)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, hoverResponse{})
		return
	}
	writeJSON(w, http.StatusOK, hoverResponse{
		Hit:     true,
		Tooltip: &tip,
		Anchor:  &[2]float64{tip.Anchor.X, tip.Anchor.Y},
	})
}

type frameJSON struct {
	Year    int          `json:"year"`
	Records int          `json:"records"`
	Binning *binningJSON `json:"binning,omitempty"`
}

type framesResponse struct {
	MaxCount int         `json:"max_count"`
	Frames   []frameJSON `json:"frames"`
}

func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFromQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.views.Frames(c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := framesResponse{MaxCount: view.MaxCount, Frames: make([]frameJSON, len(view.Frames))}
	for i, f := range view.Frames {
		resp.Frames[i] = frameJSON{Year: f.Year, Records: f.Records}
		if f.Binning != nil {
			b := newBinningJSON(f.Binning)
			resp.Frames[i].Binning = &b
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMatrix(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFromQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	grid, err := s.views.Matrix(c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

func (s *Server) handleTemporal(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFromQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.views.Temporal(c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFromQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	h, err := s.views.Histogram(c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"title": h.Title(),
		"total": h.Total,
		"bars":  h.Bars,
	})
}

func (s *Server) handleSmallMultiples(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
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
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"severity": domain.SeverityCategories,
		"panels":   panels,
	})
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := criteriaFromQuery(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	column := q.Get("column")
	if column == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "column is required"})
		return
	}
	var groups []string
	for _, g := range q["group"] {
		for _, part := range strings.Split(g, ",") {
			if part = strings.TrimSpace(part); part != "" {
				groups = append(groups, part)
			}
		}
	}
	g, err := s.views.Groups(c, column, groups)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleChoices(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFromQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ch, err := s.views.Choices(c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

type reloadResponse struct {
	Version  uint64    `json:"version"`
	Records  int       `json:"records"`
	Rows     int       `json:"rows"`
	LoadedAt time.Time `json:"loaded_at"`
	Drops    dropsJSON `json:"drops"`
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	snap, err := s.views.Reload(r.Context())
	if err != nil {
		s.logger.Error("dataset reload failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{
		Version:  snap.Version,
		Records:  len(snap.Records),
		Rows:     snap.Stats.Rows,
		LoadedAt: snap.LoadedAt,
		Drops:    dropsJSON{Missing: snap.Drops.Missing, OutOfRange: snap.Drops.OutOfRange},
	})
}
