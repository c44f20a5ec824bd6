package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/bike-crash-explorer/internal/adapter/http"
	"github.com/couchcryptid/bike-crash-explorer/internal/adapter/tiles"
	"github.com/couchcryptid/bike-crash-explorer/internal/basemap"
	"github.com/couchcryptid/bike-crash-explorer/internal/dataset"
	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
	"github.com/couchcryptid/bike-crash-explorer/internal/geo"
	"github.com/couchcryptid/bike-crash-explorer/internal/observability"
	"github.com/couchcryptid/bike-crash-explorer/internal/pipeline"
)

const mockPath = "../../../data/mock/bike_crashes_mock.csv"

var ncBox = geo.Box{LatMin: 33.75, LonMin: -84.4, LatMax: 36.65, LonMax: -75.4}

// --- mocks ---

type mockSource struct {
	snap *dataset.Snapshot
}

func (m *mockSource) Snapshot() (*dataset.Snapshot, bool) {
	return m.snap, m.snap != nil
}

func (m *mockSource) Reload(_ context.Context) (*dataset.Snapshot, error) {
	if m.snap == nil {
		return nil, errors.New("no file")
	}
	next := *m.snap
	next.Version++
	m.snap = &next
	return m.snap, nil
}

type mockFetcher struct {
	err   error
	calls []string
}

func (m *mockFetcher) Fetch(_ context.Context, p basemap.Provider, t maptile.Tile) (tiles.Image, error) {
	m.calls = append(m.calls, p.Name)
	if m.err != nil {
		return tiles.Image{}, m.err
	}
	return tiles.Image{Data: []byte("\x89PNG fake"), ContentType: "image/png"}, nil
}

// --- helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mockSnapshot(t *testing.T, projector *geo.Projector) *dataset.Snapshot {
	t.Helper()
	records, stats, err := dataset.LoadFile(context.Background(), mockPath, dataset.DefaultOptions())
	require.NoError(t, err)
	points, drops := projector.Project(records, domain.FieldLatitude, domain.FieldLongitude)
	extent, ok := geo.Extent(points)
	require.True(t, ok)
	return &dataset.Snapshot{Records: records, Stats: stats, Drops: drops, Extent: extent, Version: 1}
}

func newTestServer(t *testing.T, loaded bool, opts httpadapter.Options) *httpadapter.Server {
	t.Helper()
	projector, err := geo.NewProjector(ncBox)
	require.NoError(t, err)
	src := &mockSource{}
	if loaded {
		src.snap = mockSnapshot(t, projector)
	}
	p := pipeline.New(src, projector, 40, clockwork.NewFakeClock(), testLogger(), observability.NewMetricsForTesting())
	if opts.BasemapStyle == "" {
		opts.BasemapStyle = "gray"
	}
	return httpadapter.NewServer(":0", p, opts, testLogger())
}

func get(t *testing.T, srv http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// --- health ---

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, false, httpadapter.Options{})
	rec := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz_Loaded(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})
	rec := get(t, srv, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz_NotLoaded(t *testing.T) {
	srv := newTestServer(t, false, httpadapter.Options{})
	rec := get(t, srv, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})
	rec := get(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIndex(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})
	rec := get(t, srv, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Bike Crash Explorer")

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/nope").Code)
}

// --- JSON API ---

func TestChoices(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})
	rec := get(t, srv, "/api/choices")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, []any{"Any", "Yes", "No"}, body["alcohol"])
	assert.Contains(t, body["feature"], "Any")
	assert.Contains(t, body["categories"], "LightCond")
}

func TestHexbin(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})
	rec := get(t, srv, "/api/hexbin")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.InDelta(t, 30, body["records"], 0)
	assert.InDelta(t, 40, body["grid_size"], 0)
	drops := body["drops"].(map[string]any)
	assert.InDelta(t, 1, drops["missing"], 0)
	assert.InDelta(t, 1, drops["out_of_range"], 0)
	assert.NotEmpty(t, body["bins"])
}

func TestHexbin_NotLoaded(t *testing.T) {
	srv := newTestServer(t, false, httpadapter.Options{})
	rec := get(t, srv, "/api/hexbin")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHexbin_InvalidChoice(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})

	for _, target := range []string{
		"/api/hexbin?alcohol=Maybe",
		"/api/hexbin?hour=noon",
		"/api/hexbin?hour=24",
		"/api/hexbin?month=Smarch",
	} {
		rec := get(t, srv, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestHexbin_NoData(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})
	rec := get(t, srv, "/api/hexbin?light=Dawn")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["no_data"])
	assert.Equal(t, "No data for selected filters", body["message"])
}

func TestHover(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})

	hex := decode(t, get(t, srv, "/api/hexbin"))
	bin := hex["bins"].([]any)[0].(map[string]any)
	x, y := bin["x"].(float64), bin["y"].(float64)

	rec := get(t, srv, "/api/hover?x="+ftoa(x)+"&y="+ftoa(y))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["hit"])
	tip := body["tooltip"].(map[string]any)
	assert.Equal(t, bin["count"], tip["total"])
	assert.Contains(t, tip["text"], "Crash Severity Counts:")
	assert.Len(t, body["anchor"], 2)
}

func TestHover_Miss(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})
	rec := get(t, srv, "/api/hover?x=0&y=0")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["hit"])
	assert.NotContains(t, body, "tooltip")
}

func TestHover_LatLon(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})

	hex := decode(t, get(t, srv, "/api/hexbin"))
	bin := hex["bins"].([]any)[0].(map[string]any)
	rec := get(t, srv, "/api/hover?lat="+ftoa(bin["lat"].(float64))+"&lon="+ftoa(bin["lon"].(float64)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["hit"])
}

func TestHover_BadCursor(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/hover?x=left&y=1").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/hover?lat=35.9").Code)
}

func TestFrames(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})
	rec := get(t, srv, "/api/frames")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	frames := body["frames"].([]any)
	require.Len(t, frames, 3)
	assert.InDelta(t, 2010, frames[0].(map[string]any)["year"], 0)
	assert.Positive(t, body["max_count"])
}

func TestMatrix(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})
	rec := get(t, srv, "/api/matrix")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Len(t, body["columns"], 3)
	assert.Len(t, body["rows"], 2)

	noData := decode(t, get(t, srv, "/api/matrix?hitrun=Yes"))
	assert.Equal(t, true, noData["no_data"])
	assert.Contains(t, noData["message"], "No data available")
	assert.Contains(t, noData["message"], "Roadway Feature")
}

func TestTemporal(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})
	rec := get(t, srv, "/api/temporal")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.NotEmpty(t, body["monthly"])
	assert.NotEmpty(t, body["hourly"])
}

func TestHistogram(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})
	rec := get(t, srv, "/api/histogram")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.InDelta(t, 30, body["total"], 0)
	assert.Equal(t, "Bike Injury By Severity (30 accidents)", body["title"])
	assert.Len(t, body["bars"], 6)
}

func TestSmallMultiples(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})

	rec := get(t, srv, "/api/small-multiples?category=LightCond")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "LightCond", body["category"])
	assert.Len(t, body["panels"], 3)

	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/small-multiples?category=HitRun").Code)
}

func TestGroups(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})

	rec := get(t, srv, "/api/groups?column=HitRun")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, map[string]any{"No": 26.0, "Yes": 4.0}, body["flat"])

	nested := decode(t, get(t, srv, "/api/groups?column=HitRun&group=CrashAlcoh"))
	assert.Equal(t, []any{"CrashAlcoh"}, nested["groups"])
	assert.NotEmpty(t, nested["nested"])

	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/groups").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/groups?column=Latitude").Code)
}

func TestReload(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/reload", http.NoBody)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.InDelta(t, 2, body["version"], 0)
	assert.InDelta(t, 30, body["records"], 0)

	assert.Equal(t, http.StatusMethodNotAllowed, get(t, srv, "/api/reload").Code)
}

func TestReload_Failure(t *testing.T) {
	srv := newTestServer(t, false, httpadapter.Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/reload", http.NoBody)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// --- rendered views ---

func TestHexbinSVG(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})
	rec := get(t, srv, "/view/hexbin.svg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))

	svg := rec.Body.String()
	assert.Contains(t, svg, "data-xmin=")
	assert.Contains(t, svg, "data-bin=")
	assert.NotContains(t, svg, `id="basemap"`)
}

func TestHexbinSVG_Year(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})

	rec := get(t, srv, "/view/hexbin.svg?year=2011")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bike Crash Density, 2011")

	missing := get(t, srv, "/view/hexbin.svg?year=1999")
	require.Equal(t, http.StatusOK, missing.Code)
	assert.Contains(t, missing.Body.String(), "No data for selected filters")
	assert.NotContains(t, missing.Body.String(), "Roadway Feature")

	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/view/hexbin.svg?year=later").Code)
}

func TestHexbinSVG_NoData(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})
	rec := get(t, srv, "/view/hexbin.svg?light=Dawn&dark=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "No data for selected filters")
	assert.NotContains(t, rec.Body.String(), "Roadway Feature")
	assert.Contains(t, rec.Body.String(), "#1a1a1a")
}

func TestMatrixSVG_NoData(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})
	rec := get(t, srv, "/view/matrix.svg?hitrun=Yes")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Roadway Feature")
}

func TestHexbinSVG_InvalidDark(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/view/hexbin.svg?dark=sometimes").Code)
}

func TestHexbinSVG_WithTiles(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{Tiles: &mockFetcher{}, TilesMax: 4})

	light := get(t, srv, "/view/hexbin.svg?style=topo")
	require.Equal(t, http.StatusOK, light.Code)
	assert.Contains(t, light.Body.String(), `id="basemap"`)
	assert.Contains(t, light.Body.String(), "/tiles/topo/")
	assert.Contains(t, light.Body.String(), basemap.EsriWorldTopoMap.Attribution)

	dark := get(t, srv, "/view/hexbin.svg?dark=1")
	assert.Contains(t, dark.Body.String(), "/tiles/dark/")
}

func TestMatrixSVG(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})
	rec := get(t, srv, "/view/matrix.svg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Smooth Asphalt")
}

func TestSmallMultiplesSVG(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})
	rec := get(t, srv, "/view/small-multiples.svg?category=SpeedLimit")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Crash Severity by SpeedLimit")

	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/view/small-multiples.svg?category=Bogus").Code)
}

func TestChartPNGs(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})

	for _, target := range []string{"/view/histogram.png", "/view/monthly.png", "/view/hourly.png"} {
		rec := get(t, srv, target)
		require.Equal(t, http.StatusOK, rec.Code, target)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"), target)
		assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"), target)
	}
}

func TestChartPNGs_NoData(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})
	rec := get(t, srv, "/view/histogram.png?light=Dawn")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
}

// --- tile proxy ---

func TestTiles(t *testing.T) {
	fetcher := &mockFetcher{}
	srv := newTestServer(t, true, httpadapter.Options{Tiles: fetcher, TilesMax: 4})

	rec := get(t, srv, "/tiles/gray/3/1/2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "max-age")

	get(t, srv, "/tiles/dark/3/1/2")
	assert.Equal(t, []string{basemap.EsriWorldGrayCanvas.Name, basemap.CartoDarkMatter.Name}, fetcher.calls)
}

func TestTiles_InvalidAddress(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{Tiles: &mockFetcher{}, TilesMax: 4})

	for _, target := range []string{"/tiles/gray/3/8/0", "/tiles/gray/3/0/8", "/tiles/gray/x/0/0", "/tiles/gray/40/0/0"} {
		assert.Equal(t, http.StatusBadRequest, get(t, srv, target).Code, target)
	}
}

func TestTiles_UpstreamErrors(t *testing.T) {
	notFound := newTestServer(t, true, httpadapter.Options{Tiles: &mockFetcher{err: tiles.ErrTileNotFound}})
	assert.Equal(t, http.StatusNotFound, get(t, notFound, "/tiles/gray/3/1/2").Code)

	broken := newTestServer(t, true, httpadapter.Options{Tiles: &mockFetcher{err: errors.New("connection reset")}})
	assert.Equal(t, http.StatusBadGateway, get(t, broken, "/tiles/gray/3/1/2").Code)
}

func TestTiles_Disabled(t *testing.T) {
	srv := newTestServer(t, true, httpadapter.Options{})
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/tiles/gray/3/1/2").Code)
}
