package hexbin

import (
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
)

func point(x, y float64, sev domain.Severity) domain.ProjectedPoint {
	return domain.ProjectedPoint{
		Record: domain.CrashRecord{BikeInjury: sev},
		XY:     r2.Point{X: x, Y: y},
	}
}

func randomPoints(n int, seed int64) []domain.ProjectedPoint {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]domain.ProjectedPoint, n)
	for i := range pts {
		sev := domain.SeverityCategories[rng.Intn(len(domain.SeverityCategories))]
		pts[i] = point(rng.Float64()*1000, rng.Float64()*500, sev)
	}
	return pts
}

func extentOf(t *testing.T, pts []domain.ProjectedPoint) r2.Rect {
	t.Helper()
	xy := make([]r2.Point, len(pts))
	for i, p := range pts {
		xy[i] = p.XY
	}
	return r2.RectFromPoints(xy...)
}

func TestBin_Empty(t *testing.T) {
	_, err := Bin(nil, r2.RectFromPoints(r2.Point{}, r2.Point{X: 1, Y: 1}), DefaultGridSize)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestBin_InvalidGridSize(t *testing.T) {
	pts := []domain.ProjectedPoint{point(0, 0, domain.SeverityNone)}
	_, err := Bin(pts, extentOf(t, pts), 0)
	assert.Error(t, err)
}

func TestBin_CountsSumToPoints(t *testing.T) {
	pts := randomPoints(2000, 1)
	b, err := Bin(pts, extentOf(t, pts), DefaultGridSize)
	require.NoError(t, err)

	total := 0
	for _, hb := range b.Bins {
		assert.Positive(t, hb.Count, "empty tiles are omitted")
		sevTotal := 0
		for _, n := range hb.Severity {
			sevTotal += n
		}
		assert.Equal(t, hb.Count, sevTotal, "severity breakdown of bin %d", hb.Index)
		total += hb.Count
	}
	assert.Equal(t, len(pts), total)
	assert.Equal(t, len(pts), b.Points)
	assert.Zero(t, b.Outside)
}

func TestBin_CornersStayInside(t *testing.T) {
	pts := []domain.ProjectedPoint{
		point(0, 0, domain.SeverityNone),
		point(100, 0, domain.SeverityNone),
		point(0, 50, domain.SeverityNone),
		point(100, 50, domain.SeverityKilled),
	}
	b, err := Bin(pts, extentOf(t, pts), 10)
	require.NoError(t, err)
	assert.Equal(t, 4, b.Points)
	assert.Zero(t, b.Outside)
}

func TestBin_PointsOutsideExtent(t *testing.T) {
	pts := []domain.ProjectedPoint{
		point(10, 10, domain.SeverityNone),
		point(5000, 5000, domain.SeverityNone),
	}
	ext := r2.RectFromPoints(r2.Point{}, r2.Point{X: 100, Y: 100})
	b, err := Bin(pts, ext, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Points)
	assert.Equal(t, 1, b.Outside)
}

func TestBin_OrderIndependent(t *testing.T) {
	pts := randomPoints(500, 7)
	ext := extentOf(t, pts)

	first, err := Bin(pts, ext, 25)
	require.NoError(t, err)

	shuffled := append([]domain.ProjectedPoint(nil), pts...)
	rand.New(rand.NewSource(99)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	second, err := Bin(shuffled, ext, 25)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Bins, second.Bins); diff != "" {
		t.Errorf("bins differ after shuffle (-first +second):\n%s", diff)
	}
}

func TestBin_Deterministic(t *testing.T) {
	pts := randomPoints(300, 3)
	ext := extentOf(t, pts)
	a, err := Bin(pts, ext, DefaultGridSize)
	require.NoError(t, err)
	b, err := Bin(pts, ext, DefaultGridSize)
	require.NoError(t, err)
	assert.Equal(t, a.Bins, b.Bins)
}

func TestBin_CoincidentPointsShareBin(t *testing.T) {
	pts := []domain.ProjectedPoint{
		point(50, 50, domain.SeverityKilled),
		point(50, 50, domain.SeverityKilled),
		point(0, 0, domain.SeverityNone),
		point(100, 100, domain.SeverityNone),
	}
	b, err := Bin(pts, extentOf(t, pts), 10)
	require.NoError(t, err)

	var killed *HexBin
	for i := range b.Bins {
		if b.Bins[i].Severity[domain.SeverityKilled] > 0 {
			killed = &b.Bins[i]
		}
	}
	require.NotNil(t, killed)
	assert.Equal(t, 2, killed.Count)
	assert.Equal(t, map[domain.Severity]int{domain.SeverityKilled: 2}, killed.Severity)
}

func TestBin_SinglePoint(t *testing.T) {
	pts := []domain.ProjectedPoint{point(3, 4, domain.SeverityMinor), point(3, 4, domain.SeverityMinor)}
	b, err := Bin(pts, extentOf(t, pts), DefaultGridSize)
	require.NoError(t, err)
	require.Len(t, b.Bins, 1)
	assert.Equal(t, 2, b.Bins[0].Count)
	assert.Equal(t, 2, b.MaxCount())
}

func TestBin_AssignsNearestCenter(t *testing.T) {
	pts := randomPoints(400, 11)
	ext := extentOf(t, pts)
	b, err := Bin(pts, ext, 20)
	require.NoError(t, err)

	// Every point's tile center is within one hexagon of it in grid units.
	for _, p := range pts {
		idx, ok := b.tileOf(p.XY)
		require.True(t, ok)
		c := b.center(idx)
		dx := (p.XY.X - c.X) / b.sx
		dy := (p.XY.Y - c.Y) / b.sy
		assert.LessOrEqual(t, dx*dx+3*dy*dy, 1.0+1e-9)
	}
}

func TestBinning_Geometry(t *testing.T) {
	pts := []domain.ProjectedPoint{point(0, 0, domain.SeverityNone), point(400, 200, domain.SeverityNone)}
	b, err := Bin(pts, extentOf(t, pts), 40)
	require.NoError(t, err)

	assert.Equal(t, 40, b.NX)
	assert.Equal(t, 23, b.NY)
	assert.Equal(t, 41*24+40*23, b.Tiles)
	assert.InDelta(t, 10.0, b.HexSize(), 1e-6)

	hex := b.Hexagon(r2.Point{X: 100, Y: 100})
	for _, v := range hex {
		assert.InDelta(t, 100, v.X, b.sx/2+1e-9)
		assert.InDelta(t, 100, v.Y, b.sy/3+1e-9)
	}
}

func TestBin_BlankSeverityCountsTowardDensityOnly(t *testing.T) {
	pts := []domain.ProjectedPoint{
		point(0, 0, ""),
		point(0, 0, domain.SeverityMinor),
		point(100, 100, domain.SeverityMinor),
	}
	b, err := Bin(pts, extentOf(t, pts), 10)
	require.NoError(t, err)

	idx, ok := b.tileOf(r2.Point{X: 0, Y: 0})
	require.True(t, ok)
	var hb *HexBin
	for i := range b.Bins {
		if b.Bins[i].Index == idx {
			hb = &b.Bins[i]
		}
	}
	require.NotNil(t, hb)
	assert.Equal(t, 2, hb.Count)
	assert.Equal(t, map[domain.Severity]int{domain.SeverityMinor: 1}, hb.Severity)
	assert.Equal(t, 3, b.Points)
}
