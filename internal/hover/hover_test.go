package hover

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
	"github.com/couchcryptid/bike-crash-explorer/internal/geo"
	"github.com/couchcryptid/bike-crash-explorer/internal/hexbin"
)

func floatPtr(v float64) *float64 { return &v }

func crash(lat, lon float64, sev domain.Severity) domain.CrashRecord {
	return domain.CrashRecord{Latitude: floatPtr(lat), Longitude: floatPtr(lon), BikeInjury: sev}
}

func binPoints(t *testing.T, pts []domain.ProjectedPoint, gridSize int) *hexbin.Binning {
	t.Helper()
	ext, ok := geo.Extent(pts)
	require.True(t, ok)
	b, err := hexbin.Bin(pts, ext, gridSize)
	require.NoError(t, err)
	return b
}

func planar(x, y float64, sev domain.Severity) domain.ProjectedPoint {
	return domain.ProjectedPoint{Record: domain.CrashRecord{BikeInjury: sev}, XY: r2.Point{X: x, Y: y}}
}

func TestResolve_EndToEnd(t *testing.T) {
	records := []domain.CrashRecord{
		crash(35.5, -79.0, domain.SeverityKilled),
		crash(35.5, -79.0, domain.SeverityKilled),
		crash(10.0, -79.0, domain.SeverityNone),
	}
	proj, err := geo.NewProjector(geo.Box{LatMin: 33.75, LonMin: -84.4, LatMax: 36.65, LonMax: -75.4})
	require.NoError(t, err)

	pts, drops := proj.Project(records, domain.FieldLatitude, domain.FieldLongitude)
	require.Len(t, pts, 2)
	assert.Equal(t, 1, drops.OutOfRange)

	b := binPoints(t, pts, hexbin.DefaultGridSize)
	require.Len(t, b.Bins, 1)
	assert.Equal(t, map[domain.Severity]int{domain.SeverityKilled: 2}, b.Bins[0].Severity)

	s := NewSession(b)
	tip, ok := s.Resolve(b.Bins[0].Center)
	require.True(t, ok)
	assert.Equal(t, b.Bins[0].Center, tip.Anchor)
	assert.Equal(t, []SeverityCount{{Severity: domain.SeverityKilled, Count: 2}}, tip.Counts)
	assert.Equal(t, 2, tip.Total)
	assert.Equal(t, "Crash Severity Counts:\nK: Killed: 2", tip.Text)

	tip, ok = s.Resolve(pts[0].XY)
	require.True(t, ok, "the crash location itself is within one hex of its bin")
	assert.Equal(t, b.Bins[0].Index, tip.Bin)
}

func TestResolve_TooFar(t *testing.T) {
	b := binPoints(t, []domain.ProjectedPoint{
		planar(0, 0, domain.SeverityNone),
		planar(1000, 1000, domain.SeverityMinor),
	}, 10)
	s := NewSession(b)

	_, ok := s.Resolve(r2.Point{X: 500, Y: 500})
	assert.False(t, ok)

	_, ok = s.Resolve(r2.Point{X: -5000, Y: 0})
	assert.False(t, ok)

	tip, ok := s.Resolve(r2.Point{X: 2, Y: 3})
	require.True(t, ok)
	assert.Equal(t, domain.SeverityNone, tip.Counts[0].Severity)
}

func TestResolve_NearestOfSeveral(t *testing.T) {
	pts := []domain.ProjectedPoint{
		planar(0, 0, domain.SeverityNone),
		planar(100, 100, domain.SeverityKilled),
		planar(200, 0, domain.SeverityMinor),
		planar(0, 200, domain.SeveritySerious),
		planar(200, 200, domain.SeverityPossible),
	}
	b := binPoints(t, pts, 20)
	s := NewSession(b)

	for _, p := range pts {
		tip, ok := s.Resolve(p.XY)
		require.True(t, ok)
		require.Len(t, tip.Counts, 1)
		assert.Equal(t, p.Record.BikeInjury, tip.Counts[0].Severity)
	}
}

func TestResolve_SeverityOrder(t *testing.T) {
	pts := []domain.ProjectedPoint{
		planar(50, 50, domain.SeverityUnknown),
		planar(50, 50, domain.SeverityKilled),
		planar(50, 50, domain.SeverityNone),
		planar(50, 50, domain.SeverityKilled),
		planar(0, 0, domain.SeverityNone),
		planar(100, 100, domain.SeverityNone),
	}
	b := binPoints(t, pts, 10)
	tip, ok := NewSession(b).Resolve(r2.Point{X: 50, Y: 50})
	require.True(t, ok)

	assert.Equal(t, []SeverityCount{
		{Severity: domain.SeverityNone, Count: 1},
		{Severity: domain.SeverityKilled, Count: 2},
		{Severity: domain.SeverityUnknown, Count: 1},
	}, tip.Counts)
	assert.Equal(t, 4, tip.Total)
	assert.Equal(t, "Crash Severity Counts:\nO: No Injury: 1\nK: Killed: 2\nUnknown Injury: 1", tip.Text)
}

func TestPlacement(t *testing.T) {
	b := binPoints(t, []domain.ProjectedPoint{
		planar(0, 0, domain.SeverityNone),
		planar(1000, 0, domain.SeverityNone),
		planar(0, 1000, domain.SeverityNone),
		planar(1000, 1000, domain.SeverityNone),
	}, 10)
	s := NewSession(b)

	tests := []struct {
		name   string
		cursor r2.Point
		want   Placement
	}{
		{"lower left", r2.Point{X: 0, Y: 0}, Placement{HAlign: "left", VAlign: "bottom", OffsetX: 20, OffsetY: 20}},
		{"lower right", r2.Point{X: 1000, Y: 0}, Placement{HAlign: "right", VAlign: "bottom", OffsetX: -20, OffsetY: 20}},
		{"upper left", r2.Point{X: 0, Y: 1000}, Placement{HAlign: "left", VAlign: "top", OffsetX: 20, OffsetY: -20}},
		{"upper right", r2.Point{X: 1000, Y: 1000}, Placement{HAlign: "right", VAlign: "top", OffsetX: -20, OffsetY: -20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tip, ok := s.Resolve(tt.cursor)
			require.True(t, ok)
			assert.Equal(t, tt.want, tip.Placement)
		})
	}
}

func TestSession_NoBins(t *testing.T) {
	s := NewSession(&hexbin.Binning{GridSize: 10})
	_, ok := s.Resolve(r2.Point{})
	assert.False(t, ok)
}

func TestResolve_BlankSeverityOmitted(t *testing.T) {
	pts := []domain.ProjectedPoint{
		planar(50, 50, ""),
		planar(50, 50, domain.SeverityKilled),
		planar(0, 0, domain.SeverityNone),
		planar(100, 100, domain.SeverityNone),
	}
	b := binPoints(t, pts, 10)
	tip, ok := NewSession(b).Resolve(r2.Point{X: 50, Y: 50})
	require.True(t, ok)

	assert.Equal(t, []SeverityCount{{Severity: domain.SeverityKilled, Count: 1}}, tip.Counts)
	assert.Equal(t, "Crash Severity Counts:\nK: Killed: 1", tip.Text)
	assert.NotContains(t, tip.Text, "\n: ")
}
