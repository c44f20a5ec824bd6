// Package hexbin aggregates projected crash points into a hexagonal grid laid over a
// fixed planar extent.
//
// # Tiling
//
// The grid is the union of two rectangular lattices. With nx = gridSize columns and
// ny = int(nx/√3) rows, cell width sx = width/nx and height sy = height/ny:
//
//	lattice 1: (nx+1)·(ny+1) centers at (xmin + i·sx, ymin + j·sy)
//	lattice 2: nx·ny centers at (xmin + (i+½)·sx, ymin + (j+½)·sy)
//
// A point belongs to whichever of its two candidate centers (nearest lattice-1 corner,
// enclosing lattice-2 midpoint) is closer under dx² + 3·dy² measured in cell units,
// which makes each tile a regular hexagon in grid space. Lattice-1 tiles are indexed
// i·(ny+1)+j, lattice-2 tiles follow at (nx+1)·(ny+1) + i·ny + j.
package hexbin

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r2"

	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
)

// DefaultGridSize is the number of hexagon columns spanning the extent.
const DefaultGridSize = 40

// ErrNoData is returned by Bin when there are no points to aggregate. Callers render a
// placeholder instead of an empty grid.
var ErrNoData = errors.New("no data for selected filters")

// HexBin is one populated tile.
type HexBin struct {
	Index    int
	Center   r2.Point
	Count    int
	Severity map[domain.Severity]int
}

// Binning is the result of one aggregation pass. It is rebuilt on every filter change.
type Binning struct {
	Extent   r2.Rect
	GridSize int
	NX, NY   int
	// Tiles is the size of the full tiling, populated or not.
	Tiles int
	// Bins holds the populated tiles ordered by Index.
	Bins []HexBin
	// Points is the number of points assigned to a tile.
	Points int
	// Outside counts points that fell outside the extent.
	Outside int

	sx, sy     float64
	xmin, ymin float64
}

// Bin assigns every point to exactly one tile of the gridSize-column tiling of extent.
// Tiles with no points are omitted from Bins. The result does not depend on the order of
// points.
func Bin(points []domain.ProjectedPoint, extent r2.Rect, gridSize int) (*Binning, error) {
	if len(points) == 0 {
		return nil, ErrNoData
	}
	if gridSize < 1 {
		return nil, fmt.Errorf("grid size %d: must be positive", gridSize)
	}
	if extent.IsEmpty() {
		return nil, errors.New("bin points: empty extent")
	}

	b := newBinning(extent, gridSize)
	byIndex := make(map[int]*HexBin)
	for _, p := range points {
		idx, ok := b.tileOf(p.XY)
		if !ok {
			b.Outside++
			continue
		}
		hb, ok := byIndex[idx]
		if !ok {
			hb = &HexBin{Index: idx, Center: b.center(idx), Severity: make(map[domain.Severity]int)}
			byIndex[idx] = hb
		}
		hb.Count++
		if p.Record.BikeInjury != "" {
			hb.Severity[p.Record.BikeInjury]++
		}
		b.Points++
	}

	b.Bins = make([]HexBin, 0, len(byIndex))
	for _, hb := range byIndex {
		b.Bins = append(b.Bins, *hb)
	}
	sort.Slice(b.Bins, func(i, j int) bool { return b.Bins[i].Index < b.Bins[j].Index })
	return b, nil
}

func newBinning(extent r2.Rect, gridSize int) *Binning {
	xmin, xmax := nonsingular(extent.X.Lo, extent.X.Hi)
	ymin, ymax := nonsingular(extent.Y.Lo, extent.Y.Hi)

	nx := gridSize
	ny := int(float64(nx) / math.Sqrt(3))
	if ny < 1 {
		ny = 1
	}

	// Pad x so points on the right edge still round into the last column.
	padding := 1e-9 * (xmax - xmin)
	xmin -= padding
	xmax += padding

	return &Binning{
		Extent:   extent,
		GridSize: gridSize,
		NX:       nx,
		NY:       ny,
		Tiles:    (nx+1)*(ny+1) + nx*ny,
		sx:       (xmax - xmin) / float64(nx),
		sy:       (ymax - ymin) / float64(ny),
		xmin:     xmin,
		ymin:     ymin,
	}
}

// nonsingular widens a zero-width interval so a single-point extent still tiles.
func nonsingular(lo, hi float64) (float64, float64) {
	if hi > lo {
		return lo, hi
	}
	d := math.Max(math.Abs(lo)*0.05, 1)
	return lo - d, hi + d
}

// tileOf returns the tile index for p, or false when p lies outside the tiling.
func (b *Binning) tileOf(p r2.Point) (int, bool) {
	ix := (p.X - b.xmin) / b.sx
	iy := (p.Y - b.ymin) / b.sy

	ix1, iy1 := math.RoundToEven(ix), math.RoundToEven(iy)
	ix2, iy2 := math.Floor(ix), math.Floor(iy)

	d1 := (ix-ix1)*(ix-ix1) + 3*(iy-iy1)*(iy-iy1)
	d2 := (ix-ix2-0.5)*(ix-ix2-0.5) + 3*(iy-iy2-0.5)*(iy-iy2-0.5)

	if d1 < d2 {
		i, j := int(ix1), int(iy1)
		if i < 0 || i > b.NX || j < 0 || j > b.NY {
			return 0, false
		}
		return i*(b.NY+1) + j, true
	}
	i, j := int(ix2), int(iy2)
	if i < 0 || i >= b.NX || j < 0 || j >= b.NY {
		return 0, false
	}
	return (b.NX+1)*(b.NY+1) + i*b.NY + j, true
}

// center returns the planar center of tile idx.
func (b *Binning) center(idx int) r2.Point {
	ymin := b.ymin
	n1 := (b.NX + 1) * (b.NY + 1)
	if idx < n1 {
		i, j := idx/(b.NY+1), idx%(b.NY+1)
		return r2.Point{X: b.xmin + float64(i)*b.sx, Y: ymin + float64(j)*b.sy}
	}
	idx -= n1
	i, j := idx/b.NY, idx%b.NY
	return r2.Point{X: b.xmin + (float64(i)+0.5)*b.sx, Y: ymin + (float64(j)+0.5)*b.sy}
}

// Hexagon returns the six vertices of the tile centered at c, counter-clockwise from
// the lower right.
func (b *Binning) Hexagon(c r2.Point) [6]r2.Point {
	hx, hy := 0.5*b.sx, b.sy/3
	return [6]r2.Point{
		{X: c.X + hx, Y: c.Y - 0.5*hy},
		{X: c.X + hx, Y: c.Y + 0.5*hy},
		{X: c.X, Y: c.Y + hy},
		{X: c.X - hx, Y: c.Y + 0.5*hy},
		{X: c.X - hx, Y: c.Y - 0.5*hy},
		{X: c.X, Y: c.Y - hy},
	}
}

// HexSize is the horizontal tile pitch, (xmax-xmin)/gridSize. A zero-width extent
// reports the pitch of its widened tiling.
func (b *Binning) HexSize() float64 {
	return b.sx
}

// MaxCount returns the largest bin count, the top of the color scale.
func (b *Binning) MaxCount() int {
	m := 0
	for _, hb := range b.Bins {
		if hb.Count > m {
			m = hb.Count
		}
	}
	return m
}
