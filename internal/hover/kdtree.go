package hover

import (
	"gonum.org/v1/gonum/spatial/kdtree"
)

// center is a bin center stored in the k-d tree. bin indexes Binning.Bins.
type center struct {
	x, y float64
	bin  int
}

func (c center) Compare(other kdtree.Comparable, d kdtree.Dim) float64 {
	o := other.(center)
	if d == 0 {
		return c.x - o.x
	}
	return c.y - o.y
}

func (c center) Dims() int { return 2 }

// Distance is squared Euclidean distance, as kdtree expects.
func (c center) Distance(other kdtree.Comparable) float64 {
	o := other.(center)
	dx, dy := c.x-o.x, c.y-o.y
	return dx*dx + dy*dy
}

type centers []center

func (c centers) Index(i int) kdtree.Comparable         { return c[i] }
func (c centers) Len() int                              { return len(c) }
func (c centers) Slice(start, end int) kdtree.Interface { return c[start:end] }

func (c centers) Pivot(d kdtree.Dim) int {
	return plane{centers: c, dim: d}.Pivot()
}

// plane sorts centers along one dimension for median selection.
type plane struct {
	centers
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	if p.dim == 0 {
		return p.centers[i].x < p.centers[j].x
	}
	return p.centers[i].y < p.centers[j].y
}

func (p plane) Swap(i, j int) { p.centers[i], p.centers[j] = p.centers[j], p.centers[i] }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{centers: p.centers[start:end], dim: p.dim}
}

func (p plane) Pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}
