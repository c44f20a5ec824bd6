// Package hover maps a cursor position on the hex map to the bin under it and formats
// its severity tooltip.
package hover

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
	"github.com/couchcryptid/bike-crash-explorer/internal/hexbin"
)

const (
	// TooltipOffset is the pixel distance between the hovered center and the tooltip box.
	TooltipOffset = 20
	tooltipHeader = "Crash Severity Counts:"
)

// SeverityCount is one tooltip line.
type SeverityCount struct {
	Severity domain.Severity `json:"severity"`
	Count    int             `json:"count"`
}

// Placement positions the tooltip so it stays inside the map: it opens toward the
// center of the extent from whichever half the hovered bin is in.
type Placement struct {
	HAlign  string `json:"halign"` // "left" or "right"
	VAlign  string `json:"valign"` // "bottom" or "top"
	OffsetX int    `json:"offset_x"`
	OffsetY int    `json:"offset_y"`
}

// Tooltip describes the bin under the cursor.
type Tooltip struct {
	Bin       int             `json:"bin"`
	Anchor    r2.Point        `json:"-"`
	Counts    []SeverityCount `json:"counts"`
	Total     int             `json:"total"`
	Text      string          `json:"text"`
	Placement Placement       `json:"placement"`
}

// Session answers hover queries against one binning. It is immutable after
// construction and safe for concurrent use; build a new one whenever the binning changes.
type Session struct {
	binning *hexbin.Binning
	tree    *kdtree.Tree
	maxDist float64
	mid     r2.Point
}

// NewSession indexes the populated bin centers of b.
func NewSession(b *hexbin.Binning) *Session {
	s := &Session{binning: b, maxDist: b.HexSize(), mid: b.Extent.Center()}
	if len(b.Bins) == 0 {
		return s
	}
	pts := make(centers, len(b.Bins))
	for i, hb := range b.Bins {
		pts[i] = center{x: hb.Center.X, y: hb.Center.Y, bin: i}
	}
	s.tree = kdtree.New(pts, false)
	return s
}

// Resolve returns the tooltip for the bin nearest cursor. It reports false when the
// nearest populated center is farther than one hex width away.
func (s *Session) Resolve(cursor r2.Point) (Tooltip, bool) {
	if s.tree == nil {
		return Tooltip{}, false
	}
	got, sqDist := s.tree.Nearest(center{x: cursor.X, y: cursor.Y})
	if got == nil || sqDist > s.maxDist*s.maxDist {
		return Tooltip{}, false
	}
	hb := s.binning.Bins[got.(center).bin]
	counts, total := severityCounts(hb.Severity)
	return Tooltip{
		Bin:       hb.Index,
		Anchor:    hb.Center,
		Counts:    counts,
		Total:     total,
		Text:      formatText(counts),
		Placement: s.place(hb.Center),
	}, true
}

func (s *Session) place(c r2.Point) Placement {
	p := Placement{HAlign: "left", VAlign: "bottom", OffsetX: TooltipOffset, OffsetY: TooltipOffset}
	if c.X > s.mid.X {
		p.HAlign, p.OffsetX = "right", -TooltipOffset
	}
	if c.Y > s.mid.Y {
		p.VAlign, p.OffsetY = "top", -TooltipOffset
	}
	return p
}

func severityCounts(m map[domain.Severity]int) ([]SeverityCount, int) {
	keys := make([]domain.Severity, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	domain.SortSeverities(keys)

	out := make([]SeverityCount, 0, len(keys))
	total := 0
	for _, k := range keys {
		out = append(out, SeverityCount{Severity: k, Count: m[k]})
		total += m[k]
	}
	return out, total
}

func formatText(counts []SeverityCount) string {
	var sb strings.Builder
	sb.WriteString(tooltipHeader)
	for _, c := range counts {
		fmt.Fprintf(&sb, "\n%s: %d", c.Severity, c.Count)
	}
	return sb.String()
}
