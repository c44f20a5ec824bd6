// Package matrix lays out the injury-severity facet grid: one row per road surface plus
// an "Overall" row, one column per speed-limit bucket.
package matrix

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
	"github.com/couchcryptid/bike-crash-explorer/internal/filter"
)

// MinObservations is the per-surface floor below which a surface gets no row.
const MinObservations = 20

// OverallRow is the synthetic row aggregating every surviving surface.
const OverallRow = "Overall"

// Placeholder is shown instead of the grid when Layout returns ErrNoData.
const Placeholder = "No data available\nfor the selected filters.\n\n" +
	"Try selecting a different\nRoadway Feature or\ncheck your data filters."

// ErrNoData is returned when no surface clears the observation floor.
var ErrNoData = errors.New("no data for selected filters")

// Surfaces is the whitelist of road surfaces, in row order.
var Surfaces = []string{
	"Coarse Asphalt",
	"Concrete",
	"Gravel",
	"Grooved Concrete",
	"Other",
	"Sand",
	"Smooth Asphalt",
	"Soil",
}

var badValues = map[string]bool{"": true, "nan": true, "none": true, "unknown": true, "missing": true}

// Cell is the severity distribution for one (row, column) pair.
type Cell struct {
	Row    string `json:"row"`
	Column string `json:"column"`
	// Counts follows domain.SeverityLevels.
	Counts [5]int `json:"counts"`
	// Total counts every matching record, including severities outside the five levels.
	Total int `json:"total"`
}

// NoData reports whether no record matched the cell.
func (c Cell) NoData() bool { return c.Total == 0 }

// Row is one facet row. YMax is shared by every cell in the row.
type Row struct {
	Label string `json:"label"`
	YMax  int    `json:"y_max"`
	Cells []Cell `json:"cells"`
}

// Grid is the full facet layout.
type Grid struct {
	RowField string   `json:"row_field"`
	ColField string   `json:"col_field"`
	Columns  []string `json:"columns"`
	Rows     []Row    `json:"rows"`
}

type obs struct {
	row, col string
	sev      domain.Severity
}

// Layout builds the facet grid over rowField × colField. Records are gated in order:
// missing values, trimming, bad values, the surface whitelist, and the observation floor.
func Layout(records []domain.CrashRecord, rowField, colField string) (*Grid, error) {
	kept := clean(records, rowField, colField)
	if len(kept) == 0 {
		return nil, ErrNoData
	}

	rows := make([]string, 0, len(Surfaces)+1)
	present := make(map[string]bool)
	for _, o := range kept {
		present[o.row] = true
	}
	for _, s := range Surfaces {
		if present[s] {
			rows = append(rows, s)
		}
	}
	rows = append(rows, OverallRow)

	colSet := make(map[string]bool)
	for _, o := range kept {
		colSet[o.col] = true
	}
	cols := make([]string, 0, len(colSet))
	for c := range colSet {
		cols = append(cols, c)
	}
	SortColumns(cols)

	colIdx := make(map[string]int, len(cols))
	for i, c := range cols {
		colIdx[c] = i
	}
	rowIdx := make(map[string]int, len(rows))
	for i, r := range rows {
		rowIdx[r] = i
	}

	grid := &Grid{RowField: rowField, ColField: colField, Columns: cols, Rows: make([]Row, len(rows))}
	peaks := make([]map[domain.Severity]int, len(rows)*len(cols))
	for i, label := range rows {
		grid.Rows[i] = Row{Label: label, Cells: make([]Cell, len(cols))}
		for j, c := range cols {
			grid.Rows[i].Cells[j] = Cell{Row: label, Column: c}
			peaks[i*len(cols)+j] = make(map[domain.Severity]int)
		}
	}

	overall := rowIdx[OverallRow]
	for _, o := range kept {
		j := colIdx[o.col]
		for _, i := range []int{rowIdx[o.row], overall} {
			cell := &grid.Rows[i].Cells[j]
			cell.Total++
			if r := o.sev.Rank(); r >= 0 && r < len(domain.SeverityLevels) {
				cell.Counts[r]++
			}
			if o.sev != "" {
				peaks[i*len(cols)+j][o.sev]++
			}
		}
	}

	for i := range grid.Rows {
		rowMax := 0
		for j := range cols {
			for _, n := range peaks[i*len(cols)+j] {
				rowMax = max(rowMax, n)
			}
		}
		grid.Rows[i].YMax = YMax(max(rowMax, 1))
	}
	return grid, nil
}

// clean applies the gating steps and returns the surviving observations.
func clean(records []domain.CrashRecord, rowField, colField string) []obs {
	var out []obs
	perSurface := make(map[string]int)
	for _, rec := range records {
		row, ok := rec.Value(rowField)
		if !ok {
			continue
		}
		col, ok := rec.Value(colField)
		if !ok {
			continue
		}
		row, col = strings.TrimSpace(row), strings.TrimSpace(col)
		if isBad(row) || isBad(col) || !validSurface(row) {
			continue
		}
		perSurface[row]++
		out = append(out, obs{row: row, col: col, sev: rec.BikeInjury})
	}

	kept := out[:0]
	for _, o := range out {
		if perSurface[o.row] >= MinObservations {
			kept = append(kept, o)
		}
	}
	return kept
}

func isBad(v string) bool { return badValues[strings.ToLower(v)] }

func validSurface(v string) bool {
	for _, s := range Surfaces {
		if s == v {
			return true
		}
	}
	return false
}

// YMax is the shared row scale for a row whose tallest bar is rowMax: 110% rounded up,
// to the next multiple of ten once it exceeds ten.
func YMax(rowMax int) int {
	y := float64(rowMax) * 1.1
	if y > 10 {
		return int(math.Ceil(y/10) * 10)
	}
	return int(math.Ceil(y))
}

var firstInt = regexp.MustCompile(`\d+`)

var sentinels = map[string]bool{"unknown": true, "unk": true, "n/a": true, "na": true, "none": true, "": true}

type columnKey struct {
	sentinel bool
	numeric  bool
	n        int
	s        string
}

func keyOf(v string) columnKey {
	s := strings.ToLower(strings.TrimSpace(v))
	if sentinels[s] {
		return columnKey{sentinel: true, s: s}
	}
	if m := firstInt.FindString(s); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return columnKey{numeric: true, n: n, s: s}
		}
	}
	return columnKey{s: s}
}

func (a columnKey) less(b columnKey) bool {
	if a.sentinel != b.sentinel {
		return b.sentinel
	}
	if a.numeric != b.numeric {
		return a.numeric
	}
	if a.numeric && a.n != b.n {
		return a.n < b.n
	}
	return a.s < b.s
}

// SortColumns orders speed buckets by their first embedded integer, then non-numeric
// values lexically, then unknown-like sentinels.
func SortColumns(cols []string) {
	sort.SliceStable(cols, func(i, j int) bool { return keyOf(cols[i]).less(keyOf(cols[j])) })
}

// FeatureChoices returns "Any" followed by every value of featureField, sorted, whose
// subset of records still produces a grid.
func FeatureChoices(records []domain.CrashRecord, featureField, rowField, colField string) []string {
	seen := make(map[string]bool)
	var features []string
	for _, rec := range records {
		v, ok := rec.Value(featureField)
		if !ok || seen[v] {
			continue
		}
		seen[v] = true
		features = append(features, v)
	}
	sort.Strings(features)

	out := []string{domain.Any}
	for _, f := range features {
		subset := filter.Apply(records, featureField, f)
		if len(clean(subset, rowField, colField)) > 0 {
			out = append(out, f)
		}
	}
	return out
}
