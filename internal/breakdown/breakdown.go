// Package breakdown computes the categorical severity views: the filtered histogram,
// the per-category small multiples and the grouped bar-chart counts.
package breakdown

import (
	"fmt"
	"sort"
	"strings"

	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
)

// HistogramBar is one severity category of the filtered histogram.
type HistogramBar struct {
	Severity domain.Severity `json:"severity"`
	Count    int             `json:"count"`
	Percent  float64         `json:"percent"`
}

// Histogram is the injury-severity distribution of a filtered record set.
type Histogram struct {
	Total int            `json:"total"`
	Bars  []HistogramBar `json:"bars"`
}

// Title is the chart heading, naming the number of crashes shown.
func (h Histogram) Title() string {
	return fmt.Sprintf("Bike Injury By Severity (%d accidents)", h.Total)
}

// SeverityHistogram counts BikeInjury over the six severity categories. Percentages are
// of the whole filtered set, so records with labels outside the categories lower them.
func SeverityHistogram(records []domain.CrashRecord) Histogram {
	counts := make(map[domain.Severity]int)
	for _, r := range records {
		counts[r.BikeInjury]++
	}
	h := Histogram{Total: len(records), Bars: make([]HistogramBar, len(domain.SeverityCategories))}
	for i, sev := range domain.SeverityCategories {
		bar := HistogramBar{Severity: sev, Count: counts[sev]}
		if h.Total > 0 {
			bar.Percent = 100 * float64(bar.Count) / float64(h.Total)
		}
		h.Bars[i] = bar
	}
	return h
}

// Categories offered by the small-multiples view.
var Categories = []string{
	domain.FieldLightCond,
	domain.FieldSpeedLimit,
	domain.FieldBikeAlcFlg,
	domain.FieldBikeSex,
	domain.FieldRuralUrban,
}

var junkPanels = map[string]bool{
	"Unknown":                 true,
	"Other":                   true,
	"Missing":                 true,
	".":                       true,
	"Dark - Unknown Lighting": true,
}

// Panel is one small multiple: the CrashSevr distribution for a single category value.
type Panel struct {
	Title  string `json:"title"`
	Value  string `json:"value"`
	Counts [6]int `json:"counts"`
}

// ValidCategory reports whether category is one of Categories.
func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// SmallMultiples builds one panel per distinct value of category, sorted lexically.
// Placeholder values such as "Unknown" and "Missing" get no panel.
func SmallMultiples(records []domain.CrashRecord, category string) ([]Panel, error) {
	if !ValidCategory(category) {
		return nil, fmt.Errorf("small multiples category %q: not one of %s", category, strings.Join(Categories, ", "))
	}
	byValue := make(map[string]*Panel)
	for _, r := range records {
		v, ok := r.Value(category)
		if !ok || junkPanels[v] {
			continue
		}
		p, ok := byValue[v]
		if !ok {
			p = &Panel{Title: category + ": " + v, Value: v}
			byValue[v] = p
		}
		if rank := r.CrashSevr.Rank(); rank >= 0 {
			p.Counts[rank]++
		}
	}

	out := make([]Panel, 0, len(byValue))
	for _, p := range byValue {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out, nil
}

// GroupKeySep joins the values of several grouping columns into one key.
const GroupKeySep = " / "

// Groups holds bar-chart counts for Column, either flat or split by the Groups columns.
type Groups struct {
	Column string   `json:"column"`
	Groups []string `json:"groups,omitempty"`
	// Flat maps a Column value to its count. Set when there are no grouping columns.
	Flat map[string]int `json:"flat,omitempty"`
	// Nested maps a Column value to group key to count. Every group key seen anywhere
	// appears under every Column value, zero-filled.
	Nested map[string]map[string]int `json:"nested,omitempty"`
}

// GroupCounts counts values of column, optionally split by groups. Records missing
// column or any grouping value are skipped.
func GroupCounts(records []domain.CrashRecord, groups []string, column string) Groups {
	out := Groups{Column: column, Groups: groups}
	if len(groups) == 0 {
		out.Flat = make(map[string]int)
		for _, r := range records {
			if v, ok := r.Value(column); ok {
				out.Flat[v]++
			}
		}
		return out
	}

	out.Nested = make(map[string]map[string]int)
	keys := make(map[string]bool)
	parts := make([]string, len(groups))
	for _, r := range records {
		v, ok := r.Value(column)
		if !ok {
			continue
		}
		complete := true
		for i, g := range groups {
			parts[i], ok = r.Value(g)
			if !ok {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		key := strings.Join(parts, GroupKeySep)
		keys[key] = true
		if out.Nested[v] == nil {
			out.Nested[v] = make(map[string]int)
		}
		out.Nested[v][key]++
	}
	for _, byKey := range out.Nested {
		for k := range keys {
			if _, ok := byKey[k]; !ok {
				byKey[k] = 0
			}
		}
	}
	return out
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
