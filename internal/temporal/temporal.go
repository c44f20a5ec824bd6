// Package temporal counts crashes over calendar time for the line-chart views.
package temporal

import (
	"sort"

	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
)

// MonthYearCount is the number of crashes in one month of one year.
type MonthYearCount struct {
	Year  int    `json:"year"`
	Month string `json:"month"`
	Count int    `json:"count"`
}

// HourMonthCount is the number of crashes in one hour of the day within one month,
// pooled across years.
type HourMonthCount struct {
	Month string `json:"month"`
	Hour  int    `json:"hour"`
	Count int    `json:"count"`
}

// ByMonthYear groups records by (year, month), ordered by year then calendar month.
// Records without a year or month are skipped. Groups with no records are omitted.
func ByMonthYear(records []domain.CrashRecord) []MonthYearCount {
	type key struct{ year, month int }
	counts := make(map[key]int)
	for _, r := range records {
		m := domain.MonthIndex(r.Month)
		if r.Year == 0 || m == 0 {
			continue
		}
		counts[key{r.Year, m}]++
	}

	out := make([]MonthYearCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, MonthYearCount{Year: k.year, Month: domain.Months[k.month-1], Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return domain.MonthIndex(out[i].Month) < domain.MonthIndex(out[j].Month)
	})
	return out
}

// ByHourMonth groups records by (month, hour), ordered by calendar month then hour.
func ByHourMonth(records []domain.CrashRecord) []HourMonthCount {
	var counts [12][24]int
	for _, r := range records {
		m := domain.MonthIndex(r.Month)
		if m == 0 || r.Hour == nil {
			continue
		}
		counts[m-1][*r.Hour]++
	}

	var out []HourMonthCount
	for m := range counts {
		for h, n := range counts[m] {
			if n > 0 {
				out = append(out, HourMonthCount{Month: domain.Months[m], Hour: h, Count: n})
			}
		}
	}
	return out
}

// Years returns the distinct years present, ascending.
func Years(records []domain.CrashRecord) []int {
	seen := make(map[int]bool)
	var out []int
	for _, r := range records {
		if r.Year != 0 && !seen[r.Year] {
			seen[r.Year] = true
			out = append(out, r.Year)
		}
	}
	sort.Ints(out)
	return out
}

// Frame is the subset of records for one year of the animated density view.
type Frame struct {
	Year    int
	Records []domain.CrashRecord
}

// YearFrames splits records by year, ascending. Records without a year are skipped.
func YearFrames(records []domain.CrashRecord) []Frame {
	byYear := make(map[int][]domain.CrashRecord)
	for _, r := range records {
		if r.Year != 0 {
			byYear[r.Year] = append(byYear[r.Year], r)
		}
	}
	years := Years(records)
	out := make([]Frame, len(years))
	for i, y := range years {
		out[i] = Frame{Year: y, Records: byYear[y]}
	}
	return out
}
