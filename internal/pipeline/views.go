package pipeline

import (
	"errors"
	"fmt"
	"slices"

	"github.com/couchcryptid/bike-crash-explorer/internal/breakdown"
	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
	"github.com/couchcryptid/bike-crash-explorer/internal/filter"
	"github.com/couchcryptid/bike-crash-explorer/internal/matrix"
	"github.com/couchcryptid/bike-crash-explorer/internal/temporal"
)

// Matrix lays out the surface × speed-limit severity grid for the filtered records.
func (p *Pipeline) Matrix(c filter.Criteria) (grid *matrix.Grid, err error) {
	start := p.clock.Now()
	defer func() { p.observe(ViewMatrix, start, err) }()

	_, _, records, err := p.filtered(c)
	if err != nil {
		return nil, err
	}
	grid, err = matrix.Layout(records, domain.FieldRdSurface, domain.FieldSpeedLimit)
	if errors.Is(err, matrix.ErrNoData) {
		return nil, fmt.Errorf("severity matrix: %w", ErrNoData)
	}
	return grid, err
}

// TemporalView holds the monthly and hourly crash counts.
type TemporalView struct {
	Monthly []temporal.MonthYearCount `json:"monthly"`
	Hourly  []temporal.HourMonthCount `json:"hourly"`
}

// Temporal counts the filtered records by year and month, and by month and hour.
func (p *Pipeline) Temporal(c filter.Criteria) (view *TemporalView, err error) {
	start := p.clock.Now()
	defer func() { p.observe(ViewTemporal, start, err) }()

	_, _, records, err := p.filtered(c)
	if err != nil {
		return nil, err
	}
	view = &TemporalView{
		Monthly: temporal.ByMonthYear(records),
		Hourly:  temporal.ByHourMonth(records),
	}
	if len(view.Monthly) == 0 && len(view.Hourly) == 0 {
		return nil, fmt.Errorf("temporal counts: %w", ErrNoData)
	}
	return view, nil
}

// Histogram is the BikeInjury distribution of the filtered records.
func (p *Pipeline) Histogram(c filter.Criteria) (h breakdown.Histogram, err error) {
	start := p.clock.Now()
	defer func() { p.observe(ViewHistogram, start, err) }()

	_, _, records, err := p.filtered(c)
	if err != nil {
		return breakdown.Histogram{}, err
	}
	h = breakdown.SeverityHistogram(records)
	if h.Total == 0 {
		return h, fmt.Errorf("severity histogram: %w", ErrNoData)
	}
	return h, nil
}

// SmallMultiples splits the filtered records by category into CrashSevr panels.
func (p *Pipeline) SmallMultiples(c filter.Criteria, category string) (panels []breakdown.Panel, err error) {
	start := p.clock.Now()
	defer func() { p.observe(ViewSmallMultiples, start, err) }()

	if !breakdown.ValidCategory(category) {
		return nil, fmt.Errorf("%w: category %q", filter.ErrInvalidChoice, category)
	}
	_, _, records, err := p.filtered(c)
	if err != nil {
		return nil, err
	}
	panels, err = breakdown.SmallMultiples(records, category)
	if err != nil {
		return nil, err
	}
	if len(panels) == 0 {
		return nil, fmt.Errorf("small multiples: %w", ErrNoData)
	}
	return panels, nil
}

// Groups counts column values of the filtered records, split by the groups columns.
func (p *Pipeline) Groups(c filter.Criteria, column string, groups []string) (g breakdown.Groups, err error) {
	start := p.clock.Now()
	defer func() { p.observe(ViewGroups, start, err) }()

	for _, f := range append([]string{column}, groups...) {
		if !slices.Contains(domain.Fields, f) || f == domain.FieldLatitude || f == domain.FieldLongitude {
			return breakdown.Groups{}, fmt.Errorf("%w: column %q", filter.ErrInvalidChoice, f)
		}
	}
	_, _, records, err := p.filtered(c)
	if err != nil {
		return breakdown.Groups{}, err
	}
	g = breakdown.GroupCounts(records, groups, column)
	if len(g.Flat) == 0 && len(g.Nested) == 0 {
		return g, fmt.Errorf("group counts: %w", ErrNoData)
	}
	return g, nil
}

// Choices lists the options for every filter control.
type Choices struct {
	Alcohol    []string `json:"alcohol"`
	HitRun     []string `json:"hitrun"`
	LightCond  []string `json:"light"`
	BikePos    []string `json:"bikepos"`
	TraffCntrl []string `json:"traffic"`
	SpeedLimit []string `json:"speed"`
	Month      []string `json:"month"`
	HourMin    int      `json:"hour_min"`
	HourMax    int      `json:"hour_max"`
	// Features holds the roadway features that still yield a severity matrix under the
	// other filters.
	Features   []string `json:"feature"`
	Categories []string `json:"categories"`
}

// Choices returns the filter options, with the roadway features computed against the
// records selected by every other control.
func (p *Pipeline) Choices(c filter.Criteria) (ch *Choices, err error) {
	start := p.clock.Now()
	defer func() { p.observe(ViewChoices, start, err) }()

	c = c.Normalize()
	c.RdFeature = domain.Any
	_, _, records, err := p.filtered(c)
	if err != nil {
		return nil, err
	}
	return &Choices{
		Alcohol:    domain.YesNoChoices,
		HitRun:     domain.YesNoChoices,
		LightCond:  domain.LightCondChoices,
		BikePos:    domain.BikePosChoices,
		TraffCntrl: domain.TraffCntrlChoices,
		SpeedLimit: domain.SpeedLimitChoices,
		Month:      domain.MonthChoices,
		HourMin:    domain.HourAny,
		HourMax:    23,
		Features:   matrix.FeatureChoices(records, domain.FieldRdFeature, domain.FieldRdSurface, domain.FieldSpeedLimit),
		Categories: breakdown.Categories,
	}, nil
}
