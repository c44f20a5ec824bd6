package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/couchcryptid/bike-crash-explorer/internal/basemap"
	"github.com/couchcryptid/bike-crash-explorer/internal/breakdown"
	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
	"github.com/couchcryptid/bike-crash-explorer/internal/temporal"
)

const (
	chartWidth  = 900
	chartHeight = 500
)

// seriesColors cycles through the line series.
var seriesColors = []drawing.Color{
	chart.ColorBlue, chart.ColorGreen, chart.ColorRed, chart.ColorOrange,
	chart.ColorCyan, chart.ColorYellow, chart.ColorAlternateGray,
	hex("#984ea3"), hex("#a65628"), hex("#f781bf"), hex("#1b9e77"), hex("#666666"),
}

func background(theme basemap.Theme) chart.Style {
	return chart.Style{
		FillColor: hex(theme.Figure),
		FontColor: hex(theme.Text),
		Padding:   chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
	}
}

func axisStyle(theme basemap.Theme) chart.Style {
	return chart.Style{FontColor: hex(theme.Text), StrokeColor: hex(theme.Text)}
}

// SeverityHistogram draws the BikeInjury bar chart as PNG.
func SeverityHistogram(w io.Writer, h breakdown.Histogram, theme basemap.Theme) error {
	bars := make([]chart.Value, len(h.Bars))
	peak := 1.0
	for i, b := range h.Bars {
		bars[i] = chart.Value{
			Value: float64(b.Count),
			Label: fmt.Sprintf("%s %.1f%%", b.Severity.Short(), b.Percent),
			Style: chart.Style{FillColor: SeverityColor(b.Severity), StrokeColor: SeverityColor(b.Severity)},
		}
		peak = max(peak, float64(b.Count))
	}

	bc := chart.BarChart{
		Title:      h.Title(),
		TitleStyle: chart.Style{FontColor: hex(theme.Text)},
		Width:      chartWidth,
		Height:     chartHeight,
		BarWidth:   90,
		Background: background(theme),
		Canvas:     chart.Style{FillColor: hex(theme.Figure)},
		XAxis:      axisStyle(theme),
		YAxis: chart.YAxis{
			Name:  "Crashes",
			Style: axisStyle(theme),
			Range: &chart.ContinuousRange{Min: 0, Max: peak * 1.1},
		},
		Bars: bars,
	}
	if err := bc.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render histogram: %w", err)
	}
	return nil
}

// lineSeries builds one series, padding single points so the renderer has a segment
// to draw.
func lineSeries(name string, xs, ys []float64, color drawing.Color) chart.ContinuousSeries {
	if len(xs) == 1 {
		xs = []float64{xs[0], xs[0]}
		ys = []float64{ys[0], ys[0]}
	}
	return chart.ContinuousSeries{
		Name:    name,
		XValues: xs,
		YValues: ys,
		Style:   chart.Style{StrokeColor: color, StrokeWidth: 2, DotWidth: 3, DotColor: color},
	}
}

func lineChart(w io.Writer, title, xName string, xr chart.ContinuousRange, ticks []chart.Tick, series []chart.ContinuousSeries, theme basemap.Theme) error {
	// A fixed y range keeps flat data from collapsing the axis.
	peak := 1.0
	all := make([]chart.Series, len(series))
	for i, s := range series {
		for _, y := range s.YValues {
			peak = max(peak, y)
		}
		all[i] = s
	}

	ch := chart.Chart{
		Title:      title,
		TitleStyle: chart.Style{FontColor: hex(theme.Text)},
		Width:      chartWidth,
		Height:     chartHeight,
		Background: background(theme),
		Canvas:     chart.Style{FillColor: hex(theme.Figure)},
		XAxis:      chart.XAxis{Name: xName, Style: axisStyle(theme), Range: &xr, Ticks: ticks},
		YAxis: chart.YAxis{
			Name:  "Crashes",
			Style: axisStyle(theme),
			Range: &chart.ContinuousRange{Min: 0, Max: peak * 1.1},
		},
		Series: all,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %s: %w", title, err)
	}
	return nil
}

// MonthlyByYear draws one line per year across the months.
func MonthlyByYear(w io.Writer, counts []temporal.MonthYearCount, theme basemap.Theme) error {
	type line struct{ xs, ys []float64 }
	byYear := make(map[int]*line)
	var years []int
	for _, c := range counts {
		l, ok := byYear[c.Year]
		if !ok {
			l = &line{}
			byYear[c.Year] = l
			years = append(years, c.Year)
		}
		l.xs = append(l.xs, float64(domain.MonthIndex(c.Month)))
		l.ys = append(l.ys, float64(c.Count))
	}

	series := make([]chart.ContinuousSeries, 0, len(years))
	for i, y := range years {
		l := byYear[y]
		series = append(series, lineSeries(strconv.Itoa(y), l.xs, l.ys, seriesColors[i%len(seriesColors)]))
	}

	ticks := make([]chart.Tick, 12)
	for m := range 12 {
		ticks[m] = chart.Tick{Value: float64(m + 1), Label: domain.Months[m][:3]}
	}
	return lineChart(w, "Bike Crashes by Month", "Month", chart.ContinuousRange{Min: 1, Max: 12}, ticks, series, theme)
}

// HourlyByMonth draws one line per month across the hours of the day.
func HourlyByMonth(w io.Writer, counts []temporal.HourMonthCount, theme basemap.Theme) error {
	var xs, ys [12][]float64
	for _, c := range counts {
		m := domain.MonthIndex(c.Month) - 1
		if m < 0 {
			continue
		}
		xs[m] = append(xs[m], float64(c.Hour))
		ys[m] = append(ys[m], float64(c.Count))
	}

	var series []chart.ContinuousSeries
	for m := range 12 {
		if len(xs[m]) == 0 {
			continue
		}
		series = append(series, lineSeries(domain.Months[m], xs[m], ys[m], seriesColors[m%len(seriesColors)]))
	}

	ticks := make([]chart.Tick, 0, 9)
	for h := 0; h <= 24; h += 3 {
		ticks = append(ticks, chart.Tick{Value: float64(h), Label: strconv.Itoa(h)})
	}
	return lineChart(w, "Bike Crashes by Hour", "Hour", chart.ContinuousRange{Min: 0, Max: 24}, ticks, series, theme)
}
