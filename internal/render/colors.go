// Package render draws the explorer's views: SVG for the hex map and facet grids, PNG
// for the go-chart histogram and line charts.
package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
)

// plasmaStops samples the plasma colormap at nine evenly spaced positions.
var plasmaStops = []drawing.Color{
	hex("#0d0887"), hex("#46039f"), hex("#7201a8"), hex("#9c179e"), hex("#bd3786"),
	hex("#d8576b"), hex("#ed7953"), hex("#fb9f3a"), hex("#f0f921"),
}

// severityColors follows domain.SeverityCategories.
var severityColors = [6]drawing.Color{
	hex("#4daf4a"), hex("#ffd92f"), hex("#ff7f00"), hex("#e41a1c"), hex("#7b0c0c"), hex("#999999"),
}

func hex(s string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(s, "#"))
}

// Plasma maps t in [0, 1] onto the plasma colormap. Values outside are clamped.
func Plasma(t float64) drawing.Color {
	if math.IsNaN(t) || t <= 0 {
		return plasmaStops[0]
	}
	if t >= 1 {
		return plasmaStops[len(plasmaStops)-1]
	}
	pos := t * float64(len(plasmaStops)-1)
	i := int(pos)
	f := pos - float64(i)
	a, b := plasmaStops[i], plasmaStops[i+1]
	return drawing.Color{
		R: lerp(a.R, b.R, f),
		G: lerp(a.G, b.G, f),
		B: lerp(a.B, b.B, f),
		A: 255,
	}
}

func lerp(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*f))
}

// SeverityColor returns the bar color for a severity category, gray for unranked labels.
func SeverityColor(s domain.Severity) drawing.Color {
	if r := s.Rank(); r >= 0 {
		return severityColors[r]
	}
	return severityColors[len(severityColors)-1]
}

// css formats c as an SVG color.
func css(c drawing.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
