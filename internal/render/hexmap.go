package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/golang/geo/r2"

	"github.com/couchcryptid/bike-crash-explorer/internal/basemap"
	"github.com/couchcryptid/bike-crash-explorer/internal/hexbin"
)

const (
	defaultWidth = 900
	hexOpacity   = 0.6
	fontFamily   = `font-family="Helvetica,Arial,sans-serif"`
)

// Tile is one basemap image placed on the map plane.
type Tile struct {
	Href   string
	Bounds r2.Rect
}

// MapOptions controls the hex map drawing.
type MapOptions struct {
	Width       int
	Title       string
	Theme       basemap.Theme
	Tiles       []Tile
	Attribution string
	// MaxCount fixes the top of the color scale; zero uses the binning's own maximum.
	MaxCount int
}

// frame maps the planar map rectangle onto pixels, y pointing down.
type frame struct {
	view          r2.Rect
	width, height int
}

func newFrame(view r2.Rect, width int) frame {
	if width <= 0 {
		width = defaultWidth
	}
	height := int(float64(width) * view.Size().Y / view.Size().X)
	height = min(max(height, 100), 4*width)
	return frame{view: view, width: width, height: height}
}

func (f frame) px(p r2.Point) (int, int) {
	x := (p.X - f.view.X.Lo) / f.view.Size().X * float64(f.width)
	y := (f.view.Y.Hi - p.Y) / f.view.Size().Y * float64(f.height)
	return int(x + 0.5), int(y + 0.5)
}

// MapView returns the planar rectangle drawn for b: its extent grown by one hexagon on
// every side so edge hexagons are not clipped.
func MapView(b *hexbin.Binning) r2.Rect {
	s := b.HexSize()
	return b.Extent.Expanded(r2.Point{X: s, Y: s})
}

// HexMap draws the populated hexagons of b over optional basemap tiles. The root element
// carries the planar view rectangle in data attributes so a client can turn cursor
// positions back into map coordinates for hover queries.
func HexMap(w io.Writer, b *hexbin.Binning, opts MapOptions) error {
	if b == nil {
		return errors.New("draw hex map: nil binning")
	}
	f := newFrame(MapView(b), opts.Width)
	maxCount := opts.MaxCount
	if maxCount <= 0 {
		maxCount = b.MaxCount()
	}

	canvas := svg.New(w)
	canvas.Start(f.width, f.height,
		fontFamily,
		fmt.Sprintf(`data-xmin="%.3f" data-xmax="%.3f" data-ymin="%.3f" data-ymax="%.3f"`,
			f.view.X.Lo, f.view.X.Hi, f.view.Y.Lo, f.view.Y.Hi),
	)
	defer canvas.End()

	if opts.Title != "" {
		canvas.Title(opts.Title)
	}
	canvas.Rect(0, 0, f.width, f.height, "fill:"+opts.Theme.Figure)

	if len(opts.Tiles) > 0 {
		canvas.Group(`id="basemap"`)
		for _, t := range opts.Tiles {
			x0, y0 := f.px(r2.Point{X: t.Bounds.X.Lo, Y: t.Bounds.Y.Hi})
			x1, y1 := f.px(r2.Point{X: t.Bounds.X.Hi, Y: t.Bounds.Y.Lo})
			canvas.Image(x0, y0, x1-x0, y1-y0, t.Href, `preserveAspectRatio="none"`)
		}
		canvas.Gend()
	}

	canvas.Group(`id="hexbins"`, fmt.Sprintf(`fill-opacity="%.2f"`, hexOpacity))
	for _, hb := range b.Bins {
		corners := b.Hexagon(hb.Center)
		xs, ys := make([]int, len(corners)), make([]int, len(corners))
		for i, c := range corners {
			xs[i], ys[i] = f.px(c)
		}
		color := css(Plasma(float64(hb.Count) / float64(maxCount)))
		canvas.Polygon(xs, ys,
			fmt.Sprintf(`fill="%s" stroke="%s" stroke-width="0.5"`, color, color),
			fmt.Sprintf(`data-bin="%d" data-count="%d"`, hb.Index, hb.Count),
		)
	}
	canvas.Gend()

	if opts.Title != "" {
		canvas.Text(f.width/2, 24, opts.Title, `text-anchor="middle" font-size="18"`, "fill="+quote(opts.Theme.Text))
	}
	if opts.Attribution != "" {
		canvas.Text(f.width-6, f.height-6, opts.Attribution, `text-anchor="end" font-size="10"`, "fill="+quote(opts.Theme.Text))
	}
	return nil
}

// Placeholder draws the fixed no-data message in place of a view.
func Placeholder(w io.Writer, width, height int, text string, theme basemap.Theme) error {
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = width / 2
	}
	canvas := svg.New(w)
	canvas.Start(width, height, fontFamily)
	defer canvas.End()

	canvas.Rect(0, 0, width, height, "fill:"+theme.Figure)
	lines := strings.Split(text, "\n")
	top := height/2 - 10*len(lines)
	for i, line := range lines {
		if line == "" {
			continue
		}
		canvas.Text(width/2, top+20*i, line, `text-anchor="middle" font-size="16"`, "fill="+quote(theme.Placeholder))
	}
	return nil
}

func quote(s string) string { return `"` + s + `"` }
