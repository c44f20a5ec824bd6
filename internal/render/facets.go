package render

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	svg "github.com/ajstarks/svgo"

	"github.com/couchcryptid/bike-crash-explorer/internal/basemap"
	"github.com/couchcryptid/bike-crash-explorer/internal/breakdown"
	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
	"github.com/couchcryptid/bike-crash-explorer/internal/matrix"
)

const (
	cellWidth   = 170
	cellHeight  = 140
	cellPad     = 12
	labelMargin = 130
	headerSpace = 70
	axisSpace   = 18
)

// barPanel is a titled box of severity bars.
type barPanel struct {
	x, y, w, h int
	counts     []int
	severities []domain.Severity
	yMax       int
}

func (p barPanel) draw(canvas *svg.SVG, theme basemap.Theme) {
	canvas.Rect(p.x, p.y, p.w, p.h, "fill:none", "stroke="+quote(theme.TooltipEdge), `stroke-width="0.5"`)

	areaX, areaY := p.x+cellPad, p.y+cellPad
	areaW, areaH := p.w-2*cellPad, p.h-2*cellPad-axisSpace
	slot := areaW / len(p.counts)
	for i, n := range p.counts {
		bh := 0
		if p.yMax > 0 {
			bh = areaH * n / p.yMax
		}
		bx := areaX + i*slot + slot/8
		canvas.Rect(bx, areaY+areaH-bh, slot*3/4, bh,
			"fill="+quote(css(SeverityColor(p.severities[i]))),
			fmt.Sprintf(`data-count="%d"`, n),
		)
		canvas.Text(areaX+i*slot+slot/2, areaY+areaH+12, p.severities[i].Short(),
			`text-anchor="middle" font-size="9"`, "fill="+quote(theme.Text))
	}
}

// SeverityMatrix draws the surface × speed-limit facet grid. Every row shares one y
// scale; cells without records show a no-data note instead of bars.
func SeverityMatrix(w io.Writer, grid *matrix.Grid, theme basemap.Theme) error {
	if grid == nil || len(grid.Rows) == 0 || len(grid.Columns) == 0 {
		return errors.New("draw severity matrix: empty grid")
	}
	width := labelMargin + cellWidth*len(grid.Columns) + cellPad
	height := headerSpace + cellHeight*len(grid.Rows) + cellPad

	canvas := svg.New(w)
	canvas.Start(width, height, fontFamily)
	defer canvas.End()

	title := fmt.Sprintf("Bike Injury Severity by %s and %s", grid.RowField, grid.ColField)
	canvas.Title(title)
	canvas.Rect(0, 0, width, height, "fill:"+theme.Figure)
	canvas.Text(width/2, 24, title, `text-anchor="middle" font-size="18"`, "fill="+quote(theme.Text))

	for j, col := range grid.Columns {
		canvas.Text(labelMargin+j*cellWidth+cellWidth/2, headerSpace-10, col,
			`text-anchor="middle" font-size="12"`, "fill="+quote(theme.Text))
	}

	severities := domain.SeverityLevels[:]
	for i, row := range grid.Rows {
		y := headerSpace + i*cellHeight
		canvas.Text(labelMargin-8, y+cellHeight/2, row.Label,
			`text-anchor="end" font-size="12"`, "fill="+quote(theme.Text))
		canvas.Text(labelMargin-8, y+cellPad+10, strconv.Itoa(row.YMax),
			`text-anchor="end" font-size="9"`, "fill="+quote(theme.Text))

		for j, cell := range row.Cells {
			x := labelMargin + j*cellWidth
			if cell.NoData() {
				canvas.Rect(x, y, cellWidth, cellHeight, "fill:none", "stroke="+quote(theme.TooltipEdge), `stroke-width="0.5"`)
				canvas.Text(x+cellWidth/2, y+cellHeight/2, "No data",
					`text-anchor="middle" font-size="11"`, "fill="+quote(theme.Placeholder))
				continue
			}
			barPanel{
				x: x, y: y, w: cellWidth, h: cellHeight,
				counts:     cell.Counts[:],
				severities: severities,
				yMax:       row.YMax,
			}.draw(canvas, theme)
		}
	}
	return nil
}

// SmallMultiples draws one CrashSevr panel per category value on a shared y scale.
func SmallMultiples(w io.Writer, category string, panels []breakdown.Panel, theme basemap.Theme) error {
	if len(panels) == 0 {
		return errors.New("draw small multiples: no panels")
	}
	cols := min(3, len(panels))
	rows := (len(panels) + cols - 1) / cols
	const panelTitle = 20
	width := cols*cellWidth + 2*cellPad
	height := headerSpace + rows*(cellHeight+panelTitle) + cellPad

	yMax := 1
	for _, p := range panels {
		for _, n := range p.Counts {
			yMax = max(yMax, n)
		}
	}
	yMax = matrix.YMax(yMax)

	canvas := svg.New(w)
	canvas.Start(width, height, fontFamily)
	defer canvas.End()

	title := "Crash Severity by " + category
	canvas.Title(title)
	canvas.Rect(0, 0, width, height, "fill:"+theme.Figure)
	canvas.Text(width/2, 24, title, `text-anchor="middle" font-size="18"`, "fill="+quote(theme.Text))

	severities := domain.SeverityCategories[:]
	for i, p := range panels {
		x := cellPad + (i%cols)*cellWidth
		y := headerSpace + (i/cols)*(cellHeight+panelTitle)
		canvas.Text(x+cellWidth/2, y+12, p.Title, `text-anchor="middle" font-size="11"`, "fill="+quote(theme.Text))
		barPanel{
			x: x, y: y + panelTitle, w: cellWidth, h: cellHeight,
			counts:     p.Counts[:],
			severities: severities,
			yMax:       yMax,
		}.draw(canvas, theme)
	}
	return nil
}
