package pipeline

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang/geo/r2"

	"github.com/couchcryptid/bike-crash-explorer/internal/dataset"
	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
	"github.com/couchcryptid/bike-crash-explorer/internal/filter"
	"github.com/couchcryptid/bike-crash-explorer/internal/geo"
	"github.com/couchcryptid/bike-crash-explorer/internal/hexbin"
	"github.com/couchcryptid/bike-crash-explorer/internal/hover"
	"github.com/couchcryptid/bike-crash-explorer/internal/temporal"
)

// HexView is one drawn density map together with the hover session answering queries
// against it.
type HexView struct {
	Key      string
	Version  uint64
	Criteria filter.Criteria
	Binning  *hexbin.Binning
	Session  *hover.Session
	Records  int // records matching the filters, projected or not
	Drops    geo.Drops
}

func hexKey(version uint64, c filter.Criteria) string {
	return strconv.FormatUint(version, 10) + "|" + c.Key()
}

// Hex bins the filtered records on the dataset's fixed extent. The view is reused
// while neither the filters nor the dataset version change; otherwise it is rebuilt
// together with a fresh hover session.
func (p *Pipeline) Hex(c filter.Criteria) (view *HexView, err error) {
	start := p.clock.Now()
	defer func() { p.observe(ViewHexbin, start, err) }()

	snap, c, records, err := p.filtered(c)
	if err != nil {
		return nil, err
	}
	key := hexKey(snap.Version, c)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastHex != nil && p.lastHex.Key == key {
		return p.lastHex, nil
	}

	view, err = p.buildHex(snap, c, records, key)
	if err != nil {
		return nil, err
	}
	p.lastHex = view
	return view, nil
}

func (p *Pipeline) buildHex(snap *dataset.Snapshot, c filter.Criteria, records []domain.CrashRecord, key string) (*HexView, error) {
	points, drops := p.projector.Project(records, domain.FieldLatitude, domain.FieldLongitude)
	p.metrics.ProjectionDrops.WithLabelValues("missing").Add(float64(drops.Missing))
	p.metrics.ProjectionDrops.WithLabelValues("out_of_range").Add(float64(drops.OutOfRange))

	binning, err := p.bin(points, snap.Extent)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("hex view built",
		"version", snap.Version,
		"records", len(records),
		"points", binning.Points,
		"bins", len(binning.Bins),
	)
	return &HexView{
		Key:      key,
		Version:  snap.Version,
		Criteria: c,
		Binning:  binning,
		Session:  hover.NewSession(binning),
		Records:  len(records),
		Drops:    drops,
	}, nil
}

func (p *Pipeline) bin(points []domain.ProjectedPoint, extent r2.Rect) (*hexbin.Binning, error) {
	if extent.IsEmpty() {
		return nil, fmt.Errorf("bin points: %w", ErrNoData)
	}
	binning, err := hexbin.Bin(points, extent, p.gridSize)
	if errors.Is(err, hexbin.ErrNoData) {
		return nil, fmt.Errorf("bin points: %w", ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("bin points: %w", err)
	}
	return binning, nil
}

// Hover resolves cursor, in map coordinates, against the hex view for c. The second
// result is false when the cursor is not over a populated hexagon.
func (p *Pipeline) Hover(c filter.Criteria, cursor r2.Point) (hover.Tooltip, bool, error) {
	view, err := p.Hex(c)
	if err != nil {
		return hover.Tooltip{}, false, err
	}

	start := p.clock.Now()
	tip, ok := view.Session.Resolve(cursor)
	p.observe(ViewHover, start, nil)
	if ok {
		p.metrics.HoverQueries.WithLabelValues("hit").Inc()
	} else {
		p.metrics.HoverQueries.WithLabelValues("miss").Inc()
	}
	return tip, ok, nil
}

// Frame is one year of the animated density view. Binning is nil for a year whose
// records all lack usable coordinates.
type Frame struct {
	Year    int
	Records int
	Binning *hexbin.Binning
}

// FramesView is the per-year density sequence. MaxCount spans every frame so the color
// scale stays fixed through the animation.
type FramesView struct {
	Frames   []Frame
	MaxCount int
}

// Frames bins each year of the filtered records on the same fixed extent.
func (p *Pipeline) Frames(c filter.Criteria) (view *FramesView, err error) {
	start := p.clock.Now()
	defer func() { p.observe(ViewFrames, start, err) }()

	snap, _, records, err := p.filtered(c)
	if err != nil {
		return nil, err
	}

	years := temporal.YearFrames(records)
	if len(years) == 0 {
		return nil, fmt.Errorf("year frames: %w", ErrNoData)
	}

	view = &FramesView{Frames: make([]Frame, len(years))}
	populated := false
	for i, y := range years {
		points, _ := p.projector.Project(y.Records, domain.FieldLatitude, domain.FieldLongitude)
		f := Frame{Year: y.Year, Records: len(y.Records)}
		binning, err := p.bin(points, snap.Extent)
		switch {
		case errors.Is(err, ErrNoData):
		case err != nil:
			return nil, fmt.Errorf("year %d: %w", y.Year, err)
		default:
			f.Binning = binning
			view.MaxCount = max(view.MaxCount, binning.MaxCount())
			populated = true
		}
		view.Frames[i] = f
	}
	if !populated {
		return nil, fmt.Errorf("year frames: %w", ErrNoData)
	}
	return view, nil
}
