// Package pipeline turns the loaded dataset and a set of filter controls into the
// explorer's views.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/bike-crash-explorer/internal/dataset"
	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
	"github.com/couchcryptid/bike-crash-explorer/internal/filter"
	"github.com/couchcryptid/bike-crash-explorer/internal/geo"
	"github.com/couchcryptid/bike-crash-explorer/internal/observability"
)

var (
	// ErrNotLoaded is returned by every view before the dataset has been loaded.
	ErrNotLoaded = errors.New("dataset not loaded")
	// ErrNoData marks a view with nothing to show for the selected filters.
	ErrNoData = errors.New("no data for selected filters")
)

// View names, used as metric labels and log attributes.
const (
	ViewHexbin         = "hexbin"
	ViewHover          = "hover"
	ViewFrames         = "frames"
	ViewMatrix         = "matrix"
	ViewTemporal       = "temporal"
	ViewHistogram      = "histogram"
	ViewSmallMultiples = "small_multiples"
	ViewGroups         = "groups"
	ViewChoices        = "choices"
)

// Source provides dataset snapshots.
type Source interface {
	Snapshot() (*dataset.Snapshot, bool)
	Reload(ctx context.Context) (*dataset.Snapshot, error)
}

// Pipeline computes views from the current dataset snapshot. Every call filters the
// snapshot afresh; only the most recent hex view is kept between calls.
type Pipeline struct {
	source    Source
	projector *geo.Projector
	gridSize  int
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu      sync.Mutex
	lastHex *HexView
}

// New creates a Pipeline over source.
func New(source Source, projector *geo.Projector, gridSize int, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:    source,
		projector: projector,
		gridSize:  gridSize,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a dataset is loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if _, ok := p.source.Snapshot(); !ok {
		return ErrNotLoaded
	}
	return nil
}

// Reload re-reads the dataset and drops the cached hex view.
func (p *Pipeline) Reload(ctx context.Context) (*dataset.Snapshot, error) {
	snap, err := p.source.Reload(ctx)
	if err != nil {
		p.logger.Error("dataset reload failed", "error", err)
		return nil, fmt.Errorf("reload dataset: %w", err)
	}
	p.mu.Lock()
	p.lastHex = nil
	p.mu.Unlock()
	return snap, nil
}

// filtered validates c and applies it to the current snapshot.
func (p *Pipeline) filtered(c filter.Criteria) (*dataset.Snapshot, filter.Criteria, []domain.CrashRecord, error) {
	snap, ok := p.source.Snapshot()
	if !ok {
		return nil, c, nil, ErrNotLoaded
	}
	c = c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, c, nil, err
	}
	return snap, c, c.Apply(snap.Records), nil
}

// observe records the outcome of one view computation.
func (p *Pipeline) observe(view string, start time.Time, err error) {
	p.metrics.ViewDuration.WithLabelValues(view).Observe(p.clock.Since(start).Seconds())
	switch {
	case err == nil:
		p.metrics.ViewsRendered.WithLabelValues(view).Inc()
	case errors.Is(err, ErrNoData):
		p.metrics.ViewsRendered.WithLabelValues(view).Inc()
		p.metrics.ViewsNoData.WithLabelValues(view).Inc()
	}
}
