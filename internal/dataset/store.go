package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang/geo/r2"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
	"github.com/couchcryptid/bike-crash-explorer/internal/geo"
	"github.com/couchcryptid/bike-crash-explorer/internal/observability"
)

// ErrAlreadyLoaded is returned by Init on a store that already holds a dataset.
var ErrAlreadyLoaded = errors.New("dataset already loaded")

// Snapshot is one immutable generation of the dataset.
type Snapshot struct {
	Records []domain.CrashRecord
	Stats   Stats
	Drops   geo.Drops

	// Extent bounds every projectable record in the full dataset. Views bin against it so
	// the grid stays put while filters change. Empty when nothing projects.
	Extent r2.Rect

	Version  uint64
	LoadedAt time.Time
	Source   string
}

// Store holds the current dataset. Readers take snapshots; Reload swaps in a new one.
type Store struct {
	path      string
	opts      Options
	projector *geo.Projector
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger

	mu      sync.RWMutex
	current *Snapshot
}

// NewStore creates an empty store for the file at path.
func NewStore(path string, opts Options, projector *geo.Projector, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Store {
	return &Store{
		path:      path,
		opts:      opts,
		projector: projector,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
	}
}

// Init performs the first load.
func (s *Store) Init(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.current != nil
	s.mu.RUnlock()
	if loaded {
		return ErrAlreadyLoaded
	}
	_, err := s.Reload(ctx)
	return err
}

// Reload re-reads the file. On failure the previous snapshot stays current.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	records, stats, err := LoadFile(ctx, s.path, s.opts)
	if err != nil {
		s.metrics.DatasetReloads.WithLabelValues("error").Inc()
		return nil, err
	}

	points, drops := s.projector.Project(records, domain.FieldLatitude, domain.FieldLongitude)
	extent, ok := geo.Extent(points)
	if !ok {
		s.logger.Warn("no records inside the geographic bounds",
			"path", s.path,
			"missing", drops.Missing,
			"out_of_range", drops.OutOfRange,
		)
	}

	s.mu.Lock()
	var version uint64 = 1
	if s.current != nil {
		version = s.current.Version + 1
	}
	snap := &Snapshot{
		Records:  records,
		Stats:    stats,
		Drops:    drops,
		Extent:   extent,
		Version:  version,
		LoadedAt: s.clock.Now(),
		Source:   s.path,
	}
	s.current = snap
	s.mu.Unlock()

	s.metrics.DatasetReloads.WithLabelValues("success").Inc()
	s.metrics.DatasetRecords.Set(float64(len(records)))
	s.logger.Info("dataset loaded",
		"path", s.path,
		"version", version,
		"records", len(records),
		"short_rows", stats.ShortRows,
		"missing_coords", drops.Missing,
		"out_of_range", drops.OutOfRange,
	)
	return snap, nil
}

// Snapshot returns the current dataset, or false before the first successful load.
func (s *Store) Snapshot() (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != nil
}

// CheckReadiness reports whether a dataset is loaded.
func (s *Store) CheckReadiness(_ context.Context) error {
	if _, ok := s.Snapshot(); !ok {
		return fmt.Errorf("dataset %s not loaded", s.path)
	}
	return nil
}
