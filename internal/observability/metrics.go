package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "crash_explorer"

// Metrics holds the Prometheus counters, histograms, and gauges for the explorer.
type Metrics struct {
	// View metrics.
	ViewsRendered *prometheus.CounterVec   // labels: view
	ViewsNoData   *prometheus.CounterVec   // labels: view
	ViewDuration  *prometheus.HistogramVec // labels: view
	HoverQueries  *prometheus.CounterVec   // labels: outcome={hit,miss}

	// Dataset metrics.
	DatasetRecords  prometheus.Gauge
	DatasetReloads  *prometheus.CounterVec // labels: outcome={success,error}
	ProjectionDrops *prometheus.CounterVec // labels: reason={missing,out_of_range}

	// Basemap tile metrics.
	TileRequests      *prometheus.CounterVec // labels: outcome={success,error}
	TileCache         *prometheus.CounterVec // labels: result={hit,miss}
	TileFetchDuration prometheus.Histogram
	TilesEnabled      prometheus.Gauge
}

// NewMetrics creates and registers all explorer metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.ViewsRendered,
		m.ViewsNoData,
		m.ViewDuration,
		m.HoverQueries,
		m.DatasetRecords,
		m.DatasetReloads,
		m.ProjectionDrops,
		m.TileRequests,
		m.TileCache,
		m.TileFetchDuration,
		m.TilesEnabled,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ViewsRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "views_rendered_total",
			Help:      "Views computed, by view name.",
		}, []string{"view"}),
		ViewsNoData: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "views_no_data_total",
			Help:      "Views that resolved to the no-data placeholder, by view name.",
		}, []string{"view"}),
		ViewDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "view_duration_seconds",
			Help:      "Time to filter, aggregate and lay out a view.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"view"}),
		HoverQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hover_queries_total",
			Help:      "Hover lookups by outcome.",
		}, []string{"outcome"}),
		DatasetRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_records",
			Help:      "Number of crash records currently loaded.",
		}),
		DatasetReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_reloads_total",
			Help:      "Dataset load attempts by outcome.",
		}, []string{"outcome"}),
		ProjectionDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projection_drops_total",
			Help:      "Records excluded from the hexbin map, by reason.",
		}, []string{"reason"}),
		TileRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tile_requests_total",
			Help:      "Upstream basemap tile requests by outcome.",
		}, []string{"outcome"}),
		TileCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tile_cache_total",
			Help:      "Basemap tile cache lookups by result.",
		}, []string{"result"}),
		TileFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tile_fetch_duration_seconds",
			Help:      "Upstream basemap tile request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		TilesEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tiles_enabled",
			Help:      "1 when basemap tiles are fetched, 0 when the map renders without a basemap.",
		}),
	}
}
