package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/bike-crash-explorer/internal/geo"
)

const (
	minGridSize = 5
	maxGridSize = 200
)

// DefaultBounds is a broad box around North Carolina.
var DefaultBounds = geo.Box{LatMin: 33.75, LonMin: -84.4, LatMax: 36.65, LonMax: -75.4}

// Config holds all viewer settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Dataset and projection.
	DataPath  string
	LatField  string
	LonField  string
	GridSize  int
	GeoBounds geo.Box

	// Basemap appearance.
	BasemapStyle string
	DarkMode     bool

	// Basemap tile proxy.
	TilesEnabled   bool
	TilesTimeout   time.Duration
	TilesCacheSize int
	TilesMax       int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	gridSize, err := parseIntRange("GRID_SIZE", 40, minGridSize, maxGridSize)
	if err != nil {
		return nil, err
	}

	bounds, err := parseBounds(os.Getenv("GEO_BOUNDS"))
	if err != nil {
		return nil, err
	}

	darkMode, err := parseBool("DARK_MODE", false)
	if err != nil {
		return nil, err
	}

	tilesEnabled, err := parseBool("TILES_ENABLED", false)
	if err != nil {
		return nil, err
	}

	tilesTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("TILES_TIMEOUT", "5s"))
	if err != nil || tilesTimeout <= 0 {
		return nil, errors.New("invalid TILES_TIMEOUT")
	}

	tilesCacheSize, err := parseIntRange("TILES_CACHE_SIZE", 256, 1, 1<<16)
	if err != nil {
		return nil, err
	}

	tilesMax, err := parseIntRange("TILES_MAX", 16, 1, 256)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", "127.0.0.1:8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataPath:  sharedcfg.EnvOrDefault("DATA_PATH", "data/bike_crashes.csv"),
		LatField:  sharedcfg.EnvOrDefault("LAT_FIELD", "Latitude"),
		LonField:  sharedcfg.EnvOrDefault("LON_FIELD", "Longitude"),
		GridSize:  gridSize,
		GeoBounds: bounds,

		BasemapStyle: sharedcfg.EnvOrDefault("BASEMAP_STYLE", "gray"),
		DarkMode:     darkMode,

		TilesEnabled:   tilesEnabled,
		TilesTimeout:   tilesTimeout,
		TilesCacheSize: tilesCacheSize,
		TilesMax:       tilesMax,
	}

	if cfg.DataPath == "" {
		return nil, errors.New("DATA_PATH is required")
	}
	if cfg.LatField == "" || cfg.LonField == "" {
		return nil, errors.New("LAT_FIELD and LON_FIELD must not be empty")
	}

	return cfg, nil
}

func parseIntRange(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s %q: must be an integer in [%d, %d]", key, s, lo, hi)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", key, s)
	}
	return b, nil
}

// parseBounds reads "lat_min,lon_min,lat_max,lon_max".
func parseBounds(s string) (geo.Box, error) {
	if s == "" {
		return DefaultBounds, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geo.Box{}, fmt.Errorf("invalid GEO_BOUNDS %q: want lat_min,lon_min,lat_max,lon_max", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geo.Box{}, fmt.Errorf("invalid GEO_BOUNDS %q: %w", s, err)
		}
		v[i] = f
	}
	box := geo.Box{LatMin: v[0], LonMin: v[1], LatMax: v[2], LonMax: v[3]}
	if err := box.Validate(); err != nil {
		return geo.Box{}, fmt.Errorf("invalid GEO_BOUNDS: %w", err)
	}
	return box, nil
}
