// Package tiles fetches basemap tiles from XYZ tile servers.
package tiles

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb/maptile"

	"github.com/couchcryptid/bike-crash-explorer/internal/basemap"
	"github.com/couchcryptid/bike-crash-explorer/internal/observability"
)

// maxTileBytes caps a single tile body.
const maxTileBytes = 4 << 20

const userAgent = "bike-crash-explorer/1.0"

// ErrTileNotFound is returned when the server has no tile at the requested address.
var ErrTileNotFound = errors.New("tile not found")

// Image is a fetched tile body.
type Image struct {
	Data        []byte
	ContentType string
}

// Fetcher retrieves one tile from a provider.
type Fetcher interface {
	Fetch(ctx context.Context, p basemap.Provider, t maptile.Tile) (Image, error)
}

// Client fetches tiles over HTTP.
type Client struct {
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a tile client.
func NewClient(timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch downloads tile t from p.
func (c *Client) Fetch(ctx context.Context, p basemap.Provider, t maptile.Tile) (Image, error) {
	if t.Z > p.MaxZoom {
		return Image{}, fmt.Errorf("%w: zoom %d beyond %s max %d", ErrTileNotFound, t.Z, p.Name, p.MaxZoom)
	}

	start := time.Now()
	img, err := c.doRequest(ctx, p.URL(t))
	c.metrics.TileFetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.TileRequests.WithLabelValues("error").Inc()
		c.logger.Warn("tile fetch failed",
			"provider", p.Name,
			"z", t.Z, "x", t.X, "y", t.Y,
			"error", err,
		)
		return Image{}, err
	}
	c.metrics.TileRequests.WithLabelValues("success").Inc()
	return img, nil
}

func (c *Client) doRequest(ctx context.Context, url string) (Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Image{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("tile request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Image{}, ErrTileNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Image{}, fmt.Errorf("tile server error: status %d: %s", resp.StatusCode, body)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return Image{}, fmt.Errorf("tile server returned %q, want an image", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTileBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("read tile: %w", err)
	}
	if len(data) > maxTileBytes {
		return Image{}, fmt.Errorf("tile exceeds %d bytes", maxTileBytes)
	}
	return Image{Data: data, ContentType: contentType}, nil
}
