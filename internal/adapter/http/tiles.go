package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/paulmach/orb/maptile"

	"github.com/couchcryptid/bike-crash-explorer/internal/adapter/tiles"
	"github.com/couchcryptid/bike-crash-explorer/internal/basemap"
)

const maxProxyZoom = 22

// handleTile proxies one basemap tile so the drawn map only references this server.
func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	t, ok := tileFromPath(r)
	if !ok {
		http.Error(w, "invalid tile address", http.StatusBadRequest)
		return
	}
	style := r.PathValue("style")
	provider := basemap.Resolve(style, style == "dark")

	img, err := s.opts.Tiles.Fetch(r.Context(), provider, t)
	switch {
	case errors.Is(err, tiles.ErrTileNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		s.logger.Warn("tile fetch failed",
			"provider", provider.Name,
			"z", t.Z, "x", t.X, "y", t.Y,
			"error", err,
		)
		http.Error(w, "tile unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(img.Data) //nolint:errcheck // client may have gone away
}

func tileFromPath(r *http.Request) (maptile.Tile, bool) {
	z, err := strconv.ParseUint(r.PathValue("z"), 10, 8)
	if err != nil || z > maxProxyZoom {
		return maptile.Tile{}, false
	}
	x, err := strconv.ParseUint(r.PathValue("x"), 10, 32)
	if err != nil {
		return maptile.Tile{}, false
	}
	y, err := strconv.ParseUint(r.PathValue("y"), 10, 32)
	if err != nil {
		return maptile.Tile{}, false
	}
	if n := uint64(1) << z; x >= n || y >= n {
		return maptile.Tile{}, false
	}
	return maptile.New(uint32(x), uint32(y), maptile.Zoom(z)), true
}
