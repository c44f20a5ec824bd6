// Package basemap resolves basemap styles to tile providers and computes which
// Web-Mercator tiles cover the map extent.
package basemap

import (
	"errors"
	"strconv"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/couchcryptid/bike-crash-explorer/internal/geo"
)

// Provider is an XYZ tile source.
type Provider struct {
	Name        string
	URLTemplate string
	Attribution string
	MaxZoom     maptile.Zoom
}

var (
	EsriWorldStreetMap = Provider{
		Name:        "Esri.WorldStreetMap",
		URLTemplate: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Street_Map/MapServer/tile/{z}/{y}/{x}",
		Attribution: "Tiles (C) Esri",
		MaxZoom:     17,
	}
	EsriWorldGrayCanvas = Provider{
		Name:        "Esri.WorldGrayCanvas",
		URLTemplate: "https://server.arcgisonline.com/ArcGIS/rest/services/Canvas/World_Light_Gray_Base/MapServer/tile/{z}/{y}/{x}",
		Attribution: "Tiles (C) Esri",
		MaxZoom:     16,
	}
	EsriWorldTopoMap = Provider{
		Name:        "Esri.WorldTopoMap",
		URLTemplate: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Topo_Map/MapServer/tile/{z}/{y}/{x}",
		Attribution: "Tiles (C) Esri",
		MaxZoom:     17,
	}
	CartoDarkMatter = Provider{
		Name:        "CartoDB.DarkMatter",
		URLTemplate: "https://a.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}.png",
		Attribution: "(C) OpenStreetMap contributors (C) CARTO",
		MaxZoom:     20,
	}
)

// Resolve maps a style name to a provider. Unrecognized names fall back to the street
// map; dark overrides the style entirely.
func Resolve(style string, dark bool) Provider {
	if dark {
		return CartoDarkMatter
	}
	switch strings.ToLower(strings.TrimSpace(style)) {
	case "gray", "grey", "lightgray", "light":
		return EsriWorldGrayCanvas
	case "topo", "topographic":
		return EsriWorldTopoMap
	default:
		return EsriWorldStreetMap
	}
}

// URL fills the provider template for t.
func (p Provider) URL(t maptile.Tile) string {
	return strings.NewReplacer(
		"{z}", strconv.Itoa(int(t.Z)),
		"{x}", strconv.FormatUint(uint64(t.X), 10),
		"{y}", strconv.FormatUint(uint64(t.Y), 10),
	).Replace(p.URLTemplate)
}

// Theme holds the colors of the figure chrome.
type Theme struct {
	Dark        bool   `json:"dark"`
	Figure      string `json:"figure"`
	Text        string `json:"text"`
	Placeholder string `json:"placeholder"`
	TooltipFill string `json:"tooltip_fill"`
	TooltipText string `json:"tooltip_text"`
	TooltipEdge string `json:"tooltip_edge"`
}

// ThemeFor returns the light or dark theme.
func ThemeFor(dark bool) Theme {
	if dark {
		return Theme{
			Dark:        true,
			Figure:      "#1a1a1a",
			Text:        "#ffffff",
			Placeholder: "#ff6b6b",
			TooltipFill: "#2a2a2a",
			TooltipText: "#ffffff",
			TooltipEdge: "#808080",
		}
	}
	return Theme{
		Figure:      "#ffffff",
		Text:        "#000000",
		Placeholder: "#ff0000",
		TooltipFill: "#ffffff",
		TooltipText: "#000000",
		TooltipEdge: "#000000",
	}
}

// TileRef is a tile together with its extent on the Web-Mercator plane.
type TileRef struct {
	Tile   maptile.Tile
	Bounds r2.Rect
}

// Cover returns the tiles covering extent at the deepest zoom, no deeper than maxZoom,
// that needs at most maxTiles tiles.
func Cover(extent r2.Rect, maxTiles int, maxZoom maptile.Zoom) ([]TileRef, maptile.Zoom, error) {
	if extent.IsEmpty() {
		return nil, 0, errors.New("cover extent: empty")
	}
	if maxTiles < 1 {
		return nil, 0, errors.New("cover extent: tile budget must be positive")
	}

	latLo, lonLo := geo.ToLatLon(extent.Lo())
	latHi, lonHi := geo.ToLatLon(extent.Hi())
	nw := orb.Point{lonLo, latHi}
	se := orb.Point{lonHi, latLo}

	for z := maxZoom; ; z-- {
		a, b := maptile.At(nw, z), maptile.At(se, z)
		n := int(b.X-a.X+1) * int(b.Y-a.Y+1)
		if n <= maxTiles || z == 0 {
			refs := make([]TileRef, 0, n)
			for y := a.Y; y <= b.Y; y++ {
				for x := a.X; x <= b.X; x++ {
					t := maptile.New(x, y, z)
					refs = append(refs, TileRef{Tile: t, Bounds: planarBounds(t)})
				}
			}
			return refs, z, nil
		}
	}
}

func planarBounds(t maptile.Tile) r2.Rect {
	b := t.Bound()
	return r2.RectFromPoints(
		geo.ToPlanar(b.Min.Lat(), b.Min.Lon()),
		geo.ToPlanar(b.Max.Lat(), b.Max.Lon()),
	)
}
