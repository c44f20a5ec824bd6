// Package geo places crash records on the Web-Mercator plane.
package geo

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
)

// Box is an inclusive latitude/longitude rectangle in degrees.
type Box struct {
	LatMin, LonMin, LatMax, LonMax float64
}

// Validate checks that the box is well formed and on the globe.
func (b Box) Validate() error {
	switch {
	case b.LatMin < -85.05 || b.LatMax > 85.05:
		return errors.New("latitude outside the Web-Mercator range")
	case b.LonMin < -180 || b.LonMax > 180:
		return errors.New("longitude outside [-180, 180]")
	case b.LatMin >= b.LatMax:
		return fmt.Errorf("lat_min %g must be below lat_max %g", b.LatMin, b.LatMax)
	case b.LonMin >= b.LonMax:
		return fmt.Errorf("lon_min %g must be below lon_max %g", b.LonMin, b.LonMax)
	}
	return nil
}

func (b Box) rect() s2.Rect {
	lo := s2.LatLngFromDegrees(b.LatMin, b.LonMin)
	hi := s2.LatLngFromDegrees(b.LatMax, b.LonMax)
	return s2.Rect{
		Lat: r1.Interval{Lo: lo.Lat.Radians(), Hi: hi.Lat.Radians()},
		Lng: s1.IntervalFromEndpoints(lo.Lng.Radians(), hi.Lng.Radians()),
	}
}

// Drops counts records excluded by Project.
type Drops struct {
	Missing    int
	OutOfRange int
}

// Projector filters records to a fixed geographic box and projects the survivors.
type Projector struct {
	box  Box
	rect s2.Rect
}

// NewProjector returns a Projector for the configured validity box.
func NewProjector(box Box) (*Projector, error) {
	if err := box.Validate(); err != nil {
		return nil, fmt.Errorf("geo bounds: %w", err)
	}
	return &Projector{box: box, rect: box.rect()}, nil
}

// Box returns the validity box.
func (p *Projector) Box() Box { return p.box }

// Project drops records without coordinates or outside the box and maps the rest
// to spherical Web-Mercator meters. An empty result is not an error.
func (p *Projector) Project(records []domain.CrashRecord, latField, lonField string) ([]domain.ProjectedPoint, Drops) {
	var drops Drops
	points := make([]domain.ProjectedPoint, 0, len(records))
	for _, rec := range records {
		lat, okLat := rec.Coord(latField)
		lon, okLon := rec.Coord(lonField)
		if !okLat || !okLon {
			drops.Missing++
			continue
		}
		if !p.rect.ContainsLatLng(s2.LatLngFromDegrees(lat, lon)) {
			drops.OutOfRange++
			continue
		}
		points = append(points, domain.ProjectedPoint{Record: rec, XY: ToPlanar(lat, lon)})
	}
	return points, drops
}

// ToPlanar projects a single WGS-84 coordinate.
func ToPlanar(lat, lon float64) r2.Point {
	m := project.Point(orb.Point{lon, lat}, project.WGS84.ToMercator)
	return r2.Point{X: m[0], Y: m[1]}
}

// ToLatLon inverts ToPlanar.
func ToLatLon(p r2.Point) (lat, lon float64) {
	g := project.Point(orb.Point{p.X, p.Y}, project.Mercator.ToWGS84)
	return g[1], g[0]
}

// Extent returns the bounding box of points. The second result is false for no points.
func Extent(points []domain.ProjectedPoint) (r2.Rect, bool) {
	if len(points) == 0 {
		return r2.EmptyRect(), false
	}
	ext := r2.RectFromPoints(points[0].XY)
	for _, p := range points[1:] {
		ext = ext.AddPoint(p.XY)
	}
	return ext, true
}
