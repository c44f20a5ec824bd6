package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/golang/geo/r2"

	"github.com/couchcryptid/bike-crash-explorer/internal/basemap"
	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
	"github.com/couchcryptid/bike-crash-explorer/internal/filter"
	"github.com/couchcryptid/bike-crash-explorer/internal/geo"
)

// criteriaFromQuery reads the filter controls. Missing parameters select Any.
func criteriaFromQuery(q url.Values) (filter.Criteria, error) {
	c := filter.NewCriteria()
	for key, dst := range map[string]*string{
		"alcohol": &c.Alcohol,
		"hitrun":  &c.HitRun,
		"light":   &c.LightCond,
		"bikepos": &c.BikePos,
		"traffic": &c.TraffCntrl,
		"speed":   &c.SpeedLimit,
		"feature": &c.RdFeature,
		"month":   &c.Month,
	} {
		if v := q.Get(key); v != "" {
			*dst = v
		}
	}

	if h := q.Get("hour"); h != "" && h != domain.Any {
		n, err := strconv.Atoi(h)
		if err != nil {
			return filter.Criteria{}, fmt.Errorf("%w: hour %q", filter.ErrInvalidChoice, h)
		}
		c.Hour = n
	}
	return c, nil
}

// appearance is the basemap style and theme a request draws with.
type appearance struct {
	style    string
	dark     bool
	provider basemap.Provider
	theme    basemap.Theme
}

func (s *Server) appearanceFromQuery(q url.Values) (appearance, error) {
	a := appearance{style: s.opts.BasemapStyle, dark: s.opts.DarkMode}
	if v := q.Get("style"); v != "" {
		a.style = v
	}
	if v := q.Get("dark"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return appearance{}, fmt.Errorf("%w: dark %q", filter.ErrInvalidChoice, v)
		}
		a.dark = b
	}
	a.provider = basemap.Resolve(a.style, a.dark)
	a.theme = basemap.ThemeFor(a.dark)
	return a, nil
}

// tileStyle is the path segment naming a's provider on the tile proxy.
func (a appearance) tileStyle() string {
	if a.dark {
		return "dark"
	}
	return strings.ToLower(strings.TrimSpace(a.style))
}

// cursorFromQuery reads the hover position either as planar map coordinates (x, y) or
// as latitude and longitude.
func cursorFromQuery(q url.Values) (r2.Point, error) {
	if q.Has("lat") || q.Has("lon") {
		lat, err := strconv.ParseFloat(q.Get("lat"), 64)
		if err != nil {
			return r2.Point{}, fmt.Errorf("invalid lat %q", q.Get("lat"))
		}
		lon, err := strconv.ParseFloat(q.Get("lon"), 64)
		if err != nil {
			return r2.Point{}, fmt.Errorf("invalid lon %q", q.Get("lon"))
		}
		return geo.ToPlanar(lat, lon), nil
	}
	x, err := strconv.ParseFloat(q.Get("x"), 64)
	if err != nil {
		return r2.Point{}, fmt.Errorf("invalid x %q", q.Get("x"))
	}
	y, err := strconv.ParseFloat(q.Get("y"), 64)
	if err != nil {
		return r2.Point{}, fmt.Errorf("invalid y %q", q.Get("y"))
	}
	return r2.Point{X: x, Y: y}, nil
}
