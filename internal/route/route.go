package route

import (
	"fmt"

	"github.com/ivlev/route2video/internal/geo"
)

// Waypoint is a single stop along a route. The display name is optional,
// and coordinates may be absent until resolved by a geocoder.
type Waypoint struct {
	Name string   `yaml:"name,omitempty"`
	Lat  *float64 `yaml:"lat,omitempty"`
	Lon  *float64 `yaml:"lon,omitempty"`
}

// Resolved reports whether the waypoint has coordinates.
func (w Waypoint) Resolved() bool {
	return w.Lat != nil && w.Lon != nil
}

// Coordinate returns the waypoint's coordinate. Only valid if Resolved.
func (w Waypoint) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: *w.Lat, Lon: *w.Lon}
}

// NewWaypoint builds a resolved waypoint.
func NewWaypoint(name string, lat, lon float64) Waypoint {
	return Waypoint{Name: name, Lat: &lat, Lon: &lon}
}

// Route is an ordered, immutable-by-convention sequence of waypoints.
type Route struct {
	Name      string     `yaml:"name"`
	Waypoints []Waypoint `yaml:"waypoints"`
}

// UsableCoordinates returns the coordinates of all resolved waypoints,
// in route order. Unresolved waypoints are skipped.
func (r *Route) UsableCoordinates() []geo.Coordinate {
	coords := make([]geo.Coordinate, 0, len(r.Waypoints))
	for _, w := range r.Waypoints {
		if w.Resolved() {
			coords = append(coords, w.Coordinate())
		}
	}
	return coords
}

// UsableWaypoints returns only the resolved waypoints, in route order.
func (r *Route) UsableWaypoints() []Waypoint {
	out := make([]Waypoint, 0, len(r.Waypoints))
	for _, w := range r.Waypoints {
		if w.Resolved() {
			out = append(out, w)
		}
	}
	return out
}

// Validate checks that the route can be animated: at least two resolved
// waypoints are required.
func (r *Route) Validate() error {
	if len(r.UsableCoordinates()) < 2 {
		return fmt.Errorf("route %q has fewer than 2 resolved waypoints", r.Name)
	}
	return nil
}
