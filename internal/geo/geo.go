package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// Earth's mean radius, matching the value used by the s2 library helpers.
const EarthRadiusMeters = 6371000.0

// Coordinate is a geographic point in decimal degrees.
type Coordinate struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// Distance returns the great-circle distance between two coordinates in meters.
func Distance(a, b Coordinate) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Bearing returns the initial bearing (forward azimuth) from a to b
// in degrees, normalized to [0, 360). 0 is North, 90 is East.
func Bearing(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	lonDiff := (b.Lon - a.Lon) * math.Pi / 180

	y := math.Sin(lonDiff) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(lonDiff)
	bearing := math.Atan2(y, x) * 180 / math.Pi

	return math.Mod(bearing+360, 360)
}

// Lerp linearly interpolates between a and b by t in [0, 1].
// Adequate for the short segments of a dense polyline; not a geodesic.
func Lerp(a, b Coordinate, t float64) Coordinate {
	return Coordinate{
		Lat: a.Lat + (b.Lat-a.Lat)*t,
		Lon: a.Lon + (b.Lon-a.Lon)*t,
	}
}

// Region is a latitude/longitude bounding box.
type Region struct {
	MinLat, MinLon float64
	MaxLat, MaxLon float64
}

// Bounds returns the bounding box of the given coordinates.
// The zero Region is returned for an empty slice.
func Bounds(coords []Coordinate) Region {
	if len(coords) == 0 {
		return Region{}
	}
	r := Region{
		MinLat: coords[0].Lat, MaxLat: coords[0].Lat,
		MinLon: coords[0].Lon, MaxLon: coords[0].Lon,
	}
	for _, c := range coords[1:] {
		r.MinLat = math.Min(r.MinLat, c.Lat)
		r.MaxLat = math.Max(r.MaxLat, c.Lat)
		r.MinLon = math.Min(r.MinLon, c.Lon)
		r.MaxLon = math.Max(r.MaxLon, c.Lon)
	}
	return r
}

// Center returns the midpoint of the region.
func (r Region) Center() Coordinate {
	return Coordinate{
		Lat: (r.MinLat + r.MaxLat) / 2,
		Lon: (r.MinLon + r.MaxLon) / 2,
	}
}

// Expanded grows the region by frac of its span on every side.
// A degenerate (single point) region is padded by a small fixed margin
// so it still covers a drawable area.
func (r Region) Expanded(frac float64) Region {
	latSpan := r.MaxLat - r.MinLat
	lonSpan := r.MaxLon - r.MinLon
	const minSpan = 0.005
	if latSpan < minSpan {
		latSpan = minSpan
	}
	if lonSpan < minSpan {
		lonSpan = minSpan
	}
	return Region{
		MinLat: r.MinLat - latSpan*frac,
		MaxLat: r.MaxLat + latSpan*frac,
		MinLon: r.MinLon - lonSpan*frac,
		MaxLon: r.MaxLon + lonSpan*frac,
	}
}
