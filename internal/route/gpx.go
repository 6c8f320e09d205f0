package route

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/ivlev/route2video/internal/geo"
)

// DefaultGPXWaypoints caps how many points a GPX track is decimated to.
// A recorded track carries thousands of points; the smoother only needs
// the coarse shape and fits its own dense polyline through them.
const DefaultGPXWaypoints = 24

// FromGPX builds a route from a GPX file. Track points across all tracks
// and segments are collected in order and decimated evenly to maxPoints
// (first and last points always kept). maxPoints <= 0 uses the default.
func FromGPX(path string, maxPoints int) (*Route, error) {
	if maxPoints <= 0 {
		maxPoints = DefaultGPXWaypoints
	}

	doc, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GPX file: %w", err)
	}

	var coords []geo.Coordinate
	for _, track := range doc.Tracks {
		for _, segment := range track.Segments {
			for _, p := range segment.Points {
				coords = append(coords, geo.Coordinate{Lat: p.Latitude, Lon: p.Longitude})
			}
		}
	}
	if len(coords) < 2 {
		return nil, fmt.Errorf("GPX file %s contains fewer than 2 track points", path)
	}

	coords = decimate(coords, maxPoints)

	name := doc.Name
	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	r := &Route{Name: name}
	for _, c := range coords {
		r.Waypoints = append(r.Waypoints, NewWaypoint("", c.Lat, c.Lon))
	}
	return r, nil
}

// decimate keeps at most max points, sampled evenly, preserving endpoints.
func decimate(coords []geo.Coordinate, max int) []geo.Coordinate {
	if len(coords) <= max || max < 2 {
		return coords
	}

	out := make([]geo.Coordinate, 0, max)
	step := float64(len(coords)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(float64(i)*step + 0.5)
		if idx > len(coords)-1 {
			idx = len(coords) - 1
		}
		out = append(out, coords[idx])
	}
	out[len(out)-1] = coords[len(coords)-1]
	return out
}
