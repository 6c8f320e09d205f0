package path

import (
	"github.com/ivlev/route2video/internal/geo"
)

const (
	// Steps used to subdivide a straight two-point route. Even a straight
	// line needs many samples to keep per-frame interpolation error low.
	twoPointSteps = 64

	// Samples per spline span between consecutive waypoints.
	spanSteps = 32

	// Catmull-Rom tension.
	tension = 0.5

	// Scale applied to the mirrored segment delta when synthesizing the
	// virtual control points before the first and after the last waypoint.
	endpointMirror = 0.3
)

// Smooth converts an ordered waypoint sequence into a dense interpolated
// polyline. Two points are subdivided linearly; three or more are fit with
// a Catmull-Rom spline passing exactly through every waypoint. Fewer than
// two points yield an empty polyline. The output is a pure function of the
// input.
func Smooth(waypoints []geo.Coordinate) []geo.Coordinate {
	switch {
	case len(waypoints) < 2:
		return nil
	case len(waypoints) == 2:
		return subdivide(waypoints[0], waypoints[1], twoPointSteps)
	default:
		return catmullRom(waypoints)
	}
}

func subdivide(a, b geo.Coordinate, steps int) []geo.Coordinate {
	out := make([]geo.Coordinate, 0, steps+1)
	for i := 0; i <= steps; i++ {
		out = append(out, geo.Lerp(a, b, float64(i)/float64(steps)))
	}
	return out
}

// catmullRom samples each span between consecutive waypoints uniformly in
// the spline parameter. Virtual control points extend the sequence at both
// ends by mirroring the adjacent segment's delta, so curvature stays
// continuous at the endpoints instead of collapsing into zero-length spans.
func catmullRom(wp []geo.Coordinate) []geo.Coordinate {
	n := len(wp)

	first := geo.Coordinate{
		Lat: wp[0].Lat + (wp[0].Lat-wp[1].Lat)*endpointMirror,
		Lon: wp[0].Lon + (wp[0].Lon-wp[1].Lon)*endpointMirror,
	}
	last := geo.Coordinate{
		Lat: wp[n-1].Lat + (wp[n-1].Lat-wp[n-2].Lat)*endpointMirror,
		Lon: wp[n-1].Lon + (wp[n-1].Lon-wp[n-2].Lon)*endpointMirror,
	}

	ctrl := make([]geo.Coordinate, 0, n+2)
	ctrl = append(ctrl, first)
	ctrl = append(ctrl, wp...)
	ctrl = append(ctrl, last)

	out := make([]geo.Coordinate, 0, (n-1)*spanSteps+1)
	for span := 0; span < n-1; span++ {
		p0, p1, p2, p3 := ctrl[span], ctrl[span+1], ctrl[span+2], ctrl[span+3]
		for k := 0; k < spanSteps; k++ {
			t := float64(k) / float64(spanSteps)
			out = append(out, splinePoint(p0, p1, p2, p3, t))
		}
	}
	// The loop samples t in [0,1) per span; close with the exact last waypoint.
	out = append(out, wp[n-1])
	return out
}

// splinePoint evaluates the Catmull-Rom polynomial for the span p1->p2.
// At t=0 it returns exactly p1, at t=1 exactly p2.
func splinePoint(p0, p1, p2, p3 geo.Coordinate, t float64) geo.Coordinate {
	t2 := t * t
	t3 := t2 * t

	eval := func(v0, v1, v2, v3 float64) float64 {
		return tension * ((2 * v1) +
			(-v0+v2)*t +
			(2*v0-5*v1+4*v2-v3)*t2 +
			(-v0+3*v1-3*v2+v3)*t3)
	}

	return geo.Coordinate{
		Lat: eval(p0.Lat, p1.Lat, p2.Lat, p3.Lat),
		Lon: eval(p0.Lon, p1.Lon, p2.Lon, p3.Lon),
	}
}
