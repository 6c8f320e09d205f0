package playback

import (
	"sort"

	"github.com/ivlev/route2video/internal/geo"
	"github.com/ivlev/route2video/internal/path"
)

// State is the renderable snapshot for one animation tick. Each tick
// produces a fresh value; nothing is shared across ticks by reference.
type State struct {
	RawProgress   float64
	EasedProgress float64
	SegmentIndex  int
	Coordinate    geo.Coordinate
	HasCoordinate bool
	HeadingDeg    float64
	// Traveled is the prefix of the polyline already driven, ending at
	// Coordinate. The compositor strokes it as the revealed trail.
	Traveled []geo.Coordinate
}

// Sample resolves the playback state at the given eased progress. The
// target distance along the path is easedProgress x total distance; the
// containing segment is located by binary search over the cumulative
// distances. An empty polyline yields a state with HasCoordinate false.
func Sample(raw, eased float64, polyline []geo.Coordinate, m path.Metrics) State {
	st := State{RawProgress: raw, EasedProgress: eased}
	if len(polyline) == 0 {
		return st
	}
	if len(polyline) == 1 {
		st.Coordinate = polyline[0]
		st.HasCoordinate = true
		st.Traveled = []geo.Coordinate{polyline[0]}
		return st
	}

	target := eased * m.Total

	// First index whose cumulative distance exceeds target, minus one.
	// Landing exactly on a vertex counts as the start of that segment.
	i := sort.SearchFloat64s(m.Cumulative, target)
	if i >= len(m.Cumulative) || m.Cumulative[i] != target {
		i--
	}
	if i < 0 {
		i = 0
	}
	// Exact-end edge case: clamp to the last segment.
	if i > len(polyline)-2 {
		i = len(polyline) - 2
	}

	segProgress := 0.0
	if m.Segment[i] > 0 {
		segProgress = (target - m.Cumulative[i]) / m.Segment[i]
		if segProgress < 0 {
			segProgress = 0
		}
		if segProgress > 1 {
			segProgress = 1
		}
	}

	st.SegmentIndex = i
	st.Coordinate = geo.Lerp(polyline[i], polyline[i+1], segProgress)
	st.HasCoordinate = true
	st.HeadingDeg = geo.Bearing(polyline[i], polyline[i+1])

	st.Traveled = make([]geo.Coordinate, 0, i+2)
	st.Traveled = append(st.Traveled, polyline[:i+1]...)
	st.Traveled = append(st.Traveled, st.Coordinate)

	return st
}
