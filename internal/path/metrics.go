package path

import (
	"github.com/ivlev/route2video/internal/geo"
)

// Metrics holds per-segment and cumulative great-circle distances over a
// dense polyline. Invariants: Cumulative[0] == 0,
// Cumulative[i+1] == Cumulative[i] + Segment[i], and Total == Cumulative[last].
type Metrics struct {
	Segment    []float64 // meters, len == len(polyline)-1
	Cumulative []float64 // meters, len == len(polyline)
	Total      float64
}

// Measure computes segment and cumulative distances for the polyline.
// Fewer than two points yield zero-length metrics.
func Measure(polyline []geo.Coordinate) Metrics {
	if len(polyline) < 2 {
		return Metrics{
			Segment:    nil,
			Cumulative: make([]float64, len(polyline)),
		}
	}

	m := Metrics{
		Segment:    make([]float64, len(polyline)-1),
		Cumulative: make([]float64, len(polyline)),
	}
	for i := 0; i < len(polyline)-1; i++ {
		m.Segment[i] = geo.Distance(polyline[i], polyline[i+1])
		m.Cumulative[i+1] = m.Cumulative[i] + m.Segment[i]
	}
	m.Total = m.Cumulative[len(m.Cumulative)-1]
	return m
}
