package playback

import (
	"math"

	"github.com/ivlev/route2video/internal/geo"
)

// Camera altitude model constants. The altitude scales with route length
// and inversely with playback duration, so short clips over long routes
// pull the camera higher.
const (
	baseAltitudeMeters = 1200.0
	referenceDistance  = 10000.0 // meters
	referenceDuration  = 12.0    // seconds

	minAltitudeMeters = 250.0
	maxAltitudeMeters = 45000.0

	// Fraction of playback over which the camera pulls back at the very
	// start and end, and the widening factor applied there.
	boundaryEdge  = 0.05
	boundaryWiden = 1.5
)

// Pose is the camera state for one tick: where it looks, how high it sits
// and how it is oriented. Derived purely from the playback state and the
// route/duration constants.
type Pose struct {
	Center         geo.Coordinate
	AltitudeMeters float64
	HeadingDeg     float64
	PitchDeg       float64
}

// Camera resolves the camera pose for a playback state. totalDistance is
// the route's measured length in meters, duration the playback length in
// seconds.
func Camera(st State, totalDistance, duration float64) Pose {
	alt := cruiseAltitude(totalDistance, duration)
	alt *= boundaryFactor(st.RawProgress)

	return Pose{
		Center:         st.Coordinate,
		AltitudeMeters: alt,
		HeadingDeg:     st.HeadingDeg,
		PitchDeg:       45,
	}
}

func cruiseAltitude(totalDistance, duration float64) float64 {
	durScale := duration / referenceDuration
	if durScale < 0.5 {
		durScale = 0.5
	}
	alt := baseAltitudeMeters * (totalDistance / referenceDistance) / durScale
	return math.Min(math.Max(alt, minAltitudeMeters), maxAltitudeMeters)
}

// boundaryFactor is a U-shaped piecewise-linear blend: the altitude is
// widened by boundaryWiden at progress 0 and 1, easing linearly back to
// 1.0 over the first and last boundaryEdge of playback.
func boundaryFactor(progress float64) float64 {
	switch {
	case progress < boundaryEdge:
		u := progress / boundaryEdge
		return boundaryWiden - (boundaryWiden-1)*u
	case progress > 1-boundaryEdge:
		u := (progress - (1 - boundaryEdge)) / boundaryEdge
		return 1 + (boundaryWiden-1)*u
	default:
		return 1
	}
}
