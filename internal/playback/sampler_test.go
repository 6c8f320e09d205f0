package playback

import (
	"math"
	"testing"

	"github.com/ivlev/route2video/internal/geo"
	"github.com/ivlev/route2video/internal/path"
)

func eastwardPolyline() ([]geo.Coordinate, path.Metrics) {
	polyline := path.Smooth([]geo.Coordinate{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 10},
	})
	return polyline, path.Measure(polyline)
}

func TestSampleBoundaries(t *testing.T) {
	polyline, m := eastwardPolyline()

	start := Sample(0, 0, polyline, m)
	if !start.HasCoordinate {
		t.Fatal("Expected a coordinate at progress 0")
	}
	if start.Coordinate != polyline[0] {
		t.Errorf("Sample(0) = %+v, want first polyline point %+v", start.Coordinate, polyline[0])
	}

	end := Sample(1, 1, polyline, m)
	if end.Coordinate != polyline[len(polyline)-1] {
		t.Errorf("Sample(1) = %+v, want last polyline point %+v", end.Coordinate, polyline[len(polyline)-1])
	}
	if end.SegmentIndex != len(polyline)-2 {
		t.Errorf("At exact end, segment index should clamp to %d, got %d",
			len(polyline)-2, end.SegmentIndex)
	}
}

func TestSampleHeadingEast(t *testing.T) {
	polyline, m := eastwardPolyline()

	for _, p := range []float64{0, 0.1, 0.33, 0.5, 0.77, 0.99, 1} {
		st := Sample(p, p, polyline, m)
		if math.Abs(st.HeadingDeg-90) > 0.5 {
			t.Errorf("At progress %.2f: heading %.3f, want ~90 (east)", p, st.HeadingDeg)
		}
	}
}

func TestSampleTraveledPrefix(t *testing.T) {
	polyline, m := eastwardPolyline()

	st := Sample(0.5, 0.5, polyline, m)

	if len(st.Traveled) != st.SegmentIndex+2 {
		t.Fatalf("Traveled prefix length %d, want segment index %d + 2",
			len(st.Traveled), st.SegmentIndex)
	}
	if st.Traveled[0] != polyline[0] {
		t.Error("Traveled prefix must start at the first polyline point")
	}
	if st.Traveled[len(st.Traveled)-1] != st.Coordinate {
		t.Error("Traveled prefix must end at the current coordinate")
	}

	// Prefix coordinates are ordered along the path.
	for i := 1; i < len(st.Traveled); i++ {
		if st.Traveled[i].Lon < st.Traveled[i-1].Lon {
			t.Fatalf("Traveled prefix out of order at %d", i)
		}
	}
}

func TestSampleZeroDistanceRoute(t *testing.T) {
	// Two identical coordinates: total distance 0. The sampler must not
	// divide by zero and returns the fixed coordinate for all progress.
	fixed := geo.Coordinate{Lat: 10, Lon: 10}
	polyline := path.Smooth([]geo.Coordinate{fixed, fixed})
	m := path.Measure(polyline)

	if m.Total != 0 {
		t.Fatalf("Expected zero total distance, got %f", m.Total)
	}

	for _, p := range []float64{0, 0.25, 0.5, 1} {
		st := Sample(p, p, polyline, m)
		if !st.HasCoordinate {
			t.Fatalf("Expected a coordinate at progress %f", p)
		}
		if st.Coordinate != fixed {
			t.Errorf("At progress %f: got %+v, want fixed %+v", p, st.Coordinate, fixed)
		}
	}
}

func TestSampleEmptyPolyline(t *testing.T) {
	st := Sample(0.5, 0.5, nil, path.Measure(nil))
	if st.HasCoordinate {
		t.Error("Empty polyline must yield a state without a coordinate")
	}
}

func TestCameraAltitudeScaling(t *testing.T) {
	st := State{RawProgress: 0.5, Coordinate: geo.Coordinate{Lat: 1, Lon: 1}, HasCoordinate: true}

	// Reference route and duration give the base altitude.
	pose := Camera(st, referenceDistance, referenceDuration)
	if math.Abs(pose.AltitudeMeters-baseAltitudeMeters) > 1e-9 {
		t.Errorf("Reference altitude %f, want %f", pose.AltitudeMeters, baseAltitudeMeters)
	}

	// Twice the distance doubles the altitude.
	pose = Camera(st, 2*referenceDistance, referenceDuration)
	if math.Abs(pose.AltitudeMeters-2*baseAltitudeMeters) > 1e-9 {
		t.Errorf("Double-distance altitude %f, want %f", pose.AltitudeMeters, 2*baseAltitudeMeters)
	}

	// A very short duration is floored at the 0.5 scale.
	short := Camera(st, referenceDistance, 1)
	flooredWant := baseAltitudeMeters / 0.5
	if math.Abs(short.AltitudeMeters-flooredWant) > 1e-9 {
		t.Errorf("Short-duration altitude %f, want %f", short.AltitudeMeters, flooredWant)
	}

	// Clamping: a tiny route cannot descend below the floor.
	low := Camera(st, 1, referenceDuration)
	if low.AltitudeMeters != minAltitudeMeters {
		t.Errorf("Altitude %f, want clamp to %f", low.AltitudeMeters, minAltitudeMeters)
	}
}

func TestCameraBoundaryWidening(t *testing.T) {
	mid := State{RawProgress: 0.5}
	startSt := State{RawProgress: 0}
	endSt := State{RawProgress: 1}

	cruise := Camera(mid, referenceDistance, referenceDuration).AltitudeMeters
	atStart := Camera(startSt, referenceDistance, referenceDuration).AltitudeMeters
	atEnd := Camera(endSt, referenceDistance, referenceDuration).AltitudeMeters

	if math.Abs(atStart-cruise*boundaryWiden) > 1e-9 {
		t.Errorf("Start altitude %f, want %f", atStart, cruise*boundaryWiden)
	}
	if math.Abs(atEnd-cruise*boundaryWiden) > 1e-9 {
		t.Errorf("End altitude %f, want %f", atEnd, cruise*boundaryWiden)
	}

	// Halfway through the edge window the widening has halved.
	halfEdge := Camera(State{RawProgress: boundaryEdge / 2}, referenceDistance, referenceDuration).AltitudeMeters
	want := cruise * (1 + (boundaryWiden-1)/2)
	if math.Abs(halfEdge-want) > 1e-9 {
		t.Errorf("Half-edge altitude %f, want %f", halfEdge, want)
	}
}
