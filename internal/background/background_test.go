package background

import (
	"context"
	"math"
	"testing"

	"github.com/ivlev/route2video/internal/geo"
)

func TestMercator(t *testing.T) {
	// The null island sits at the exact center of the tile grid.
	x, y := mercator(geo.Coordinate{Lat: 0, Lon: 0}, 1)
	if math.Abs(x-1) > 1e-9 || math.Abs(y-1) > 1e-9 {
		t.Errorf("(0,0) at zoom 1: got (%f, %f), want (1, 1)", x, y)
	}

	// Longitude maps linearly.
	x, _ = mercator(geo.Coordinate{Lat: 0, Lon: 180}, 0)
	if math.Abs(x-1) > 1e-9 {
		t.Errorf("Lon 180 at zoom 0: got x=%f, want 1", x)
	}

	// Moving north decreases y.
	_, yNorth := mercator(geo.Coordinate{Lat: 50, Lon: 0}, 5)
	_, ySouth := mercator(geo.Coordinate{Lat: -50, Lon: 0}, 5)
	if yNorth >= ySouth {
		t.Errorf("North (%f) should be above south (%f)", yNorth, ySouth)
	}
}

func TestFitZoomShrinksForLargeRegions(t *testing.T) {
	small := geo.Region{MinLat: 52.50, MaxLat: 52.54, MinLon: 13.38, MaxLon: 13.43}
	large := geo.Region{MinLat: 40, MaxLat: 55, MinLon: 0, MaxLon: 20}

	zs := fitZoom(small, 1280, 720)
	zl := fitZoom(large, 1280, 720)

	if zl >= zs {
		t.Errorf("Larger region should get a lower zoom: small=%d large=%d", zs, zl)
	}
	if zs > maxZoom || zl < 1 {
		t.Errorf("Zoom out of range: small=%d large=%d", zs, zl)
	}
}

func TestSolidGenerator(t *testing.T) {
	region := geo.Region{MinLat: 0, MaxLat: 10, MinLon: 0, MaxLon: 10}

	g := &SolidGenerator{}
	img, project, err := g.Generate(context.Background(), region, 400, 400)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 400 {
		t.Errorf("Unexpected image size: %v", img.Bounds())
	}

	// Region corners land inside the image, with north up.
	x0, y0 := project(geo.Coordinate{Lat: 10, Lon: 0}) // north-west
	x1, y1 := project(geo.Coordinate{Lat: 0, Lon: 10}) // south-east

	if x0 < 0 || y0 < 0 || x1 > 400 || y1 > 400 {
		t.Errorf("Corners project outside the image: (%f,%f) (%f,%f)", x0, y0, x1, y1)
	}
	if !(x0 < x1 && y0 < y1) {
		t.Errorf("Projection orientation wrong: NW (%f,%f), SE (%f,%f)", x0, y0, x1, y1)
	}

	// Center of the region projects to the center of the image.
	cx, cy := project(region.Center())
	if math.Abs(cx-200) > 1e-6 || math.Abs(cy-200) > 1e-6 {
		t.Errorf("Center projects to (%f, %f), want (200, 200)", cx, cy)
	}
}
