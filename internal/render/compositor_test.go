package render

import (
	"context"
	"image"
	"testing"

	"github.com/ivlev/route2video/internal/background"
	"github.com/ivlev/route2video/internal/config"
	"github.com/ivlev/route2video/internal/geo"
	"github.com/ivlev/route2video/internal/route"
	"github.com/ivlev/route2video/internal/system"
)

func testParams(t *testing.T, w, h int) Params {
	t.Helper()

	region := geo.Region{MinLat: 55.0, MinLon: 37.0, MaxLat: 56.0, MaxLon: 38.0}
	gen := &background.SolidGenerator{}
	bg, project, err := gen.Generate(context.Background(), region, w*2, h*2)
	if err != nil {
		t.Fatalf("Background generation failed: %v", err)
	}

	return Params{
		Background: bg,
		Project:    project,
		View:       View{Scale: 0.5},
		Traveled: []geo.Coordinate{
			{Lat: 55.2, Lon: 37.2},
			{Lat: 55.5, Lon: 37.5},
			{Lat: 55.8, Lon: 37.8},
		},
		Markers: []Marker{
			{Coordinate: geo.Coordinate{Lat: 55.2, Lon: 37.2}, Role: RoleStart},
			{Coordinate: geo.Coordinate{Lat: 55.8, Lon: 37.8}, Role: RoleEnd},
		},
		Vehicle: VehiclePose{
			Coordinate: geo.Coordinate{Lat: 55.5, Lon: 37.5},
			HeadingDeg: 45,
		},
		Label: "Moscow loop",
	}
}

func TestRenderFrameSize(t *testing.T) {
	cfg := config.Default()
	cfg.Aspect = config.AspectSquare

	c, err := New(cfg, DefaultTheme())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	frame, err := c.Render(testParams(t, 1080, 1080))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	defer system.PutImage(frame)

	if frame.Bounds().Dx() != 1080 || frame.Bounds().Dy() != 1080 {
		t.Errorf("Frame size %v, want 1080x1080", frame.Bounds())
	}

	// The background draw must cover the whole buffer: every pixel opaque.
	for _, pt := range []image.Point{{X: 0, Y: 0}, {X: 1079, Y: 1079}, {X: 540, Y: 540}} {
		_, _, _, a := frame.At(pt.X, pt.Y).RGBA()
		if a != 0xffff {
			t.Errorf("Pixel %v not opaque after render", pt)
		}
	}
}

func TestRenderMissingBackground(t *testing.T) {
	c, err := New(config.Default(), DefaultTheme())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := c.Render(Params{}); err == nil {
		t.Error("Expected error when background is missing")
	}
}

func TestRenderDrawsVehicle(t *testing.T) {
	cfg := config.Default()
	cfg.Aspect = config.AspectHorizontal

	c, err := New(cfg, DefaultTheme())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	p := testParams(t, 1280, 720)
	// Center the view on the vehicle so we know where to look.
	bx, by := p.Project(p.Vehicle.Coordinate)
	p.View = View{Scale: 1, OffsetX: 640 - bx, OffsetY: 360 - by}

	frame, err := c.Render(p)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	defer system.PutImage(frame)

	// The accent disc under the glyph must differ from the flat background.
	bg := frame.At(10, 10)
	center := frame.At(640, 360)
	if bg == center {
		t.Error("Vehicle position pixel matches background; nothing was drawn")
	}
}

func TestMarkersFor(t *testing.T) {
	wps := []route.Waypoint{
		route.NewWaypoint("a", 55, 37),
		route.NewWaypoint("b", 56, 38),
		route.NewWaypoint("c", 57, 39),
	}

	markers := MarkersFor(wps)
	if len(markers) != 3 {
		t.Fatalf("Got %d markers, want 3", len(markers))
	}
	if markers[0].Role != RoleStart {
		t.Error("First marker should be the start")
	}
	if markers[1].Role != RoleIntermediate {
		t.Error("Middle marker should be intermediate")
	}
	if markers[2].Role != RoleEnd {
		t.Error("Last marker should be the end")
	}
}

func TestViewApply(t *testing.T) {
	v := View{Scale: 2, OffsetX: 10, OffsetY: -5}
	x, y := v.Apply(3, 4)
	if x != 16 || y != 3 {
		t.Errorf("Apply(3,4) = (%f,%f), want (16,3)", x, y)
	}
}

func TestGlyphCacheReuse(t *testing.T) {
	cache := newGlyphCache()

	a := cache.get(config.VehicleCar, 48)
	b := cache.get(config.VehicleCar, 48)
	if a != b {
		t.Error("Same key should return the cached image")
	}

	other := cache.get(config.VehiclePlane, 48)
	if other == a {
		t.Error("Different vehicles must not share a glyph")
	}
}

func TestGlyphsNonEmpty(t *testing.T) {
	for _, v := range []config.Vehicle{
		config.VehicleCar, config.VehiclePlane, config.VehicleTrain,
		config.VehicleShip, config.VehicleBike, config.VehicleWalk,
	} {
		img := rasterizeGlyph(v, 64)
		opaque := 0
		for i := 3; i < len(img.Pix); i += 4 {
			if img.Pix[i] > 0 {
				opaque++
			}
		}
		if opaque == 0 {
			t.Errorf("Glyph %q rendered no pixels", v)
		}
	}
}
