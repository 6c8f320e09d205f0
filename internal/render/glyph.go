package render

import (
	"image"
	"image/color"
	"sync"

	"github.com/fogleman/gg"

	"github.com/ivlev/route2video/internal/config"
)

// glyphCache holds rasterized vehicle glyphs keyed by (vehicle, size).
// Exports use a single vehicle at a single size, so the cache stays tiny;
// the bound protects against pathological callers.
type glyphCache struct {
	mu      sync.Mutex
	entries map[glyphKey]*image.RGBA
}

type glyphKey struct {
	vehicle config.Vehicle
	size    int
}

const glyphCacheLimit = 32

func newGlyphCache() *glyphCache {
	return &glyphCache{entries: make(map[glyphKey]*image.RGBA)}
}

func (c *glyphCache) get(v config.Vehicle, size int) *image.RGBA {
	key := glyphKey{vehicle: v, size: size}

	c.mu.Lock()
	defer c.mu.Unlock()

	if img, ok := c.entries[key]; ok {
		return img
	}

	img := rasterizeGlyph(v, size)
	if len(c.entries) >= glyphCacheLimit {
		c.entries = make(map[glyphKey]*image.RGBA)
	}
	c.entries[key] = img
	return img
}

// rasterizeGlyph draws the vehicle as simple white vector shapes on a
// transparent square. All glyphs point right (+x); the compositor rotates
// them by heading-90 at draw time.
func rasterizeGlyph(v config.Vehicle, size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	dc := gg.NewContextForRGBA(img)
	dc.SetColor(color.White)

	s := float64(size)
	lw := s / 14
	if lw < 1 {
		lw = 1
	}
	dc.SetLineWidth(lw)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()

	switch v {
	case config.VehiclePlane:
		drawPlane(dc, s)
	case config.VehicleTrain:
		drawTrain(dc, s)
	case config.VehicleShip:
		drawShip(dc, s)
	case config.VehicleBike:
		drawBike(dc, s)
	case config.VehicleWalk:
		drawWalk(dc, s)
	default:
		drawCar(dc, s)
	}

	return img
}

func drawCar(dc *gg.Context, s float64) {
	// Body with a cabin bump, nose to the right.
	dc.DrawRoundedRectangle(s*0.12, s*0.40, s*0.76, s*0.26, s*0.08)
	dc.Fill()
	dc.DrawRoundedRectangle(s*0.30, s*0.26, s*0.36, s*0.18, s*0.06)
	dc.Fill()

	dc.DrawCircle(s*0.30, s*0.68, s*0.09)
	dc.Fill()
	dc.DrawCircle(s*0.70, s*0.68, s*0.09)
	dc.Fill()
}

func drawPlane(dc *gg.Context, s float64) {
	// Fuselage.
	dc.DrawLine(s*0.10, s*0.50, s*0.90, s*0.50)
	dc.Stroke()
	// Nose.
	dc.MoveTo(s*0.90, s*0.50)
	dc.LineTo(s*0.78, s*0.44)
	dc.LineTo(s*0.78, s*0.56)
	dc.ClosePath()
	dc.Fill()
	// Swept wings.
	dc.MoveTo(s*0.52, s*0.50)
	dc.LineTo(s*0.30, s*0.18)
	dc.LineTo(s*0.42, s*0.50)
	dc.ClosePath()
	dc.Fill()
	dc.MoveTo(s*0.52, s*0.50)
	dc.LineTo(s*0.30, s*0.82)
	dc.LineTo(s*0.42, s*0.50)
	dc.ClosePath()
	dc.Fill()
	// Tail.
	dc.DrawLine(s*0.14, s*0.38, s*0.20, s*0.50)
	dc.Stroke()
	dc.DrawLine(s*0.14, s*0.62, s*0.20, s*0.50)
	dc.Stroke()
}

func drawTrain(dc *gg.Context, s float64) {
	dc.DrawRoundedRectangle(s*0.14, s*0.30, s*0.72, s*0.36, s*0.10)
	dc.Fill()

	dc.SetRGBA(0, 0, 0, 0.45)
	for _, x := range []float64{0.28, 0.48, 0.68} {
		dc.DrawRectangle(s*x, s*0.38, s*0.10, s*0.12)
	}
	dc.Fill()

	dc.SetColor(color.White)
	dc.DrawCircle(s*0.32, s*0.72, s*0.06)
	dc.Fill()
	dc.DrawCircle(s*0.50, s*0.72, s*0.06)
	dc.Fill()
	dc.DrawCircle(s*0.68, s*0.72, s*0.06)
	dc.Fill()
}

func drawShip(dc *gg.Context, s float64) {
	// Hull, bow to the right.
	dc.MoveTo(s*0.10, s*0.52)
	dc.LineTo(s*0.90, s*0.52)
	dc.LineTo(s*0.74, s*0.74)
	dc.LineTo(s*0.24, s*0.74)
	dc.ClosePath()
	dc.Fill()
	// Superstructure.
	dc.DrawRectangle(s*0.36, s*0.34, s*0.28, s*0.14)
	dc.Fill()
	// Funnel.
	dc.DrawRectangle(s*0.46, s*0.22, s*0.08, s*0.10)
	dc.Fill()
}

func drawBike(dc *gg.Context, s float64) {
	dc.DrawCircle(s*0.28, s*0.64, s*0.16)
	dc.Stroke()
	dc.DrawCircle(s*0.72, s*0.64, s*0.16)
	dc.Stroke()
	// Frame.
	dc.DrawLine(s*0.28, s*0.64, s*0.48, s*0.38)
	dc.Stroke()
	dc.DrawLine(s*0.48, s*0.38, s*0.72, s*0.64)
	dc.Stroke()
	dc.DrawLine(s*0.28, s*0.64, s*0.56, s*0.64)
	dc.Stroke()
	dc.DrawLine(s*0.56, s*0.64, s*0.48, s*0.38)
	dc.Stroke()
	// Handlebar.
	dc.DrawLine(s*0.72, s*0.64, s*0.66, s*0.34)
	dc.Stroke()
}

func drawWalk(dc *gg.Context, s float64) {
	// Head.
	dc.DrawCircle(s*0.50, s*0.20, s*0.09)
	dc.Fill()
	// Torso leaning forward.
	dc.DrawLine(s*0.48, s*0.30, s*0.54, s*0.56)
	dc.Stroke()
	// Arms mid-swing.
	dc.DrawLine(s*0.50, s*0.38, s*0.66, s*0.48)
	dc.Stroke()
	dc.DrawLine(s*0.50, s*0.38, s*0.36, s*0.50)
	dc.Stroke()
	// Legs mid-stride.
	dc.DrawLine(s*0.54, s*0.56, s*0.70, s*0.82)
	dc.Stroke()
	dc.DrawLine(s*0.54, s*0.56, s*0.36, s*0.80)
	dc.Stroke()
}
