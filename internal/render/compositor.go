// Package render composites a single export frame: background map, the
// traveled-path trail, waypoint markers, the vehicle glyph and the text
// overlays. Each call produces an independent frame buffer, so it is safe
// to drive from the export worker goroutine.
package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/ivlev/route2video/internal/background"
	"github.com/ivlev/route2video/internal/config"
	"github.com/ivlev/route2video/internal/geo"
	"github.com/ivlev/route2video/internal/route"
	"github.com/ivlev/route2video/internal/system"
)

// Theme holds the drawing colors and stroke sizes.
type Theme struct {
	PathColor    color.RGBA
	PathWidth    float64
	AccentColor  color.RGBA
	StartColor   color.RGBA
	EndColor     color.RGBA
	MarkerRadius float64
	LabelText    color.RGBA
	LabelBG      color.RGBA
}

// DefaultTheme returns the standard accent styling.
func DefaultTheme() Theme {
	return Theme{
		PathColor:    color.RGBA{R: 0x2f, G: 0x95, B: 0xff, A: 0xff},
		PathWidth:    6,
		AccentColor:  color.RGBA{R: 0x2f, G: 0x95, B: 0xff, A: 0xff},
		StartColor:   color.RGBA{R: 0x34, G: 0xc7, B: 0x59, A: 0xff},
		EndColor:     color.RGBA{R: 0xeb, G: 0x44, B: 0x3b, A: 0xff},
		MarkerRadius: 9,
		LabelText:    color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		LabelBG:      color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xa0},
	}
}

// MarkerRole keys the marker color: start, intermediate or end.
type MarkerRole int

const (
	RoleStart MarkerRole = iota
	RoleIntermediate
	RoleEnd
)

// Marker is a waypoint dot drawn on every frame.
type Marker struct {
	Coordinate geo.Coordinate
	Role       MarkerRole
}

// MarkersFor assigns roles to a route's resolved waypoints in order.
func MarkersFor(waypoints []route.Waypoint) []Marker {
	markers := make([]Marker, 0, len(waypoints))
	for i, w := range waypoints {
		role := RoleIntermediate
		switch i {
		case 0:
			role = RoleStart
		case len(waypoints) - 1:
			role = RoleEnd
		}
		markers = append(markers, Marker{Coordinate: w.Coordinate(), Role: role})
	}
	return markers
}

// View is the camera transform from background pixels to screen pixels:
// screen = bg*Scale + Offset.
type View struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// Apply maps a background pixel position to screen space.
func (v View) Apply(x, y float64) (float64, float64) {
	return x*v.Scale + v.OffsetX, y*v.Scale + v.OffsetY
}

// VehiclePose is where and how the vehicle glyph is drawn this frame.
type VehiclePose struct {
	Coordinate geo.Coordinate
	HeadingDeg float64
}

// Params carries everything one frame needs. All fields are read-only for
// the duration of the call.
type Params struct {
	Background image.Image
	Project    background.Projector
	View       View
	Traveled   []geo.Coordinate
	Markers    []Marker
	Vehicle    VehiclePose
	Label      string
}

// Compositor renders frames at a fixed pixel size. It holds no mutable
// per-frame state besides the bounded glyph cache.
type Compositor struct {
	width, height int
	theme         Theme
	vehicle       config.Vehicle
	vehicleScale  float64
	face          font.Face
	glyphs        *glyphCache
	qr            image.Image
}

// New builds a compositor for the export settings. The label font is
// parsed once; the QR overlay is pre-rendered once if a share URL is set.
func New(cfg config.Export, theme Theme) (*Compositor, error) {
	w, h := cfg.Aspect.Dimensions()

	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse label font: %w", err)
	}
	face := truetype.NewFace(f, &truetype.Options{Size: float64(h) / 24})

	c := &Compositor{
		width:        w,
		height:       h,
		theme:        theme,
		vehicle:      cfg.Vehicle,
		vehicleScale: cfg.VehicleScale,
		face:         face,
		glyphs:       newGlyphCache(),
	}

	if cfg.ShareURL != "" {
		qr, err := shareQR(cfg.ShareURL, h/8)
		if err != nil {
			return nil, err
		}
		c.qr = qr
	}

	return c, nil
}

// Size returns the frame dimensions.
func (c *Compositor) Size() (int, int) {
	return c.width, c.height
}

// Render composites one frame. Draw order is load-bearing: background,
// traveled trail, markers, vehicle, overlays — later layers occlude
// earlier ones. The returned buffer comes from the shared image pool;
// the caller releases it with system.PutImage once encoded.
func (c *Compositor) Render(p Params) (*image.RGBA, error) {
	if p.Background == nil || p.Project == nil {
		return nil, fmt.Errorf("frame requires a background and its projector")
	}

	frame := system.GetImage(image.Rect(0, 0, c.width, c.height))
	dc := gg.NewContextForRGBA(frame)

	// 1. Background, through the camera transform. Drawing it across the
	// full frame also clears any recycled buffer contents.
	dc.SetColor(color.Black)
	dc.Clear()
	dc.Push()
	dc.Translate(p.View.OffsetX, p.View.OffsetY)
	dc.Scale(p.View.Scale, p.View.Scale)
	dc.DrawImage(p.Background, 0, 0)
	dc.Pop()

	screen := func(coord geo.Coordinate) (float64, float64) {
		return p.View.Apply(p.Project(coord))
	}

	// 2. Traveled trail.
	if len(p.Traveled) > 1 {
		dc.SetColor(c.theme.PathColor)
		dc.SetLineWidth(c.theme.PathWidth)
		dc.SetLineCapRound()
		dc.SetLineJoinRound()
		x, y := screen(p.Traveled[0])
		dc.MoveTo(x, y)
		for _, pt := range p.Traveled[1:] {
			x, y = screen(pt)
			dc.LineTo(x, y)
		}
		dc.Stroke()
	}

	// 3. Markers, always all of them regardless of reveal progress.
	for _, m := range p.Markers {
		x, y := screen(m.Coordinate)
		dc.SetColor(c.markerColor(m.Role))
		dc.DrawCircle(x, y, c.theme.MarkerRadius)
		dc.Fill()
		dc.SetColor(color.White)
		dc.SetLineWidth(2.5)
		dc.DrawCircle(x, y, c.theme.MarkerRadius)
		dc.Stroke()
	}

	// 4. Vehicle glyph at the current position.
	c.drawVehicle(dc, screen, p.Vehicle)

	// 5. Overlays pinned to fixed screen regions, independent of the camera.
	if p.Label != "" {
		c.drawLabel(dc, p.Label)
	}
	if c.qr != nil {
		c.drawQR(dc)
	}

	return frame, nil
}

func (c *Compositor) markerColor(role MarkerRole) color.RGBA {
	switch role {
	case RoleStart:
		return c.theme.StartColor
	case RoleEnd:
		return c.theme.EndColor
	default:
		return c.theme.AccentColor
	}
}

func (c *Compositor) drawVehicle(dc *gg.Context, screen func(geo.Coordinate) (float64, float64), pose VehiclePose) {
	x, y := screen(pose.Coordinate)

	size := vehicleGlyphSize(c.height, c.vehicleScale)
	radius := float64(size) * 0.62

	// Drop shadow under the accent disc.
	dc.SetRGBA(0, 0, 0, 0.35)
	dc.DrawCircle(x+3, y+4, radius)
	dc.Fill()

	dc.SetColor(c.theme.AccentColor)
	dc.DrawCircle(x, y, radius)
	dc.Fill()
	dc.SetColor(color.White)
	dc.SetLineWidth(2)
	dc.DrawCircle(x, y, radius)
	dc.Stroke()

	glyph := c.glyphs.get(c.vehicle, size)

	// The glyphs are drawn pointing right, so rotate by heading-90 to make
	// heading 90 (east) the neutral orientation. Replacement glyph sets
	// must keep this convention.
	dc.Push()
	dc.RotateAbout(gg.Radians(pose.HeadingDeg-90), x, y)
	dc.DrawImageAnchored(glyph, int(x), int(y), 0.5, 0.5)
	dc.Pop()
}

func vehicleGlyphSize(frameHeight int, scale float64) int {
	size := int(float64(frameHeight) / 16 * scale)
	if size < 12 {
		size = 12
	}
	return size
}

func (c *Compositor) drawLabel(dc *gg.Context, text string) {
	dc.SetFontFace(c.face)
	tw, th := dc.MeasureString(text)

	padX, padY := th*0.8, th*0.5
	bw := tw + padX*2
	bh := th + padY*2
	bx := (float64(c.width) - bw) / 2
	by := float64(c.height) - bh - float64(c.height)/18

	dc.SetColor(c.theme.LabelBG)
	dc.DrawRoundedRectangle(bx, by, bw, bh, bh/3)
	dc.Fill()

	dc.SetColor(c.theme.LabelText)
	dc.DrawStringAnchored(text, float64(c.width)/2, by+bh/2, 0.5, 0.35)
}

func (c *Compositor) drawQR(dc *gg.Context) {
	b := c.qr.Bounds()
	margin := c.height / 36
	x := c.width - b.Dx() - margin
	y := c.height - b.Dy() - margin
	dc.DrawImage(c.qr, x, y)
}
