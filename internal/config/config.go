package config

import (
	"fmt"
)

// FrameRate is fixed for every export.
const FrameRate = 24

// Duration bounds in seconds.
const (
	MinDuration = 3.0
	MaxDuration = 60.0
)

// AspectRatio selects one of the fixed output sizes.
type AspectRatio string

const (
	AspectSquare     AspectRatio = "square"     // 1:1
	AspectVertical   AspectRatio = "vertical"   // 9:16
	AspectHorizontal AspectRatio = "horizontal" // 16:9
)

// Dimensions returns the pixel size for the aspect ratio.
func (a AspectRatio) Dimensions() (width, height int) {
	switch a {
	case AspectSquare:
		return 1080, 1080
	case AspectVertical:
		return 720, 1280
	default:
		return 1280, 720
	}
}

// Vehicle selects the animated glyph.
type Vehicle string

const (
	VehicleCar   Vehicle = "car"
	VehiclePlane Vehicle = "plane"
	VehicleTrain Vehicle = "train"
	VehicleShip  Vehicle = "ship"
	VehicleBike  Vehicle = "bike"
	VehicleWalk  Vehicle = "walk"
)

var vehicles = map[Vehicle]bool{
	VehicleCar: true, VehiclePlane: true, VehicleTrain: true,
	VehicleShip: true, VehicleBike: true, VehicleWalk: true,
}

// Export holds the immutable settings for one export run.
type Export struct {
	Aspect          AspectRatio
	DurationSeconds float64 // 0 selects auto-duration from route length
	Vehicle         Vehicle
	VehicleScale    float64
	OutputPath      string
	Style           string // map style name, or "none" for a flat background
	ShareURL        string // non-empty enables the QR overlay
	FixedCamera     bool   // override: static full-route framing
}

// Default returns the standard export settings.
func Default() Export {
	return Export{
		Aspect:       AspectHorizontal,
		Vehicle:      VehicleCar,
		VehicleScale: 1.0,
		Style:        "default",
	}
}

// Validate checks ranges and enumerations.
func (c *Export) Validate() error {
	switch c.Aspect {
	case AspectSquare, AspectVertical, AspectHorizontal:
	default:
		return fmt.Errorf("invalid aspect ratio %q", c.Aspect)
	}

	if !vehicles[c.Vehicle] {
		return fmt.Errorf("invalid vehicle %q", c.Vehicle)
	}

	if c.VehicleScale < 0.2 || c.VehicleScale > 1.5 {
		return fmt.Errorf("vehicle scale %.2f outside [0.2, 1.5]", c.VehicleScale)
	}

	if c.DurationSeconds != 0 && (c.DurationSeconds < MinDuration || c.DurationSeconds > MaxDuration) {
		return fmt.Errorf("duration %.1fs outside [%.0f, %.0f]", c.DurationSeconds, MinDuration, MaxDuration)
	}

	if c.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}

	return nil
}

// AutoDuration derives a playback duration in seconds from the route's
// total distance in meters. The distance/1000/1000 formula is legacy
// behavior carried over from the original exporter; it is preserved
// as-is and clamped into the valid duration range.
func AutoDuration(distanceMeters float64) float64 {
	d := distanceMeters / 1000 / 1000
	if d < MinDuration {
		return MinDuration
	}
	if d > MaxDuration {
		return MaxDuration
	}
	return d
}
