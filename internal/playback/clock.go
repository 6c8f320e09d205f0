// Package playback maps frame progress to a position, heading and camera
// pose along a measured dense polyline.
package playback

// easeEdge is the fraction of playback spent accelerating at the start and
// decelerating at the end. The middle runs at constant speed.
const easeEdge = 0.02

// Ease maps raw progress in [0,1] to eased progress in [0,1]: quadratic
// ease-in over [0, easeEdge), identity over the middle, quadratic ease-out
// over (1-easeEdge, 1]. The quadratic blend keeps the velocity continuous
// at both breakpoints, so there is no visible speed jump at the 2%/98%
// marks. Ease(0) == 0, Ease(1) == 1, and the function is non-decreasing.
func Ease(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}

	switch {
	case t < easeEdge:
		u := t / easeEdge
		return u * u * easeEdge
	case t > 1-easeEdge:
		u := (t - (1 - easeEdge)) / easeEdge
		return (1 - easeEdge) + (1-(1-u)*(1-u))*easeEdge
	default:
		return t
	}
}
