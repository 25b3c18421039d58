// Package eye computes the eye aspect ratio, a landmark-geometry proxy
// for how open an eye is.
package eye

import "github.com/focusguard/focusd/pkg/landmarks"

// DefaultOpenRatio is returned when the eye's horizontal span
// degenerates to zero; it reads as a comfortably open eye instead of a
// division by zero.
const DefaultOpenRatio = 0.3

// hexagonPoints is the fixed per-eye landmark count: corner, two upper
// lids, corner, two lower lids.
const hexagonPoints = 6

// AspectRatio computes the openness ratio for a single eye hexagon:
// the two lid gaps averaged over twice the corner-to-corner span.
// Returns false when the point set has the wrong shape.
func AspectRatio(points []landmarks.Point) (float64, bool) {
	if len(points) != hexagonPoints {
		return 0, false
	}
	a := landmarks.Distance(points[1], points[5])
	b := landmarks.Distance(points[2], points[4])
	c := landmarks.Distance(points[0], points[3])
	if c == 0 {
		return DefaultOpenRatio, true
	}
	return (a + b) / (2 * c), true
}

// Average computes the mean aspect ratio of both eyes from a landmark
// frame. The result is absent when either eye's points are
// unavailable; downstream treats that as "eye landmarks unclear".
func Average(frame *landmarks.Frame) (float64, bool) {
	left, okL := frame.PixelSet(landmarks.LeftEyeIndices)
	right, okR := frame.PixelSet(landmarks.RightEyeIndices)
	if !okL || !okR {
		return 0, false
	}
	earL, okL := AspectRatio(left)
	earR, okR := AspectRatio(right)
	if !okL || !okR {
		return 0, false
	}
	return (earL + earR) / 2, true
}
