// Package landmarks defines the facial landmark frame produced by the
// detector and the fixed index sets consumed by the estimators.
//
// Indices follow the 468-point face mesh topology, so any detector that
// emits that layout can feed the pipeline.
package landmarks

import "math"

// Point is a single landmark in normalized image coordinates (0-1).
type Point struct {
	X float64
	Y float64
}

// Frame is one camera frame's worth of detected landmarks plus the
// pixel dimensions needed to project them back into image space.
// Frames are read-only once produced.
type Frame struct {
	Points []Point
	Width  int
	Height int
}

// Landmark index sets for the face mesh topology.
var (
	// PnPIndices are the six anatomical points used for head pose:
	// nose tip, chin, left/right eye outer corners, left/right mouth
	// corners.
	PnPIndices = []int{1, 152, 33, 263, 61, 291}

	// LeftEyeIndices hexagon: corner, upper lids, corner, lower lids.
	LeftEyeIndices = []int{33, 160, 158, 133, 153, 144}

	// RightEyeIndices mirror the left eye ordering.
	RightEyeIndices = []int{263, 387, 385, 362, 380, 373}

	// EmotionKeyIndices are the ten landmarks whose pairwise distances
	// form the emotion classifier's feature vector.
	EmotionKeyIndices = []int{33, 263, 61, 291, 13, 14, 70, 300, 10, 336}
)

// eyeCornerLeft/Right normalize the emotion features by inter-eye span.
const (
	eyeCornerLeft  = 33
	eyeCornerRight = 263
)

// Pixel returns the landmark at index i scaled to pixel coordinates.
func (f *Frame) Pixel(i int) (Point, bool) {
	if i < 0 || i >= len(f.Points) {
		return Point{}, false
	}
	p := f.Points[i]
	return Point{X: p.X * float64(f.Width), Y: p.Y * float64(f.Height)}, true
}

// PixelSet extracts the given indices in pixel coordinates. Returns
// false if any index is out of range.
func (f *Frame) PixelSet(indices []int) ([]Point, bool) {
	out := make([]Point, 0, len(indices))
	for _, i := range indices {
		p, ok := f.Pixel(i)
		if !ok {
			return nil, false
		}
		out = append(out, p)
	}
	return out, true
}

// Distance is the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// EmotionFeatures assembles the normalized pairwise-distance feature
// vector the emotion classifier was trained on: all 45 distances
// between the ten key landmarks, divided by the inter-eye distance.
// The ordering is fixed (upper-triangular, row major) so the vector is
// deterministic for a given frame. Returns false when the landmarks
// are unavailable or the inter-eye distance degenerates to zero.
func (f *Frame) EmotionFeatures() ([]float64, bool) {
	left, okL := f.Pixel(eyeCornerLeft)
	right, okR := f.Pixel(eyeCornerRight)
	if !okL || !okR {
		return nil, false
	}
	eyeDist := Distance(left, right)
	if eyeDist == 0 {
		return nil, false
	}

	points, ok := f.PixelSet(EmotionKeyIndices)
	if !ok {
		return nil, false
	}

	features := make([]float64, 0, len(points)*(len(points)-1)/2)
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			features = append(features, Distance(points[i], points[j])/eyeDist)
		}
	}
	return features, true
}
