// Package vision captures webcam frames and turns them into focus
// records: face detection, dense landmark extraction, head pose, eye
// state, and the rolling focus verdict.
package vision

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/focusguard/focusd/pkg/landmarks"
)

// Detector extracts a dense landmark frame from a camera image.
// Implementations must be safe for use from a single goroutine; the
// producer never calls Detect concurrently.
type Detector interface {
	// Detect returns the landmark frame for the most prominent face,
	// or (nil, nil) when no face is present.
	Detect(img gocv.Mat) (*landmarks.Frame, error)

	// Close releases model resources.
	Close() error
}

// Config holds detector model configuration.
type Config struct {
	FaceModelPath string  // YuNet face detection ONNX
	MeshModelPath string  // face mesh ONNX (468 landmarks)
	MinConfidence float64 // minimum face score
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		FaceModelPath: "models/face_detection_yunet.onnx",
		MeshModelPath: "models/face_mesh.onnx",
		MinConfidence: 0.6,
	}
}

const (
	meshInputSize = 192
	meshPoints    = 468

	// The mesh model expects some margin around the detected box.
	cropExpand = 0.25
)

// MeshDetector chains YuNet face detection with a face-mesh network.
// YuNet localizes the face; the mesh net runs on the expanded crop and
// yields 468 landmarks mapped back into full-frame coordinates.
type MeshDetector struct {
	face gocv.FaceDetectorYN
	mesh gocv.Net
	cfg  Config
	mu   sync.Mutex
}

// NewMeshDetector loads both models.
func NewMeshDetector(cfg Config) (*MeshDetector, error) {
	if _, err := os.Stat(cfg.FaceModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("face model not found: %s", cfg.FaceModelPath)
	}
	if _, err := os.Stat(cfg.MeshModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("mesh model not found: %s", cfg.MeshModelPath)
	}

	face := gocv.NewFaceDetectorYNWithParams(
		cfg.FaceModelPath,
		"",
		image.Pt(320, 320),
		float32(cfg.MinConfidence),
		0.3,
		5000,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	mesh := gocv.ReadNetFromONNX(cfg.MeshModelPath)
	if mesh.Empty() {
		face.Close()
		return nil, fmt.Errorf("load mesh model from %s", cfg.MeshModelPath)
	}
	mesh.SetPreferableBackend(gocv.NetBackendDefault)
	mesh.SetPreferableTarget(gocv.NetTargetCPU)

	return &MeshDetector{face: face, mesh: mesh, cfg: cfg}, nil
}

// Detect implements Detector.
func (d *MeshDetector) Detect(img gocv.Mat) (*landmarks.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	box, ok := d.bestFace(img)
	if !ok {
		return nil, nil
	}

	crop := expandBox(box, img.Cols(), img.Rows())
	region := img.Region(crop)
	defer region.Close()

	blob := gocv.BlobFromImage(region, 1.0/255.0,
		image.Pt(meshInputSize, meshInputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mesh.SetInput(blob, "")
	out := d.mesh.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read mesh output: %w", err)
	}
	if len(data) < meshPoints*3 {
		return nil, fmt.Errorf("mesh output too short: %d floats", len(data))
	}

	// Mesh coordinates are in crop-input pixels; map back to the full
	// frame and normalize.
	imgW := float64(img.Cols())
	imgH := float64(img.Rows())
	cropW := float64(crop.Dx())
	cropH := float64(crop.Dy())

	points := make([]landmarks.Point, meshPoints)
	for i := 0; i < meshPoints; i++ {
		x := float64(data[i*3]) / meshInputSize * cropW
		y := float64(data[i*3+1]) / meshInputSize * cropH
		points[i] = landmarks.Point{
			X: (float64(crop.Min.X) + x) / imgW,
			Y: (float64(crop.Min.Y) + y) / imgH,
		}
	}

	return &landmarks.Frame{Points: points, Width: img.Cols(), Height: img.Rows()}, nil
}

// bestFace runs YuNet and picks the highest-scoring box.
func (d *MeshDetector) bestFace(img gocv.Mat) (image.Rectangle, bool) {
	d.face.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()
	d.face.Detect(img, &faces)

	best := image.Rectangle{}
	bestScore := float32(0)
	for r := 0; r < faces.Rows(); r++ {
		// YuNet rows: x, y, w, h, 10 landmark coords, score.
		score := faces.GetFloatAt(r, 14)
		if score < float32(d.cfg.MinConfidence) || score <= bestScore {
			continue
		}
		x := int(faces.GetFloatAt(r, 0))
		y := int(faces.GetFloatAt(r, 1))
		w := int(faces.GetFloatAt(r, 2))
		h := int(faces.GetFloatAt(r, 3))
		best = image.Rect(x, y, x+w, y+h)
		bestScore = score
	}
	if bestScore == 0 {
		return image.Rectangle{}, false
	}
	return best, true
}

// Close implements Detector.
func (d *MeshDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.face.Close()
	return d.mesh.Close()
}

// expandBox grows the face box by cropExpand on each side, clamped to
// the image bounds.
func expandBox(box image.Rectangle, imgW, imgH int) image.Rectangle {
	dx := int(float64(box.Dx()) * cropExpand)
	dy := int(float64(box.Dy()) * cropExpand)
	out := image.Rect(box.Min.X-dx, box.Min.Y-dy, box.Max.X+dx, box.Max.Y+dy)
	return out.Intersect(image.Rect(0, 0, imgW, imgH))
}
