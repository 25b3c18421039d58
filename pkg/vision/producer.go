package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/focusguard/focusd/internal/log"
	"github.com/focusguard/focusd/pkg/classify"
	"github.com/focusguard/focusd/pkg/eye"
	"github.com/focusguard/focusd/pkg/focus"
	"github.com/focusguard/focusd/pkg/landmarks"
	"github.com/focusguard/focusd/pkg/pose"
	"github.com/focusguard/focusd/pkg/record"
)

// ErrCameraUnavailable means no configured device could be opened.
var ErrCameraUnavailable = errors.New("camera unavailable")

// CaptureConfig configures the webcam loop.
type CaptureConfig struct {
	// Devices are tried in order until one opens.
	Devices []int

	// FlipHorizontal mirrors the frame, matching how users expect to
	// see themselves.
	FlipHorizontal bool

	// MaxReadFailures is the consecutive-failure count after which the
	// camera is declared dead.
	MaxReadFailures int
}

// DefaultCaptureConfig returns production defaults.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		Devices:         []int{0, 1},
		FlipHorizontal:  true,
		MaxReadFailures: 30,
	}
}

// Producer runs the webcam capture loop: one focus record per frame.
type Producer struct {
	cfg      CaptureConfig
	detector Detector
	machine  *focus.Machine
	emotion  classify.EmotionClassifier // optional
	emitter  record.Emitter
	logger   *slog.Logger
}

// NewProducer assembles a capture loop. The emotion classifier may be
// nil, in which case focus records carry no emotion label.
func NewProducer(cfg CaptureConfig, det Detector, machine *focus.Machine, emotion classify.EmotionClassifier, emitter record.Emitter) *Producer {
	if cfg.MaxReadFailures <= 0 {
		cfg.MaxReadFailures = DefaultCaptureConfig().MaxReadFailures
	}
	if len(cfg.Devices) == 0 {
		cfg.Devices = DefaultCaptureConfig().Devices
	}
	return &Producer{
		cfg:      cfg,
		detector: det,
		machine:  machine,
		emotion:  emotion,
		emitter:  emitter,
		logger:   log.L().With("component", "vision"),
	}
}

// Run captures frames until the context is canceled or the camera
// fails for good. A fatal failure emits exactly one error record
// before returning.
func (p *Producer) Run(ctx context.Context) error {
	cap, device, err := p.openCamera()
	if err != nil {
		p.fatal(err)
		return err
	}
	defer cap.Close()

	p.logger.Info("camera opened", "device", device)
	p.emitter.Ready()

	img := gocv.NewMat()
	defer img.Close()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if ok := cap.Read(&img); !ok || img.Empty() {
			failures++
			if failures >= p.cfg.MaxReadFailures {
				err := fmt.Errorf("camera read failed %d times in a row", failures)
				p.fatal(err)
				return err
			}
			time.Sleep(50 * time.Millisecond)
			continue
		}
		failures = 0

		if p.cfg.FlipHorizontal {
			gocv.Flip(img, &img, 1)
		}

		p.processFrame(ctx, img)
	}
}

// processFrame turns one camera image into a focus record.
func (p *Producer) processFrame(ctx context.Context, img gocv.Mat) {
	frame, err := p.detector.Detect(img)
	if err != nil {
		p.logger.Warn("landmark detection failed", "error", err)
		frame = nil
	}

	var verdict focus.Verdict
	var emotion string
	if frame == nil {
		verdict = p.machine.NoFace()
	} else {
		verdict = p.machine.Evaluate(frameInput(frame))
		emotion = p.classifyEmotion(ctx, frame)
	}

	p.emitter.Emit(record.FocusRecord{
		Timestamp:      time.Now(),
		Status:         verdict.Status,
		Reason:         verdict.Reason,
		DistractionPct: verdict.DistractionPct,
		Emotion:        emotion,
	})
}

// frameInput derives the machine's per-frame geometry from landmarks.
func frameInput(frame *landmarks.Frame) focus.Input {
	var in focus.Input
	if pts, ok := frame.PixelSet(landmarks.PnPIndices); ok {
		in.Pose, in.PoseOK = pose.Estimate(pts, frame.Width, frame.Height)
	}
	in.EAR, in.EAROK = eye.Average(frame)
	return in
}

func (p *Producer) classifyEmotion(ctx context.Context, frame *landmarks.Frame) string {
	if p.emotion == nil {
		return ""
	}
	features, ok := frame.EmotionFeatures()
	if !ok {
		return ""
	}
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	label, err := p.emotion.PredictEmotion(cctx, features)
	if err != nil {
		p.logger.Debug("emotion classification failed", "error", err)
		return ""
	}
	return label
}

// openCamera tries each configured device index in order.
func (p *Producer) openCamera() (*gocv.VideoCapture, int, error) {
	for _, dev := range p.cfg.Devices {
		cap, err := gocv.OpenVideoCapture(dev)
		if err != nil {
			p.logger.Warn("camera open failed", "device", dev, "error", err)
			continue
		}
		if !cap.IsOpened() {
			cap.Close()
			p.logger.Warn("camera not opened", "device", dev)
			continue
		}
		return cap, dev, nil
	}
	return nil, 0, fmt.Errorf("%w: tried devices %v", ErrCameraUnavailable, p.cfg.Devices)
}

func (p *Producer) fatal(err error) {
	p.logger.Error("vision producer stopping", "error", err)
	p.emitter.Emit(record.ErrorRecord{
		Timestamp: time.Now(),
		Origin:    record.SourceFocus,
		Message:   err.Error(),
	})
}
