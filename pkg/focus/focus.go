// Package focus classifies per-frame attention from head pose and eye
// openness with temporal smoothing.
//
// The machine is a pure function of the current frame's geometry and
// its own counters; it performs no I/O, so one instance is owned by
// exactly one producer loop.
package focus

import (
	"math"
	"sort"
	"strings"

	"github.com/focusguard/focusd/pkg/pose"
)

// Status is the per-frame attention verdict.
type Status string

const (
	StatusFocused    Status = "Focused"
	StatusDistracted Status = "Distracted"
	StatusNoFace     Status = "No Face"
)

// Reason tags. Verdict reasons are a sorted " & "-joined set of these.
const (
	ReasonExtremePose        = "Extreme Pose"
	ReasonEyesClosed         = "Eyes Closed"
	ReasonEyesSlightlyClosed = "Eyes Slightly Closed"
	ReasonYaw                = "Yaw"
	ReasonPitch              = "Pitch"
	ReasonPoseUndetermined   = "Pose Undetermined"
	ReasonEyesUnclear        = "Eye Landmarks Unclear"
	ReasonNoFace             = "Face not detected"
)

// Thresholds are the tunable decision constants. They are empirically
// calibrated defaults, carried in configuration rather than code.
type Thresholds struct {
	// Yaw/Pitch bound the "normally problematic" pose band in degrees.
	Yaw   float64
	Pitch float64

	// ExtremeYaw/ExtremePitch assert distraction unconditionally,
	// overriding eye state.
	ExtremeYaw   float64
	ExtremePitch float64

	// EARNormal applies with a neutral head, EARTilted when the pose
	// is problematic (a turned head distorts the measured ratio).
	EARNormal float64
	EARTilted float64

	// ConsecFrames debounces blinks: the eye must read closed for this
	// many consecutive frames before it counts.
	ConsecFrames int

	// HistorySize bounds the rolling distraction window.
	HistorySize int
}

// DefaultThresholds returns the calibrated defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Yaw:          30,
		Pitch:        30,
		ExtremeYaw:   160,
		ExtremePitch: 70,
		EARNormal:    0.18,
		EARTilted:    0.26,
		ConsecFrames: 3,
		HistorySize:  30,
	}
}

// Input is one frame's geometry. PoseOK false means the pose fit
// failed; EAROK false means eye landmarks were unusable.
type Input struct {
	Pose   pose.Pose
	PoseOK bool
	EAR    float64
	EAROK  bool
}

// Verdict is the machine's output for one frame.
type Verdict struct {
	Status Status
	// Reason is the sorted set of triggered tags joined with " & ",
	// empty when focused.
	Reason string
	// DistractionPct is the rolling share of recent non-focused
	// frames, 0-100.
	DistractionPct float64
}

// Machine holds the rolling distraction history and the eye-closure
// debounce counter for a single capture session.
type Machine struct {
	th Thresholds

	// history holds 1 for distracted/no-face frames, 0 otherwise,
	// oldest evicted at capacity.
	history []int

	closureStreak int
}

// NewMachine creates a machine with the given thresholds.
func NewMachine(th Thresholds) *Machine {
	if th.HistorySize <= 0 {
		th.HistorySize = DefaultThresholds().HistorySize
	}
	if th.ConsecFrames <= 0 {
		th.ConsecFrames = DefaultThresholds().ConsecFrames
	}
	return &Machine{th: th, history: make([]int, 0, th.HistorySize)}
}

// Reset clears the history and the closure counter.
func (m *Machine) Reset() {
	m.history = m.history[:0]
	m.closureStreak = 0
}

// Evaluate classifies one frame with detected landmarks.
func (m *Machine) Evaluate(in Input) Verdict {
	problematic := false
	var poseReasons []string
	if in.PoseOK {
		if math.Abs(in.Pose.Yaw) > m.th.Yaw {
			problematic = true
			poseReasons = append(poseReasons, ReasonYaw)
		}
		if math.Abs(in.Pose.Pitch) > m.th.Pitch {
			problematic = true
			poseReasons = append(poseReasons, ReasonPitch)
		}
	} else {
		problematic = true
		poseReasons = append(poseReasons, ReasonPoseUndetermined)
	}

	// A turned head compresses the apparent eye opening, so the
	// problematic band gets the looser threshold.
	earThresh := m.th.EARNormal
	if problematic {
		earThresh = m.th.EARTilted
	}

	closed := false
	confidentlyOpen := false
	if in.EAROK {
		if in.EAR < earThresh {
			m.closureStreak++
			if m.closureStreak >= m.th.ConsecFrames {
				closed = true
			}
		} else {
			m.closureStreak = 0
			confidentlyOpen = true
		}
	} else {
		m.closureStreak = 0
	}

	extreme := in.PoseOK &&
		(math.Abs(in.Pose.Yaw) > m.th.ExtremeYaw || math.Abs(in.Pose.Pitch) > m.th.ExtremePitch)

	status := StatusFocused
	var reasons []string
	switch {
	case extreme:
		status = StatusDistracted
		reasons = append(reasons, ReasonExtremePose)
		if closed {
			reasons = append(reasons, ReasonEyesClosed)
		}
	case closed:
		status = StatusDistracted
		reasons = append(reasons, ReasonEyesClosed)
	case problematic:
		if !confidentlyOpen {
			status = StatusDistracted
			reasons = append(reasons, poseReasons...)
			if !in.EAROK {
				reasons = append(reasons, ReasonEyesUnclear)
			} else if in.EAR < earThresh {
				reasons = append(reasons, ReasonEyesSlightlyClosed)
			}
		}
	case !in.EAROK:
		status = StatusDistracted
		reasons = append(reasons, ReasonEyesUnclear)
	}

	return Verdict{
		Status:         status,
		Reason:         joinReasons(reasons),
		DistractionPct: m.record(status),
	}
}

// NoFace records a frame with no detectable face. It always counts as
// distracting in the rolling history.
func (m *Machine) NoFace() Verdict {
	return Verdict{
		Status:         StatusNoFace,
		Reason:         ReasonNoFace,
		DistractionPct: m.record(StatusNoFace),
	}
}

// ClosureStreak exposes the debounce counter for inspection.
func (m *Machine) ClosureStreak() int {
	return m.closureStreak
}

// HistoryLen exposes the current rolling window length.
func (m *Machine) HistoryLen() int {
	return len(m.history)
}

// record appends the frame to the rolling history and returns the
// updated distraction percentage.
func (m *Machine) record(status Status) float64 {
	score := 0
	if status != StatusFocused {
		score = 1
	}
	if len(m.history) >= m.th.HistorySize {
		m.history = m.history[1:]
	}
	m.history = append(m.history, score)

	sum := 0
	for _, v := range m.history {
		sum += v
	}
	return float64(sum) / float64(len(m.history)) * 100
}

// joinReasons de-duplicates the tag set and renders it
// deterministically.
//
// Subsumption rules: "Extreme Pose" absorbs the bare axis tags,
// "Eyes Closed" absorbs "Eyes Slightly Closed", and "Eye Landmarks
// Unclear" is dropped once a concrete eye verdict exists without any
// accompanying pose tag.
func joinReasons(reasons []string) string {
	if len(reasons) == 0 {
		return ""
	}

	set := make(map[string]bool, len(reasons))
	for _, r := range reasons {
		set[r] = true
	}

	if set[ReasonExtremePose] {
		delete(set, ReasonYaw)
		delete(set, ReasonPitch)
	}
	if set[ReasonEyesClosed] {
		delete(set, ReasonEyesSlightlyClosed)
	}
	hasEyeVerdict := set[ReasonEyesClosed] || set[ReasonEyesSlightlyClosed]
	hasPoseTag := set[ReasonYaw] || set[ReasonPitch] || set[ReasonPoseUndetermined] || set[ReasonExtremePose]
	if hasEyeVerdict && !hasPoseTag {
		delete(set, ReasonEyesUnclear)
	}

	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Strings(out)
	return strings.Join(out, " & ")
}
