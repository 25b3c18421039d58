package focus

import (
	"math"
	"testing"

	"github.com/focusguard/focusd/pkg/pose"
)

func neutral(ear float64) Input {
	return Input{Pose: pose.Pose{}, PoseOK: true, EAR: ear, EAROK: true}
}

func TestEvaluateFocusedBaseline(t *testing.T) {
	m := NewMachine(DefaultThresholds())

	v := m.Evaluate(neutral(0.3))
	if v.Status != StatusFocused {
		t.Fatalf("status = %q, want %q", v.Status, StatusFocused)
	}
	if v.Reason != "" {
		t.Errorf("reason = %q, want empty", v.Reason)
	}
	if v.DistractionPct != 0 {
		t.Errorf("pct = %.1f, want 0", v.DistractionPct)
	}
}

func TestEyeClosureDebounce(t *testing.T) {
	th := DefaultThresholds()
	m := NewMachine(th)

	// Below the threshold but not yet for ConsecFrames frames: the
	// blink must not register.
	for i := 0; i < th.ConsecFrames-1; i++ {
		v := m.Evaluate(neutral(0.1))
		if v.Status != StatusFocused {
			t.Fatalf("frame %d: status = %q, want focused during debounce", i, v.Status)
		}
	}

	v := m.Evaluate(neutral(0.1))
	if v.Status != StatusDistracted {
		t.Fatalf("status = %q, want distracted after %d closed frames", v.Status, th.ConsecFrames)
	}
	if v.Reason != ReasonEyesClosed {
		t.Errorf("reason = %q, want %q", v.Reason, ReasonEyesClosed)
	}

	// One open frame resets the streak.
	m.Evaluate(neutral(0.3))
	if m.ClosureStreak() != 0 {
		t.Errorf("streak = %d after open frame, want 0", m.ClosureStreak())
	}
}

func TestExtremePoseOverridesOpenEyes(t *testing.T) {
	m := NewMachine(DefaultThresholds())

	in := Input{
		Pose:   pose.Pose{Pitch: 80},
		PoseOK: true,
		EAR:    0.35,
		EAROK:  true,
	}
	v := m.Evaluate(in)
	if v.Status != StatusDistracted {
		t.Fatalf("status = %q, want distracted at extreme pitch", v.Status)
	}
	if v.Reason != ReasonExtremePose {
		t.Errorf("reason = %q, want %q", v.Reason, ReasonExtremePose)
	}
}

func TestExtremePoseWithClosedEyes(t *testing.T) {
	th := DefaultThresholds()
	m := NewMachine(th)

	in := Input{Pose: pose.Pose{Yaw: 165}, PoseOK: true, EAR: 0.05, EAROK: true}
	var v Verdict
	for i := 0; i < th.ConsecFrames; i++ {
		v = m.Evaluate(in)
	}
	if v.Reason != "Extreme Pose & Eyes Closed" {
		t.Errorf("reason = %q, want joined extreme+closed", v.Reason)
	}
}

func TestProblematicPoseSkippedWhenEyesConfidentlyOpen(t *testing.T) {
	m := NewMachine(DefaultThresholds())

	// Yaw past the normal band, but the eyes are clearly open even by
	// the tilted threshold.
	in := Input{Pose: pose.Pose{Yaw: 35}, PoseOK: true, EAR: 0.30, EAROK: true}
	v := m.Evaluate(in)
	if v.Status != StatusFocused {
		t.Errorf("status = %q, want focused when eyes confirm attention", v.Status)
	}
}

func TestProblematicPoseWithUnclearEyes(t *testing.T) {
	m := NewMachine(DefaultThresholds())

	in := Input{Pose: pose.Pose{Yaw: 35}, PoseOK: true, EAROK: false}
	v := m.Evaluate(in)
	if v.Status != StatusDistracted {
		t.Fatalf("status = %q, want distracted", v.Status)
	}
	if v.Reason != "Eye Landmarks Unclear & Yaw" {
		t.Errorf("reason = %q, want unclear+yaw", v.Reason)
	}
}

func TestProblematicPoseWithSlightlyClosedEyes(t *testing.T) {
	m := NewMachine(DefaultThresholds())

	// EAR between the normal and tilted thresholds: open for a neutral
	// head, suspicious for a turned one.
	in := Input{Pose: pose.Pose{Yaw: 35, Pitch: 40}, PoseOK: true, EAR: 0.20, EAROK: true}
	v := m.Evaluate(in)
	if v.Status != StatusDistracted {
		t.Fatalf("status = %q, want distracted", v.Status)
	}
	if v.Reason != "Eyes Slightly Closed & Pitch & Yaw" {
		t.Errorf("reason = %q", v.Reason)
	}
}

func TestPoseUndeterminedWithOpenEyes(t *testing.T) {
	m := NewMachine(DefaultThresholds())

	in := Input{PoseOK: false, EAR: 0.30, EAROK: true}
	if v := m.Evaluate(in); v.Status != StatusFocused {
		t.Errorf("status = %q, want focused when the fit fails but eyes are open", v.Status)
	}
}

func TestEyesUnavailableAlone(t *testing.T) {
	m := NewMachine(DefaultThresholds())

	in := Input{Pose: pose.Pose{}, PoseOK: true, EAROK: false}
	v := m.Evaluate(in)
	if v.Status != StatusDistracted {
		t.Fatalf("status = %q, want distracted", v.Status)
	}
	if v.Reason != ReasonEyesUnclear {
		t.Errorf("reason = %q, want %q", v.Reason, ReasonEyesUnclear)
	}
}

func TestRollingDistractionWindow(t *testing.T) {
	th := DefaultThresholds()
	th.HistorySize = 4
	m := NewMachine(th)

	m.Evaluate(neutral(0.3)) // 0
	m.Evaluate(neutral(0.3)) // 0
	m.NoFace()               // 1
	v := m.NoFace()          // 1
	if math.Abs(v.DistractionPct-50) > 1e-9 {
		t.Fatalf("pct = %.1f, want 50", v.DistractionPct)
	}

	// Window is full: the oldest focused frame is evicted.
	v = m.NoFace()
	if math.Abs(v.DistractionPct-75) > 1e-9 {
		t.Errorf("pct = %.1f, want 75 after eviction", v.DistractionPct)
	}
	if m.HistoryLen() != 4 {
		t.Errorf("history length = %d, want 4", m.HistoryLen())
	}
}

func TestNoFaceKeepsClosureStreak(t *testing.T) {
	th := DefaultThresholds()
	m := NewMachine(th)

	m.Evaluate(neutral(0.1))
	streak := m.ClosureStreak()
	if streak != 1 {
		t.Fatalf("streak = %d, want 1", streak)
	}

	v := m.NoFace()
	if v.Status != StatusNoFace || v.Reason != ReasonNoFace {
		t.Errorf("verdict = %+v", v)
	}
	if m.ClosureStreak() != streak {
		t.Errorf("streak = %d after NoFace, want untouched %d", m.ClosureStreak(), streak)
	}
}

func TestReset(t *testing.T) {
	m := NewMachine(DefaultThresholds())
	m.Evaluate(neutral(0.1))
	m.NoFace()

	m.Reset()
	if m.HistoryLen() != 0 || m.ClosureStreak() != 0 {
		t.Errorf("after reset: history %d, streak %d", m.HistoryLen(), m.ClosureStreak())
	}
}

func TestEvaluateDeterminism(t *testing.T) {
	run := func() []Verdict {
		m := NewMachine(DefaultThresholds())
		inputs := []Input{
			neutral(0.3),
			{Pose: pose.Pose{Yaw: 35}, PoseOK: true, EAROK: false},
			neutral(0.1),
			neutral(0.1),
			neutral(0.1),
			{Pose: pose.Pose{Pitch: 80}, PoseOK: true, EAR: 0.3, EAROK: true},
		}
		out := make([]Verdict, 0, len(inputs))
		for _, in := range inputs {
			out = append(out, m.Evaluate(in))
		}
		return out
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("frame %d diverged: %+v vs %+v", i, a[i], b[i])
		}
	}
}
