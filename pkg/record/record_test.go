package record

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/focusguard/focusd/pkg/focus"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	tests := []struct {
		name string
		rec  Record
	}{
		{"focus", FocusRecord{
			Timestamp:      ts,
			Status:         focus.StatusDistracted,
			Reason:         "Eyes Closed",
			DistractionPct: 42.5,
			Emotion:        "neutral",
		}},
		{"context", ContextRecord{
			Timestamp:   ts,
			AppName:     "firefox",
			WindowTitle: "Issue #42 - GitHub",
			URL:         "github.com",
			OCRText:     "some on-screen text",
		}},
		{"error", ErrorRecord{
			Timestamp: ts,
			Origin:    SourceFocus,
			Message:   "camera gone",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Wrap(tt.rec)
			if err != nil {
				t.Fatalf("Wrap: %v", err)
			}

			line, err := json.Marshal(env)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			parsed, err := ParseEnvelope(line)
			if err != nil {
				t.Fatalf("ParseEnvelope: %v", err)
			}

			got, err := parsed.Unwrap()
			if err != nil {
				t.Fatalf("Unwrap: %v", err)
			}
			if got != tt.rec {
				t.Errorf("round trip changed record:\n got %+v\nwant %+v", got, tt.rec)
			}
		})
	}
}

func TestReadyEnvelope(t *testing.T) {
	env := ReadyEnvelope()
	if env.Type != TypeReady {
		t.Fatalf("type = %q", env.Type)
	}

	rec, err := env.Unwrap()
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if rec != nil {
		t.Errorf("ready envelope carried a record: %+v", rec)
	}
}

func TestParseEnvelopeGarbage(t *testing.T) {
	if _, err := ParseEnvelope([]byte("not json")); err == nil {
		t.Error("parsed garbage")
	}
}

func TestUnwrapUnknownType(t *testing.T) {
	env := &Envelope{Type: "telemetry"}
	if _, err := env.Unwrap(); err == nil {
		t.Error("unwrapped unknown type")
	}
}

func TestStreamEmitterFrames(t *testing.T) {
	var buf bytes.Buffer
	e := NewStreamEmitter(&buf)

	e.Ready()
	e.Emit(ContextRecord{Timestamp: time.Now().UTC(), AppName: "code"})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("wrote %d lines, want 2", len(lines))
	}

	first, err := ParseEnvelope(lines[0])
	if err != nil {
		t.Fatalf("parse ready frame: %v", err)
	}
	if first.Type != TypeReady {
		t.Errorf("first frame type = %q, want ready", first.Type)
	}

	second, err := ParseEnvelope(lines[1])
	if err != nil {
		t.Fatalf("parse record frame: %v", err)
	}
	rec, err := second.Unwrap()
	if err != nil {
		t.Fatalf("unwrap record frame: %v", err)
	}
	if rec.(ContextRecord).AppName != "code" {
		t.Errorf("record = %+v", rec)
	}
}
