// Package record defines the typed messages exchanged between the
// producer workers and the fusion loop, and their JSON wire form for
// cross-process transport.
package record

import (
	"time"

	"github.com/focusguard/focusd/pkg/focus"
)

// Source identifies which producer emitted a record.
type Source string

const (
	SourceFocus  Source = "focus"
	SourceScreen Source = "screen"
)

// Record is the sealed union over everything a producer can emit.
// Consumers discriminate with a type switch, never by string lookup.
type Record interface {
	Source() Source
	At() time.Time
}

// FocusRecord is one frame's attention verdict. Immutable once
// emitted.
type FocusRecord struct {
	Timestamp      time.Time    `json:"timestamp"`
	Status         focus.Status `json:"status"`
	Reason         string       `json:"reason,omitempty"`
	DistractionPct float64      `json:"distraction_pct"`
	Emotion        string       `json:"emotion,omitempty"`
}

// Source implements Record.
func (FocusRecord) Source() Source { return SourceFocus }

// At implements Record.
func (r FocusRecord) At() time.Time { return r.Timestamp }

// ContextRecord is one sample of the active window and on-screen text.
// Immutable once emitted.
type ContextRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	AppName     string    `json:"app_name"`
	WindowTitle string    `json:"window_title"`
	URL         string    `json:"url,omitempty"`
	OCRText     string    `json:"ocr_text,omitempty"`
}

// Source implements Record.
func (ContextRecord) Source() Source { return SourceScreen }

// At implements Record.
func (r ContextRecord) At() time.Time { return r.Timestamp }

// ErrorRecord signals a fatal producer failure. A producer emits at
// most one before exiting its loop.
type ErrorRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Origin    Source    `json:"origin"`
	Message   string    `json:"message"`
}

// Source implements Record.
func (r ErrorRecord) Source() Source { return r.Origin }

// At implements Record.
func (r ErrorRecord) At() time.Time { return r.Timestamp }

// Emitter is how a producer hands records to the rest of the pipeline.
// Ready must be called exactly once, after the producer's expensive
// initialization has succeeded and before the first Emit.
type Emitter interface {
	Ready()
	Emit(Record)
}
