package record

import (
	"encoding/json"
	"fmt"
	"time"
)

// EnvelopeType tags the wire form of a record.
type EnvelopeType string

const (
	TypeFocus   EnvelopeType = "focus"
	TypeContext EnvelopeType = "context"
	TypeError   EnvelopeType = "error"

	// TypeReady is the one-shot readiness handshake a worker posts
	// after successful initialization. It carries no record.
	TypeReady EnvelopeType = "ready"
)

// Envelope is the newline-delimited JSON frame written on a worker's
// stdout pipe.
type Envelope struct {
	Type      EnvelopeType    `json:"type"`
	Timestamp int64           `json:"ts"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// Wrap encodes a record into its wire envelope.
func Wrap(r Record) (*Envelope, error) {
	var t EnvelopeType
	switch r.(type) {
	case FocusRecord, *FocusRecord:
		t = TypeFocus
	case ContextRecord, *ContextRecord:
		t = TypeContext
	case ErrorRecord, *ErrorRecord:
		t = TypeError
	default:
		return nil, fmt.Errorf("unknown record type %T", r)
	}

	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal %s record: %w", t, err)
	}
	return &Envelope{Type: t, Timestamp: time.Now().UnixMilli(), Data: data}, nil
}

// ReadyEnvelope builds the handshake frame.
func ReadyEnvelope() *Envelope {
	return &Envelope{Type: TypeReady, Timestamp: time.Now().UnixMilli()}
}

// Unwrap decodes an envelope back into its record. Returns (nil, nil)
// for the readiness handshake, which carries no payload.
func (e *Envelope) Unwrap() (Record, error) {
	switch e.Type {
	case TypeReady:
		return nil, nil
	case TypeFocus:
		var r FocusRecord
		if err := json.Unmarshal(e.Data, &r); err != nil {
			return nil, fmt.Errorf("unmarshal focus record: %w", err)
		}
		return r, nil
	case TypeContext:
		var r ContextRecord
		if err := json.Unmarshal(e.Data, &r); err != nil {
			return nil, fmt.Errorf("unmarshal context record: %w", err)
		}
		return r, nil
	case TypeError:
		var r ErrorRecord
		if err := json.Unmarshal(e.Data, &r); err != nil {
			return nil, fmt.Errorf("unmarshal error record: %w", err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown envelope type %q", e.Type)
	}
}

// ParseEnvelope parses one wire frame.
func ParseEnvelope(line []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(line, &e); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}
	return &e, nil
}
