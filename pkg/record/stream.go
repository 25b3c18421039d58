package record

import (
	"encoding/json"
	"io"
	"sync"
)

// StreamEmitter writes envelopes as newline-delimited JSON, one frame
// per line. Workers point it at stdout; the supervisor's scanner on
// the other side reassembles the stream.
type StreamEmitter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStreamEmitter wraps a writer, typically os.Stdout.
func NewStreamEmitter(w io.Writer) *StreamEmitter {
	return &StreamEmitter{w: w}
}

// Ready implements Emitter.
func (e *StreamEmitter) Ready() {
	e.write(ReadyEnvelope())
}

// Emit implements Emitter. Records that fail to encode are dropped;
// a broken pipe means the parent is gone and the worker will notice
// on its next write anyway.
func (e *StreamEmitter) Emit(r Record) {
	env, err := Wrap(r)
	if err != nil {
		return
	}
	e.write(env)
}

func (e *StreamEmitter) write(env *Envelope) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = json.NewEncoder(e.w).Encode(env)
}
