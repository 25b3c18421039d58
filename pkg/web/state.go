package web

import (
	"sync"
	"time"

	"github.com/focusguard/focusd/internal/store"
	"github.com/focusguard/focusd/pkg/hub"
	"github.com/focusguard/focusd/pkg/record"
)

// FocusView is the wire form of the latest focus verdict.
type FocusView struct {
	Timestamp      time.Time `json:"timestamp"`
	Status         string    `json:"status"`
	Reason         string    `json:"reason,omitempty"`
	DistractionPct float64   `json:"distraction_pct"`
	Emotion        string    `json:"emotion,omitempty"`
}

// ContextView is the wire form of the latest screen sample. OCR text
// is deliberately omitted from the live view; it can be large and is
// available from the session log.
type ContextView struct {
	Timestamp   time.Time `json:"timestamp"`
	AppName     string    `json:"app_name"`
	WindowTitle string    `json:"window_title"`
	URL         string    `json:"url,omitempty"`
}

// MomentView is the wire form of the latest analyzed moment.
type MomentView struct {
	ID           int64     `json:"id,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	FocusStatus  string    `json:"focus_status"`
	AppName      string    `json:"app_name"`
	Service      string    `json:"service"`
	Productivity string    `json:"productivity"`
}

// StatusSnapshot is the full live state served on /api/status and
// broadcast on /ws/status.
type StatusSnapshot struct {
	SessionID  string       `json:"session_id,omitempty"`
	Focus      *FocusView   `json:"focus,omitempty"`
	Context    *ContextView `json:"context,omitempty"`
	LastMoment *MomentView  `json:"last_moment,omitempty"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// LiveState is the lock-guarded current pipeline state. The fusion
// loop writes it; HTTP handlers read it; every write is broadcast to
// websocket subscribers.
type LiveState struct {
	mu       sync.RWMutex
	snapshot StatusSnapshot
	hub      *hub.Hub
}

// NewLiveState creates the state holder bound to a broadcast hub.
func NewLiveState(h *hub.Hub) *LiveState {
	return &LiveState{hub: h}
}

// Snapshot returns a copy of the current state.
func (l *LiveState) Snapshot() StatusSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot
}

// SetSession records the active session id, "" when idle.
func (l *LiveState) SetSession(id string) {
	l.update(func(s *StatusSnapshot) { s.SessionID = id })
}

// PublishFocus implements fusion.Publisher.
func (l *LiveState) PublishFocus(r record.FocusRecord) {
	l.update(func(s *StatusSnapshot) {
		s.Focus = &FocusView{
			Timestamp:      r.Timestamp,
			Status:         string(r.Status),
			Reason:         r.Reason,
			DistractionPct: r.DistractionPct,
			Emotion:        r.Emotion,
		}
	})
}

// PublishContext implements fusion.Publisher.
func (l *LiveState) PublishContext(r record.ContextRecord) {
	l.update(func(s *StatusSnapshot) {
		s.Context = &ContextView{
			Timestamp:   r.Timestamp,
			AppName:     r.AppName,
			WindowTitle: r.WindowTitle,
			URL:         r.URL,
		}
	})
}

// PublishMoment implements fusion.Publisher.
func (l *LiveState) PublishMoment(m store.Moment) {
	l.update(func(s *StatusSnapshot) {
		s.LastMoment = &MomentView{
			ID:           m.ID,
			SessionID:    m.SessionID,
			Timestamp:    m.Timestamp,
			FocusStatus:  m.FocusStatus,
			AppName:      m.AppName,
			Service:      m.Service,
			Productivity: m.Productivity,
		}
	})
}

func (l *LiveState) update(apply func(*StatusSnapshot)) {
	l.mu.Lock()
	apply(&l.snapshot)
	l.snapshot.UpdatedAt = time.Now()
	snapshot := l.snapshot
	l.mu.Unlock()

	if l.hub != nil {
		_ = l.hub.BroadcastJSON(snapshot)
	}
}
