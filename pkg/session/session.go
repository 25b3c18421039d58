// Package session manages the lifecycle of tracking sessions: one
// active session at a time, persisted across restarts.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/focusguard/focusd/internal/store"
)

// ErrSessionActive is returned by Start while a session is running.
var ErrSessionActive = errors.New("a session is already active")

// ErrNoActiveSession is returned by End and Current when nothing is
// running.
var ErrNoActiveSession = errors.New("no active session")

// Manager enforces the single-active-session rule on top of the store.
type Manager struct {
	store *store.Store

	mu      sync.Mutex
	current *store.Session
}

// NewManager creates a manager and recovers any session left active by
// a previous run.
func NewManager(ctx context.Context, st *store.Store) (*Manager, error) {
	m := &Manager{store: st}

	sess, err := st.ActiveSession(ctx)
	switch {
	case err == nil:
		m.current = &sess
	case errors.Is(err, store.ErrSessionNotFound):
	default:
		return nil, fmt.Errorf("recover active session: %w", err)
	}
	return m, nil
}

// Start begins a new session.
func (m *Manager) Start(ctx context.Context) (store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return store.Session{}, ErrSessionActive
	}

	sess, err := m.store.CreateSession(ctx, uuid.NewString(), time.Now())
	if err != nil {
		return store.Session{}, fmt.Errorf("start session: %w", err)
	}
	m.current = &sess
	return sess, nil
}

// End closes the session with the given id. An empty id closes the
// current session.
func (m *Manager) End(ctx context.Context, id string) (store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return store.Session{}, ErrNoActiveSession
	}
	if id != "" && id != m.current.ID {
		return store.Session{}, fmt.Errorf("%w: %s", store.ErrSessionNotFound, id)
	}

	endedAt := time.Now()
	if err := m.store.EndSession(ctx, m.current.ID, endedAt); err != nil {
		return store.Session{}, fmt.Errorf("end session: %w", err)
	}

	sess := *m.current
	e := endedAt.UTC()
	sess.EndedAt = &e
	m.current = nil
	return sess, nil
}

// Current returns the active session.
func (m *Manager) Current() (store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return store.Session{}, ErrNoActiveSession
	}
	return *m.current, nil
}

// CurrentID returns the active session id, or "" when idle.
func (m *Manager) CurrentID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.ID
}
