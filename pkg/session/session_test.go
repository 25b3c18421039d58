package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusguard/focusd/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "focusd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStartAndEnd(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(ctx, openTestStore(t))
	require.NoError(t, err)

	_, err = m.Current()
	assert.ErrorIs(t, err, ErrNoActiveSession)
	assert.Empty(t, m.CurrentID())

	sess, err := m.Start(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, sess.ID, m.CurrentID())

	ended, err := m.End(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, ended.ID)
	require.NotNil(t, ended.EndedAt)
	assert.Empty(t, m.CurrentID())
}

func TestStartWhileActive(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(ctx, openTestStore(t))
	require.NoError(t, err)

	_, err = m.Start(ctx)
	require.NoError(t, err)

	_, err = m.Start(ctx)
	assert.ErrorIs(t, err, ErrSessionActive)
}

func TestEndWrongID(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(ctx, openTestStore(t))
	require.NoError(t, err)

	_, err = m.End(ctx, "whatever")
	assert.ErrorIs(t, err, ErrNoActiveSession)

	_, err = m.Start(ctx)
	require.NoError(t, err)

	_, err = m.End(ctx, "not-the-current-one")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestRecoverActiveSessionOnRestart(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	m1, err := NewManager(ctx, st)
	require.NoError(t, err)
	sess, err := m1.Start(ctx)
	require.NoError(t, err)

	// A fresh manager over the same store picks the session back up.
	m2, err := NewManager(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, m2.CurrentID())

	_, err = m2.End(ctx, sess.ID)
	require.NoError(t, err)

	m3, err := NewManager(ctx, st)
	require.NoError(t, err)
	assert.Empty(t, m3.CurrentID())
}
