package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusguard/focusd/internal/store"
	"github.com/focusguard/focusd/pkg/focus"
	"github.com/focusguard/focusd/pkg/record"
	"github.com/focusguard/focusd/pkg/session"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "focusd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	sessions, err := session.NewManager(context.Background(), st)
	require.NoError(t, err)

	return NewServer("0", st, sessions), st
}

func doJSON(t *testing.T, s *Server, method, path string, out any) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, out))
	}
	return resp.StatusCode
}

func TestSessionEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	var started sessionView
	code := doJSON(t, s, http.MethodPost, "/api/sessions/start", &started)
	require.Equal(t, http.StatusCreated, code)
	assert.NotEmpty(t, started.ID)
	assert.True(t, started.Active)

	// A second start conflicts.
	code = doJSON(t, s, http.MethodPost, "/api/sessions/start", nil)
	assert.Equal(t, http.StatusConflict, code)

	var ended sessionView
	code = doJSON(t, s, http.MethodPost, "/api/sessions/current/end", &ended)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, started.ID, ended.ID)
	assert.False(t, ended.Active)

	// Ending again conflicts: nothing is active.
	code = doJSON(t, s, http.MethodPost, "/api/sessions/current/end", nil)
	assert.Equal(t, http.StatusConflict, code)

	var listed []sessionView
	code = doJSON(t, s, http.MethodGet, "/api/sessions", &listed)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, listed, 1)
	assert.Equal(t, started.ID, listed[0].ID)
}

func TestStatusReflectsLiveState(t *testing.T) {
	s, _ := newTestServer(t)

	s.Live().PublishFocus(record.FocusRecord{
		Timestamp:      time.Now(),
		Status:         focus.StatusDistracted,
		Reason:         "Yaw",
		DistractionPct: 40,
	})
	s.Live().PublishContext(record.ContextRecord{
		Timestamp: time.Now(),
		AppName:   "firefox",
	})

	var snap StatusSnapshot
	code := doJSON(t, s, http.MethodGet, "/api/status", &snap)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, snap.Focus)
	assert.Equal(t, string(focus.StatusDistracted), snap.Focus.Status)
	require.NotNil(t, snap.Context)
	assert.Equal(t, "firefox", snap.Context.AppName)
}

func TestSummaryEndpoint(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()

	var started sessionView
	code := doJSON(t, s, http.MethodPost, "/api/sessions/start", &started)
	require.Equal(t, http.StatusCreated, code)

	base := time.Now()
	for i := 0; i < 4; i++ {
		label := "Productive"
		if i == 3 {
			label = "Unproductive"
		}
		_, err := st.InsertMoment(ctx, store.Moment{
			SessionID:    started.ID,
			Timestamp:    base.Add(time.Duration(i) * 5 * time.Second),
			FocusStatus:  "Focused",
			Service:      "Code",
			Productivity: label,
		})
		require.NoError(t, err)
	}

	var summary map[string]any
	code = doJSON(t, s, http.MethodGet, "/api/sessions/"+started.ID+"/summary", &summary)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 4, summary["moment_count"])
	assert.EqualValues(t, 75, summary["productivity_pct"])

	code = doJSON(t, s, http.MethodGet, "/api/sessions/nope/summary", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMomentsAndFeedback(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()

	var started sessionView
	require.Equal(t, http.StatusCreated,
		doJSON(t, s, http.MethodPost, "/api/sessions/start", &started))

	id, err := st.InsertMoment(ctx, store.Moment{
		SessionID:    started.ID,
		Timestamp:    time.Now(),
		FocusStatus:  "Focused",
		Productivity: "Productive",
	})
	require.NoError(t, err)

	var moments []MomentView
	code := doJSON(t, s, http.MethodGet, "/api/sessions/"+started.ID+"/moments", &moments)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, moments, 1)
	assert.Equal(t, id, moments[0].ID)

	req := httptest.NewRequest(http.MethodPost, "/api/moments/"+strconv.FormatInt(id, 10)+"/feedback",
		strings.NewReader(`{"label":"Unproductive"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err := st.MomentsBySession(ctx, started.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Unproductive", stored[0].UserFeedback)
	assert.True(t, stored[0].IsReviewed)
}
