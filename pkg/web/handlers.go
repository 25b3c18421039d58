package web

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/focusguard/focusd/internal/store"
	"github.com/focusguard/focusd/pkg/analytics"
	"github.com/focusguard/focusd/pkg/hub"
	"github.com/focusguard/focusd/pkg/session"
)

// handleStatus returns the live pipeline snapshot.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.live.Snapshot())
}

type sessionView struct {
	ID        string `json:"id"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
	Active    bool   `json:"active"`
}

func toSessionView(sess store.Session) sessionView {
	v := sessionView{
		ID:        sess.ID,
		StartedAt: sess.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
		Active:    sess.Active(),
	}
	if sess.EndedAt != nil {
		v.EndedAt = sess.EndedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return v
}

// handleStartSession begins a new tracking session.
func (s *Server) handleStartSession(c *fiber.Ctx) error {
	sess, err := s.sessions.Start(c.Context())
	if err != nil {
		if errors.Is(err, session.ErrSessionActive) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	s.live.SetSession(sess.ID)
	s.logger.Info("session started", "session", sess.ID)
	return c.Status(fiber.StatusCreated).JSON(toSessionView(sess))
}

// handleEndSession closes a session. The id "current" closes whatever
// is active.
func (s *Server) handleEndSession(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "current" {
		id = ""
	}

	sess, err := s.sessions.End(c.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNoActiveSession):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, store.ErrSessionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
	}

	s.live.SetSession("")
	s.logger.Info("session ended", "session", sess.ID)
	return c.JSON(toSessionView(sess))
}

// handleListSessions returns all sessions, newest first.
func (s *Server) handleListSessions(c *fiber.Ctx) error {
	sessions, err := s.store.ListSessions(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, toSessionView(sess))
	}
	return c.JSON(views)
}

// handleSessionSummary computes the productivity summary for one
// session.
func (s *Server) handleSessionSummary(c *fiber.Ctx) error {
	id := c.Params("id")

	if _, err := s.store.GetSession(c.Context(), id); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	moments, err := s.store.MomentsBySession(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(analytics.Compute(id, moments))
}

// handleSessionMoments returns a session's raw activity log.
func (s *Server) handleSessionMoments(c *fiber.Ctx) error {
	id := c.Params("id")

	if _, err := s.store.GetSession(c.Context(), id); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	moments, err := s.store.MomentsBySession(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	views := make([]MomentView, 0, len(moments))
	for _, m := range moments {
		views = append(views, MomentView{
			ID:           m.ID,
			SessionID:    m.SessionID,
			Timestamp:    m.Timestamp,
			FocusStatus:  m.FocusStatus,
			AppName:      m.AppName,
			Service:      m.Service,
			Productivity: m.Productivity,
		})
	}
	return c.JSON(views)
}

type feedbackRequest struct {
	Label string `json:"label"`
}

// handleMomentFeedback records a user's label correction.
func (s *Server) handleMomentFeedback(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid moment id"})
	}

	var req feedbackRequest
	if err := c.BodyParser(&req); err != nil || req.Label == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "label is required"})
	}

	if err := s.store.SetFeedback(c.Context(), id, req.Label); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"id": id, "label": req.Label})
}

// handleStatusWS streams live status snapshots. The current snapshot
// is sent immediately, then every update until disconnect.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	_ = c.WriteJSON(s.live.Snapshot())

	client := hub.NewClient(s.statusHub, c)
	client.Run()
}
