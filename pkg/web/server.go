// Package web serves the control API and live status feed.
package web

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/focusguard/focusd/internal/log"
	"github.com/focusguard/focusd/internal/store"
	"github.com/focusguard/focusd/pkg/hub"
	"github.com/focusguard/focusd/pkg/session"
)

// Server is the HTTP/websocket front of the recorder.
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	store     *store.Store
	sessions  *session.Manager
	live      *LiveState
	statusHub *hub.Hub
}

// NewServer wires the API around the store and session manager.
func NewServer(port string, st *store.Store, sessions *session.Manager) *Server {
	statusHub := hub.New("status")
	s := &Server{
		port:      port,
		logger:    log.L().With("component", "web"),
		store:     st,
		sessions:  sessions,
		statusHub: statusHub,
		live:      NewLiveState(statusHub),
	}

	app := fiber.New(fiber.Config{
		AppName:               "focusd",
		DisableStartupMessage: true,
	})

	// CORS for the local dashboard.
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/sessions/start", s.handleStartSession)
	api.Post("/sessions/:id/end", s.handleEndSession)
	api.Get("/sessions", s.handleListSessions)
	api.Get("/sessions/:id/summary", s.handleSessionSummary)
	api.Get("/sessions/:id/moments", s.handleSessionMoments)
	api.Post("/moments/:id/feedback", s.handleMomentFeedback)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// Live returns the state object the fusion loop publishes into.
func (s *Server) Live() *LiveState {
	return s.live
}

// Run serves until the context is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	go s.statusHub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "port", s.port)
		errCh <- s.app.Listen(":" + s.port)
	}()

	select {
	case <-ctx.Done():
		if err := s.app.Shutdown(); err != nil {
			s.logger.Warn("shutdown", "error", err)
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
