// Package api exposes the notification read API and the realtime event stream over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/push"
)

var errBadRequest = errors.New("bad request")

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Server serves the HTTP API.
type Server struct {
	engine *notifications.Engine
	hub    *push.Hub
	checks map[string]HealthCheck
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for request handling.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithHealthCheck adds a named dependency check to GET /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) {
		s.checks[name] = check
	}
}

// NewServer creates the API. hub may be nil, which disables GET /realtime/{channel}.
func NewServer(engine *notifications.Engine, hub *push.Hub, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		hub:    hub,
		checks: make(map[string]HealthCheck),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Router returns the HTTP handler with every route mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)

	r.Route("/recipients/{recipientID}/notifications", func(r chi.Router) {
		r.Get("/", s.listNotifications)
		r.Get("/unread-count", s.unreadCount)
		r.Post("/read", s.markAllRead)
	})
	r.Post("/notifications/{notificationID}/read", s.markRead)

	if s.hub != nil {
		r.Get("/realtime/{channel}", s.stream)
	}

	return r
}
