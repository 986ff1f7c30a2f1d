// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

// Package web exposes the platform over HTTP. It owns cookie handling and
// the mapping from auth/progress outcomes to status codes; the core
// packages stay transport-free.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/samber/oops"

	"github.com/skillforge/skillforge/internal/auth"
	"github.com/skillforge/skillforge/internal/observability"
	"github.com/skillforge/skillforge/internal/progress"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "sf_session"

// Options configures the HTTP server.
type Options struct {
	Addr string

	// CookieSecure marks the session cookie Secure. The original deployment
	// served TLS with an insecure cookie; default this to true.
	CookieSecure bool

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string
	TLSKey  string
}

// Server is the HTTP front of the platform.
type Server struct {
	echo    *echo.Echo
	authSvc *auth.Service
	guard   *auth.Guard
	tracker *progress.Tracker
	metrics *observability.Metrics
	opts    Options
	logger  *slog.Logger
}

// NewServer wires routes and middleware. metrics may be nil when the
// observability listener is disabled.
func NewServer(authSvc *auth.Service, guard *auth.Guard, tracker *progress.Tracker, metrics *observability.Metrics, opts Options, logger *slog.Logger) (*Server, error) {
	if authSvc == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if guard == nil {
		return nil, oops.Errorf("guard is required")
	}
	if tracker == nil {
		return nil, oops.Errorf("progress tracker is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		authSvc: authSvc,
		guard:   guard,
		tracker: tracker,
		metrics: metrics,
		opts:    opts,
		logger:  logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(s.requestMetrics)

	e.POST("/api/register", s.handleRegister)
	e.POST("/api/login", s.handleLogin)
	e.POST("/api/logout", s.handleLogout)

	authed := e.Group("/api", s.requireSession)
	authed.GET("/me", s.handleMe)
	authed.POST("/account/password", s.handleChangePassword)
	authed.POST("/account/avatar", s.handleSetAvatar)
	authed.GET("/pinned", s.handleListPinned)
	authed.POST("/modules/:id/completed", s.handleToggleCompleted)
	authed.POST("/modules/:id/pinned", s.handleTogglePinned)
	authed.GET("/modules/:id/completed", s.handleGetCompletion)

	admin := authed.Group("/admin", s.requireRole(auth.RoleAdmin))
	admin.POST("/sessions/sweep", s.handleSweepSessions)

	s.echo = e
	return s, nil
}

// Start serves until the listener fails or Stop is called. HTTPS is used
// when a cert/key pair is configured, mirroring the original deployment.
func (s *Server) Start() error {
	var err error
	if s.opts.TLSCert != "" && s.opts.TLSKey != "" {
		err = s.echo.StartTLS(s.opts.Addr, s.opts.TLSCert, s.opts.TLSKey)
	} else {
		err = s.echo.Start(s.opts.Addr)
	}
	if err != nil && err != http.ErrServerClosed {
		return oops.Code("WEB_SERVE_FAILED").With("addr", s.opts.Addr).Wrap(err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return oops.Code("WEB_SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// sessionCookie builds the session cookie the way the platform has always
// set it: HttpOnly, SameSite=Lax, max-age equal to the session TTL.
func (s *Server) sessionCookie(token string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// clearedSessionCookie expires the session cookie on the client.
func (s *Server) clearedSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
