// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

package web

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/skillforge/skillforge/internal/auth"
)

// identityKey is the echo context key holding the authenticated Identity.
const identityKey = "identity"

// requireSession resolves the session cookie to an Identity and stores it in
// the request context. Missing cookie, unknown token, expired session, and
// storage failure all produce the same 401; nothing in the response
// distinguishes them.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := ""
		if cookie, err := c.Cookie(SessionCookieName); err == nil {
			token = cookie.Value
		}

		identity, err := s.guard.CurrentIdentity(c.Request().Context(), token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}

		c.Set(identityKey, identity)
		return next(c)
	}
}

// requireRole gates a route group on a role. Must run after requireSession.
func (s *Server) requireRole(required auth.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := c.Get(identityKey).(auth.Identity)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if err := s.guard.RequireRole(identity, required); err != nil {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
			}
			return next(c)
		}
	}
}

// currentIdentity pulls the Identity stored by requireSession.
func currentIdentity(c echo.Context) (auth.Identity, bool) {
	identity, ok := c.Get(identityKey).(auth.Identity)
	return identity, ok
}

// requestMetrics counts requests per route and status.
func (s *Server) requestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if s.metrics == nil {
			return err
		}

		status := c.Response().Status
		if err != nil {
			if httpErr, ok := err.(*echo.HTTPError); ok {
				status = httpErr.Code
			} else {
				status = http.StatusInternalServerError
			}
		}

		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		return err
	}
}
