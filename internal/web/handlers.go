// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

package web

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/skillforge/skillforge/internal/progress"
	"github.com/skillforge/skillforge/pkg/errutil"
)

type credentialsRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type changePasswordRequest struct {
	OldPassword     string `json:"old_password" form:"old_password"`
	NewPassword     string `json:"new_password" form:"new_password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

type avatarRequest struct {
	Avatar string `json:"avatar" form:"avatar"`
}

type valueResponse struct {
	Value bool `json:"value"`
}

// errorCode extracts the oops error code, empty when absent.
func errorCode(err error) string {
	if o, ok := oops.AsOops(err); ok {
		return o.Code()
	}
	return ""
}

func (s *Server) handleRegister(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}

	if err := s.authSvc.Register(c.Request().Context(), req.Username, req.Password); err != nil {
		switch errorCode(err) {
		case "AUTH_USERNAME_TAKEN":
			return echo.NewHTTPError(http.StatusConflict, "username is already taken")
		case "AUTH_INVALID_USERNAME":
			return echo.NewHTTPError(http.StatusBadRequest, "invalid username")
		default:
			errutil.LogError(s.logger, "registration failed", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
		}
	}

	if s.metrics != nil {
		s.metrics.RegistrationsTotal.Inc()
	}
	return c.JSON(http.StatusCreated, map[string]string{"message": "account created"})
}

func (s *Server) handleLogin(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}

	session, token, err := s.authSvc.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if s.metrics != nil {
			s.metrics.LoginsTotal.WithLabelValues("failure").Inc()
		}
		if errorCode(err) == "AUTH_INVALID_CREDENTIALS" {
			// One message for unknown user and wrong password alike.
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
		}
		errutil.LogError(s.logger, "login failed", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	c.SetCookie(s.sessionCookie(token, s.authSvc.SessionTTL()))

	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues("success").Inc()
	}
	return c.JSON(http.StatusOK, map[string]string{
		"user_id":    session.UserID.String(),
		"expires_at": session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// handleLogout revokes the session and clears the cookie. A request without
// a cookie still succeeds; logout is always safe to repeat.
func (s *Server) handleLogout(c echo.Context) error {
	token := ""
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		token = cookie.Value
	}

	if err := s.authSvc.Logout(c.Request().Context(), token); err != nil {
		errutil.LogWarn(s.logger, "logout failed", err)
	}

	c.SetCookie(s.clearedSessionCookie())
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleMe(c echo.Context) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	user, err := s.authSvc.GetUser(c.Request().Context(), identity.UserID)
	if err != nil {
		errutil.LogError(s.logger, "profile lookup failed", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "profile lookup failed")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"user_id":  user.ID.String(),
		"username": user.Username,
		"role":     string(user.Role),
		"avatar":   user.Avatar,
	})
}

func (s *Server) handleChangePassword(c echo.Context) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}

	err := s.authSvc.ChangePassword(c.Request().Context(), identity.UserID, req.OldPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		switch errorCode(err) {
		case "AUTH_PASSWORD_MISMATCH":
			return echo.NewHTTPError(http.StatusBadRequest, "new passwords do not match")
		case "AUTH_PASSWORD_SAME_AS_OLD":
			return echo.NewHTTPError(http.StatusBadRequest, "new password must differ from the old one")
		case "AUTH_INCORRECT_OLD_PASSWORD":
			return echo.NewHTTPError(http.StatusForbidden, "old password is incorrect")
		default:
			errutil.LogError(s.logger, "password change failed", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "password change failed")
		}
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSetAvatar(c echo.Context) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req avatarRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}

	if err := s.authSvc.SetAvatar(c.Request().Context(), identity.UserID, req.Avatar); err != nil {
		if errorCode(err) == "AUTH_INVALID_AVATAR" {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid avatar reference")
		}
		errutil.LogError(s.logger, "avatar update failed", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "avatar update failed")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListPinned(c echo.Context) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	ids, err := s.tracker.ListPinned(c.Request().Context(), identity.UserID)
	if err != nil {
		errutil.LogError(s.logger, "pinned list failed", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "pinned list failed")
	}

	pinned := make([]string, 0, len(ids))
	for _, id := range ids {
		pinned = append(pinned, id.String())
	}
	return c.JSON(http.StatusOK, map[string][]string{"pinned": pinned})
}

func (s *Server) handleToggleCompleted(c echo.Context) error {
	return s.handleToggle(c, progress.FlagCompleted)
}

func (s *Server) handleTogglePinned(c echo.Context) error {
	return s.handleToggle(c, progress.FlagPinned)
}

// handleToggle flips a flag and echoes the new value back, so the client can
// render the state the server actually landed on rather than its own guess.
func (s *Server) handleToggle(c echo.Context, flag progress.Flag) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	moduleID, err := ulid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid module ID")
	}

	ctx := c.Request().Context()
	var value bool
	switch flag {
	case progress.FlagPinned:
		value, err = s.tracker.TogglePinned(ctx, identity.UserID, moduleID)
	default:
		value, err = s.tracker.ToggleCompleted(ctx, identity.UserID, moduleID)
	}
	if err != nil {
		errutil.LogError(s.logger, "toggle failed", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "toggle failed")
	}

	if s.metrics != nil {
		s.metrics.TogglesTotal.WithLabelValues(string(flag)).Inc()
	}
	return c.JSON(http.StatusOK, valueResponse{Value: value})
}

func (s *Server) handleGetCompletion(c echo.Context) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	moduleID, err := ulid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid module ID")
	}

	value, err := s.tracker.GetCompletion(c.Request().Context(), identity.UserID, moduleID)
	if err != nil {
		errutil.LogError(s.logger, "completion read failed", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "completion read failed")
	}
	return c.JSON(http.StatusOK, valueResponse{Value: value})
}

func (s *Server) handleSweepSessions(c echo.Context) error {
	removed, err := s.authSvc.SweepSessions(c.Request().Context())
	if err != nil {
		errutil.LogError(s.logger, "session sweep failed", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "session sweep failed")
	}

	if s.metrics != nil {
		s.metrics.SessionsSwept.Add(float64(removed))
	}
	return c.JSON(http.StatusOK, map[string]int64{"removed": removed})
}
