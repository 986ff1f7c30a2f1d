// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/skillforge/skillforge/pkg/errutil"
)

// Session token configuration.
const (
	// SessionTokenBytes gives 256 bits of entropy; collisions are assumed
	// negligible and not actively checked.
	SessionTokenBytes = 32

	// DefaultSessionTTL is the absolute session lifetime from issuance.
	// Sessions are never extended on use; the TTL does not slide.
	DefaultSessionTTL = time.Hour
)

// Session binds an opaque token to a user with an absolute expiry.
// Only the SHA-256 hash of the token is stored; the plaintext token
// exists solely in the cookie handed to the client.
type Session struct {
	TokenHash string
	UserID    ulid.ULID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewSession creates a validated Session instance.
func NewSession(userID ulid.ULID, tokenHash string, expiresAt time.Time) (*Session, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	return &Session{
		TokenHash: tokenHash,
		UserID:    userID,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}, nil
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// IsExpiredAt returns true if the session would be expired at the given time.
// Useful for testing with deterministic time values.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// GenerateSessionToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error). The plaintext token is
// base64url-encoded so it is cookie- and URL-safe without escaping.
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}

	token = base64.RawURLEncoding.EncodeToString(tokenBytes)
	hash = HashSessionToken(token)

	return token, hash, nil
}

// HashSessionToken computes the SHA-256 hash of a session token.
// This is what gets stored in the database.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session by its token hash.
	// Returns an error wrapping ErrNotFound when absent.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// Delete removes a session by token hash. Deleting a nonexistent
	// session is not an error.
	Delete(ctx context.Context, tokenHash string) error

	// DeleteByUser removes all sessions for a user.
	DeleteByUser(ctx context.Context, userID ulid.ULID) error

	// DeleteExpired removes all expired sessions and returns the count
	// of deleted records.
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionManager issues, validates, and revokes opaque session tokens.
type SessionManager struct {
	sessions SessionRepository
	ttl      time.Duration
	logger   *slog.Logger
}

// NewSessionManager creates a SessionManager. A non-positive ttl falls back
// to DefaultSessionTTL. A nil logger falls back to slog.Default().
func NewSessionManager(sessions SessionRepository, ttl time.Duration, logger *slog.Logger) (*SessionManager, error) {
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{sessions: sessions, ttl: ttl, logger: logger}, nil
}

// TTL returns the configured session lifetime. The HTTP layer uses it for
// the cookie max-age.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a session for the user and returns it with the plaintext
// token. Exactly one session is created per call; a user may hold any
// number of concurrent sessions.
func (m *SessionManager) Issue(ctx context.Context, userID ulid.ULID) (*Session, string, error) {
	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", oops.Code("SESSION_ISSUE_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := NewSession(userID, tokenHash, time.Now().Add(m.ttl))
	if err != nil {
		return nil, "", oops.Code("SESSION_ISSUE_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, "", oops.Code("SESSION_ISSUE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	return session, token, nil
}

// Validate resolves a token to the bound user ID. Every rejection path
// returns the same AUTH_UNAUTHENTICATED outcome: empty token (no storage
// hit), unknown token, expired token, and storage failure. Storage failures
// fail closed and are logged, never surfaced as a distinct result.
func (m *SessionManager) Validate(ctx context.Context, token string) (ulid.ULID, error) {
	if token == "" {
		return ulid.ULID{}, unauthenticated()
	}

	session, err := m.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			errutil.LogWarn(m.logger, "session lookup failed, failing closed", err)
		}
		return ulid.ULID{}, unauthenticated()
	}

	if session.IsExpired() {
		return ulid.ULID{}, unauthenticated()
	}

	return session.UserID, nil
}

// Revoke deletes the session for the token. Revoking a nonexistent or empty
// token is a no-op, not an error.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.sessions.Delete(ctx, HashSessionToken(token)); err != nil {
		return oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// SweepExpired removes expired sessions and returns the count removed.
func (m *SessionManager) SweepExpired(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return n, nil
}

func unauthenticated() error {
	return oops.Code("AUTH_UNAUTHENTICATED").Wrap(ErrUnauthenticated)
}
