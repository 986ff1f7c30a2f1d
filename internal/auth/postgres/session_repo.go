// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/skillforge/skillforge/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
// The session_id column holds the SHA-256 hash of the token, never the
// token itself.
type SessionRepository struct {
	pool db
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool db) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`,
		session.TokenHash,
		session.UserID.String(),
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT session_id, user_id, created_at, expires_at
		FROM sessions
		WHERE session_id = $1
	`, tokenHash)

	session, err := r.scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}
	return session, nil
}

// Delete removes a session by token hash. Deleting a session that does not
// exist is a valid state, not an error.
func (r *SessionRepository) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE session_id = $1
	`, tokenHash)
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// DeleteByUser removes all sessions for a user.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE user_id = $1
	`, userID.String())
	if err != nil {
		return oops.Code("SESSION_DELETE_BY_USER_FAILED").
			With("operation", "delete sessions by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes all expired sessions and returns the count.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE expires_at <= $1
	`, time.Now())
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanSession scans a single row into a Session.
// Callers are responsible for handling pgx.ErrNoRows.
func (r *SessionRepository) scanSession(row pgx.Row) (*auth.Session, error) {
	var (
		tokenHash string
		userIDStr string
		createdAt time.Time
		expiresAt time.Time
	)

	err := row.Scan(&tokenHash, &userIDStr, &createdAt, &expiresAt)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("SESSION_SCAN_FAILED").
			With("operation", "scan session").
			Wrap(err)
	}

	userID, err := ulid.Parse(userIDStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_USER_ID").
			With("operation", "parse user id").
			With("user_id", userIDStr).
			Wrap(err)
	}

	return &auth.Session{
		TokenHash: tokenHash,
		UserID:    userID,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
