// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/skillforge/internal/auth"
	"github.com/skillforge/skillforge/internal/auth/postgres"
)

func createTestSession(ctx context.Context, t *testing.T, userID ulid.ULID, expiresAt time.Time) *auth.Session {
	t.Helper()
	session, err := auth.NewSession(userID, "session_hash_"+ulid.Make().String(), expiresAt)
	require.NoError(t, err)

	repo := postgres.NewSessionRepository(testPool)
	require.NoError(t, repo.Create(ctx, session))

	t.Cleanup(func() {
		_, _ = testPool.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, session.TokenHash)
	})

	return session
}

func TestSessionRepository_Integration_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewSessionRepository(testPool)
	user := createTestUser(ctx, t, "session_rt")

	session := createTestSession(ctx, t, user.ID, time.Now().Add(time.Hour))

	stored, err := repo.GetByTokenHash(ctx, session.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, session.TokenHash, stored.TokenHash)
	assert.Equal(t, user.ID, stored.UserID)

	t.Run("returns ErrNotFound for unknown hash", func(t *testing.T) {
		_, err := repo.GetByTokenHash(ctx, "unknown_hash")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestSessionRepository_Integration_Delete(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewSessionRepository(testPool)
	user := createTestUser(ctx, t, "session_del")

	t.Run("deletes session", func(t *testing.T) {
		session := createTestSession(ctx, t, user.ID, time.Now().Add(time.Hour))

		require.NoError(t, repo.Delete(ctx, session.TokenHash))

		_, err := repo.GetByTokenHash(ctx, session.TokenHash)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("deleting absent session is a no-op", func(t *testing.T) {
		assert.NoError(t, repo.Delete(ctx, "never_existed"))
	})
}

func TestSessionRepository_Integration_DeleteByUser(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewSessionRepository(testPool)
	user := createTestUser(ctx, t, "session_delbyuser")
	other := createTestUser(ctx, t, "session_delbyuser2")

	mine := createTestSession(ctx, t, user.ID, time.Now().Add(time.Hour))
	theirs := createTestSession(ctx, t, other.ID, time.Now().Add(time.Hour))

	require.NoError(t, repo.DeleteByUser(ctx, user.ID))

	_, err := repo.GetByTokenHash(ctx, mine.TokenHash)
	assert.ErrorIs(t, err, auth.ErrNotFound)

	_, err = repo.GetByTokenHash(ctx, theirs.TokenHash)
	assert.NoError(t, err)
}

func TestSessionRepository_Integration_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewSessionRepository(testPool)
	user := createTestUser(ctx, t, "session_sweep")

	expired := createTestSession(ctx, t, user.ID, time.Now().Add(-time.Hour))
	live := createTestSession(ctx, t, user.ID, time.Now().Add(time.Hour))

	count, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, int64(1))

	_, err = repo.GetByTokenHash(ctx, expired.TokenHash)
	assert.ErrorIs(t, err, auth.ErrNotFound)

	_, err = repo.GetByTokenHash(ctx, live.TokenHash)
	assert.NoError(t, err)
}
