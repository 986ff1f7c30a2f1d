// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/skillforge/internal/auth"
	"github.com/skillforge/skillforge/pkg/errutil"
)

func TestGenerateSessionToken(t *testing.T) {
	t.Run("generates secure token", func(t *testing.T) {
		token, hash, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		assert.Len(t, token, 43) // 32 bytes base64url without padding
		assert.NotEmpty(t, hash)
		assert.NotEqual(t, token, hash)
	})

	t.Run("generates unique tokens", func(t *testing.T) {
		token1, hash1, err := auth.GenerateSessionToken()
		require.NoError(t, err)

		token2, hash2, err := auth.GenerateSessionToken()
		require.NoError(t, err)

		assert.NotEqual(t, token1, token2)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("token is cookie-safe", func(t *testing.T) {
		token, _, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		assert.NotContains(t, token, "=")
		assert.NotContains(t, token, "+")
		assert.NotContains(t, token, "/")
	})
}

func TestHashSessionToken(t *testing.T) {
	t.Run("produces consistent hash", func(t *testing.T) {
		token := "testtoken123"
		assert.Equal(t, auth.HashSessionToken(token), auth.HashSessionToken(token))
	})

	t.Run("produces different hashes for different tokens", func(t *testing.T) {
		assert.NotEqual(t, auth.HashSessionToken("token1"), auth.HashSessionToken("token2"))
	})

	t.Run("hash is SHA256 hex-encoded", func(t *testing.T) {
		hash := auth.HashSessionToken("anytoken")
		assert.Len(t, hash, 64) // SHA256 = 32 bytes = 64 hex chars
	})
}

func TestNewSession(t *testing.T) {
	userID := ulid.Make()

	t.Run("creates valid session", func(t *testing.T) {
		expiresAt := time.Now().Add(time.Hour)
		session, err := auth.NewSession(userID, "somehash", expiresAt)
		require.NoError(t, err)
		assert.Equal(t, userID, session.UserID)
		assert.Equal(t, "somehash", session.TokenHash)
		assert.Equal(t, expiresAt, session.ExpiresAt)
		assert.False(t, session.CreatedAt.IsZero())
	})

	t.Run("rejects zero user ID", func(t *testing.T) {
		_, err := auth.NewSession(ulid.ULID{}, "somehash", time.Now().Add(time.Hour))
		errutil.AssertErrorCode(t, err, "SESSION_INVALID_USER")
	})

	t.Run("rejects empty token hash", func(t *testing.T) {
		_, err := auth.NewSession(userID, "", time.Now().Add(time.Hour))
		errutil.AssertErrorCode(t, err, "SESSION_INVALID_HASH")
	})

	t.Run("rejects zero expiry", func(t *testing.T) {
		_, err := auth.NewSession(userID, "somehash", time.Time{})
		errutil.AssertErrorCode(t, err, "SESSION_INVALID_EXPIRY")
	})
}

func TestSession_IsExpiredAt(t *testing.T) {
	userID := ulid.Make()
	baseTime := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	session, err := auth.NewSession(userID, "somehash", baseTime.Add(time.Hour))
	require.NoError(t, err)

	t.Run("not expired before expiry", func(t *testing.T) {
		assert.False(t, session.IsExpiredAt(baseTime.Add(30*time.Minute)))
	})

	t.Run("expired exactly at expiry instant", func(t *testing.T) {
		assert.True(t, session.IsExpiredAt(baseTime.Add(time.Hour)))
	})

	t.Run("expired after expiry", func(t *testing.T) {
		assert.True(t, session.IsExpiredAt(baseTime.Add(2*time.Hour)))
	})
}

// fakeSessionRepo is an in-memory SessionRepository keyed by token hash.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*auth.Session

	createErr error
	getErr    error
	deleteErr error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*auth.Session)}
}

func (f *fakeSessionRepo) Create(_ context.Context, session *auth.Session) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.TokenHash] = session
	return nil
}

func (f *fakeSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[tokenHash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return session, nil
}

func (f *fakeSessionRepo) Delete(_ context.Context, tokenHash string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, tokenHash)
	return nil
}

func (f *fakeSessionRepo) DeleteByUser(_ context.Context, userID ulid.ULID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, session := range f.sessions {
		if session.UserID == userID {
			delete(f.sessions, hash)
		}
	}
	return nil
}

func (f *fakeSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for hash, session := range f.sessions {
		if session.IsExpired() {
			delete(f.sessions, hash)
			count++
		}
	}
	return count, nil
}

func TestSessionManager_Issue(t *testing.T) {
	repo := newFakeSessionRepo()
	mgr, err := auth.NewSessionManager(repo, time.Hour, nil)
	require.NoError(t, err)

	t.Run("issues session with plaintext token", func(t *testing.T) {
		userID := ulid.Make()
		session, token, err := mgr.Issue(context.Background(), userID)
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, userID, session.UserID)
		// Only the hash is persisted, never the token.
		assert.Equal(t, auth.HashSessionToken(token), session.TokenHash)
		assert.NotEqual(t, token, session.TokenHash)
	})

	t.Run("each login issues a distinct session", func(t *testing.T) {
		userID := ulid.Make()
		s1, t1, err := mgr.Issue(context.Background(), userID)
		require.NoError(t, err)
		s2, t2, err := mgr.Issue(context.Background(), userID)
		require.NoError(t, err)
		assert.NotEqual(t, t1, t2)
		assert.NotEqual(t, s1.TokenHash, s2.TokenHash)
	})

	t.Run("storage failure surfaces", func(t *testing.T) {
		failing := newFakeSessionRepo()
		failing.createErr = errors.New("disk full")
		failingMgr, err := auth.NewSessionManager(failing, time.Hour, nil)
		require.NoError(t, err)

		_, _, err = failingMgr.Issue(context.Background(), ulid.Make())
		errutil.AssertErrorCode(t, err, "SESSION_ISSUE_FAILED")
	})
}

func TestSessionManager_Validate(t *testing.T) {
	t.Run("valid token resolves to user", func(t *testing.T) {
		repo := newFakeSessionRepo()
		mgr, err := auth.NewSessionManager(repo, time.Hour, nil)
		require.NoError(t, err)

		userID := ulid.Make()
		_, token, err := mgr.Issue(context.Background(), userID)
		require.NoError(t, err)

		got, err := mgr.Validate(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, userID, got)
	})

	t.Run("empty token rejected without storage hit", func(t *testing.T) {
		repo := newFakeSessionRepo()
		repo.getErr = errors.New("should not be called")
		mgr, err := auth.NewSessionManager(repo, time.Hour, nil)
		require.NoError(t, err)

		_, err = mgr.Validate(context.Background(), "")
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("unknown token rejected", func(t *testing.T) {
		repo := newFakeSessionRepo()
		mgr, err := auth.NewSessionManager(repo, time.Hour, nil)
		require.NoError(t, err)

		_, err = mgr.Validate(context.Background(), "never-issued")
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
		errutil.AssertErrorCode(t, err, "AUTH_UNAUTHENTICATED")
	})

	t.Run("expired token rejected", func(t *testing.T) {
		repo := newFakeSessionRepo()
		mgr, err := auth.NewSessionManager(repo, time.Hour, nil)
		require.NoError(t, err)

		// Plant an already-expired session directly.
		token, hash, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		repo.sessions[hash] = &auth.Session{
			TokenHash: hash,
			UserID:    ulid.Make(),
			CreatedAt: time.Now().Add(-2 * time.Hour),
			ExpiresAt: time.Now().Add(-time.Hour),
		}

		_, err = mgr.Validate(context.Background(), token)
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("storage failure fails closed", func(t *testing.T) {
		repo := newFakeSessionRepo()
		repo.getErr = errors.New("connection refused")
		mgr, err := auth.NewSessionManager(repo, time.Hour, nil)
		require.NoError(t, err)

		// The caller sees the same rejection as a bad token, not the
		// storage error.
		_, err = mgr.Validate(context.Background(), "sometoken")
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
		assert.NotContains(t, err.Error(), "connection refused")
	})
}

func TestSessionManager_Revoke(t *testing.T) {
	t.Run("revoked token no longer validates", func(t *testing.T) {
		repo := newFakeSessionRepo()
		mgr, err := auth.NewSessionManager(repo, time.Hour, nil)
		require.NoError(t, err)

		_, token, err := mgr.Issue(context.Background(), ulid.Make())
		require.NoError(t, err)

		require.NoError(t, mgr.Revoke(context.Background(), token))

		_, err = mgr.Validate(context.Background(), token)
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("revoking unknown token is a no-op", func(t *testing.T) {
		repo := newFakeSessionRepo()
		mgr, err := auth.NewSessionManager(repo, time.Hour, nil)
		require.NoError(t, err)

		assert.NoError(t, mgr.Revoke(context.Background(), "never-issued"))
	})

	t.Run("revoking empty token is a no-op", func(t *testing.T) {
		repo := newFakeSessionRepo()
		repo.deleteErr = errors.New("should not be called")
		mgr, err := auth.NewSessionManager(repo, time.Hour, nil)
		require.NoError(t, err)

		assert.NoError(t, mgr.Revoke(context.Background(), ""))
	})

	t.Run("revoking twice is safe", func(t *testing.T) {
		repo := newFakeSessionRepo()
		mgr, err := auth.NewSessionManager(repo, time.Hour, nil)
		require.NoError(t, err)

		_, token, err := mgr.Issue(context.Background(), ulid.Make())
		require.NoError(t, err)

		require.NoError(t, mgr.Revoke(context.Background(), token))
		assert.NoError(t, mgr.Revoke(context.Background(), token))
	})
}

func TestSessionManager_SweepExpired(t *testing.T) {
	repo := newFakeSessionRepo()
	mgr, err := auth.NewSessionManager(repo, time.Hour, nil)
	require.NoError(t, err)

	// One live, two expired.
	_, liveToken, err := mgr.Issue(context.Background(), ulid.Make())
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, hash, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		repo.sessions[hash] = &auth.Session{
			TokenHash: hash,
			UserID:    ulid.Make(),
			CreatedAt: time.Now().Add(-2 * time.Hour),
			ExpiresAt: time.Now().Add(-time.Hour),
		}
	}

	removed, err := mgr.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = mgr.Validate(context.Background(), liveToken)
	assert.NoError(t, err)
}

func TestNewSessionManager(t *testing.T) {
	t.Run("requires repository", func(t *testing.T) {
		_, err := auth.NewSessionManager(nil, time.Hour, nil)
		assert.Error(t, err)
	})

	t.Run("non-positive ttl falls back to default", func(t *testing.T) {
		mgr, err := auth.NewSessionManager(newFakeSessionRepo(), 0, nil)
		require.NoError(t, err)
		assert.Equal(t, auth.DefaultSessionTTL, mgr.TTL())
	})

	t.Run("uses configured ttl", func(t *testing.T) {
		mgr, err := auth.NewSessionManager(newFakeSessionRepo(), 30*time.Minute, nil)
		require.NoError(t, err)
		assert.Equal(t, 30*time.Minute, mgr.TTL())
	})
}
