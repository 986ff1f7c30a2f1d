// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/skillforge/skillforge/pkg/errutil"
)

// Service provides registration and login operations.
type Service struct {
	users    UserRepository
	sessions *SessionManager
	hasher   PasswordHasher
	logger   *slog.Logger
}

// NewService creates a Service. A nil logger falls back to slog.Default().
func NewService(users UserRepository, sessions *SessionManager, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session manager is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, sessions: sessions, hasher: hasher, logger: logger}, nil
}

// dummyPasswordHash is used when a user doesn't exist so password
// verification still runs and response time stays consistent. This is NOT
// a real credential - no password hashes to it.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$2a$10$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Register creates a new user account with the default role and avatar.
func (s *Service) Register(ctx context.Context, username, password string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(username, hash)
	if err != nil {
		return oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return oops.Code("AUTH_USERNAME_TAKEN").
				With("username", username).
				Wrap(err)
		}
		return oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "persist user").
			Wrap(err)
	}
	return nil
}

// Authenticate verifies credentials and issues a session. Unknown usernames
// and wrong passwords are observably identical: both verify against a hash
// (a dummy one for unknown users, keeping timing consistent) and both return
// AUTH_INVALID_CREDENTIALS. Storage failures fail closed into the same
// outcome rather than leaking a distinct error shape.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Session, string, error) {
	user, lookupErr := s.users.GetByUsername(ctx, username)

	targetHash := dummyPasswordHash
	userExists := false

	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			errutil.LogWarn(s.logger, "user lookup failed during login, failing closed", lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	valid := s.hasher.Verify(password, targetHash)
	if !userExists || !valid {
		return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid username or password")
	}

	// Upgrade hashes produced with a weaker cost. Best effort; login
	// succeeds regardless.
	if s.hasher.NeedsRehash(user.PasswordHash) {
		if newHash, hashErr := s.hasher.Hash(password); hashErr == nil {
			if updErr := s.users.UpdatePassword(ctx, user.ID, newHash); updErr != nil {
				errutil.LogWarnOp(s.logger, "best-effort password rehash failed", "rehash", updErr)
			}
		}
	}

	session, token, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue session").
			Wrap(err)
	}

	return session, token, nil
}

// Logout revokes the session for the token. A missing or unknown token
// degrades to a no-op, so calling Logout twice is always safe.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// ChangePassword replaces the user's password hash after verifying the old
// password. The two new-password entries must match, the new password must
// differ from the old one, and the old password must verify.
func (s *Service) ChangePassword(ctx context.Context, userID ulid.ULID, oldPassword, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return oops.Code("AUTH_PASSWORD_MISMATCH").Errorf("new passwords do not match")
	}
	if newPassword == oldPassword {
		return oops.Code("AUTH_PASSWORD_SAME_AS_OLD").Errorf("new password must differ from the old one")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("AUTH_USER_NOT_FOUND").
				With("user_id", userID.String()).
				Wrap(err)
		}
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "get user").
			Wrap(err)
	}

	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return oops.Code("AUTH_INCORRECT_OLD_PASSWORD").Errorf("old password is incorrect")
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	if err := s.users.UpdatePassword(ctx, userID, newHash); err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "update password").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// SetAvatar updates the user's avatar reference. Where the file actually
// lives is the upload handler's concern.
func (s *Service) SetAvatar(ctx context.Context, userID ulid.ULID, avatar string) error {
	if avatar == "" {
		return oops.Code("AUTH_INVALID_AVATAR").Errorf("avatar reference cannot be empty")
	}
	if err := s.users.UpdateAvatar(ctx, userID, avatar); err != nil {
		return oops.Code("AUTH_SET_AVATAR_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// SweepSessions purges expired sessions and returns the count removed. The
// serve loop calls this on a timer; admins can also trigger it on demand.
func (s *Service) SweepSessions(ctx context.Context) (int64, error) {
	return s.sessions.SweepExpired(ctx)
}

// GetUser returns the account for a user ID. The not-found case keeps the
// ErrNotFound sentinel so callers can distinguish a vanished account from a
// storage fault.
func (s *Service) GetUser(ctx context.Context, userID ulid.ULID) (*User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_USER_NOT_FOUND").
				With("user_id", userID.String()).
				Wrap(err)
		}
		return nil, oops.Code("AUTH_GET_USER_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return user, nil
}

// SessionTTL exposes the configured session lifetime for cookie max-age.
func (s *Service) SessionTTL() time.Duration {
	return s.sessions.TTL()
}

// GetRole returns the role for a user.
func (s *Service) GetRole(ctx context.Context, userID ulid.ULID) (Role, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", oops.Code("AUTH_GET_ROLE_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return user.Role, nil
}
