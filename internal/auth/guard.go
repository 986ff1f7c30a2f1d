// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/skillforge/skillforge/pkg/errutil"
)

// Identity is an authenticated caller.
type Identity struct {
	UserID ulid.ULID
	Role   Role
}

// Guard resolves inbound session tokens to authenticated identities and
// enforces role-gated access. How a rejection renders (redirect vs. JSON
// error) is the transport layer's choice, not the Guard's.
type Guard struct {
	sessions *SessionManager
	users    UserRepository
	logger   *slog.Logger
}

// NewGuard creates a Guard. A nil logger falls back to slog.Default().
func NewGuard(sessions *SessionManager, users UserRepository, logger *slog.Logger) (*Guard, error) {
	if sessions == nil {
		return nil, oops.Errorf("session manager is required")
	}
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{sessions: sessions, users: users, logger: logger}, nil
}

// CurrentIdentity resolves a token to an Identity. An absent token is a
// valid rejection path that never touches storage. All rejections are the
// same ErrUnauthenticated outcome; storage failures fail closed.
func (g *Guard) CurrentIdentity(ctx context.Context, token string) (Identity, error) {
	userID, err := g.sessions.Validate(ctx, token)
	if err != nil {
		return Identity{}, err
	}

	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		// A session pointing at a vanished user means the cascade already
		// ran; anything else is a storage fault. Both fail closed.
		if !errors.Is(err, ErrNotFound) {
			errutil.LogWarn(g.logger, "user lookup failed, failing closed", err)
		}
		return Identity{}, unauthenticated()
	}

	return Identity{UserID: user.ID, Role: user.Role}, nil
}

// RequireRole checks an already-authenticated identity against a required
// role. Admins satisfy every requirement. Mismatch is the distinct
// ErrForbidden outcome, never ErrUnauthenticated.
func (g *Guard) RequireRole(identity Identity, required Role) error {
	if identity.Role == required || identity.Role == RoleAdmin {
		return nil
	}
	return oops.Code("AUTH_FORBIDDEN").
		With("required_role", string(required)).
		Wrap(ErrForbidden)
}
