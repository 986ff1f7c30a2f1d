// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role determines which gated areas of the platform a user may reach.
type Role string

// Known roles.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one the platform knows about.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// DefaultAvatar is the placeholder avatar reference assigned at registration.
const DefaultAvatar = "/static/img/avatar-placeholder.png"

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// usernameRegex matches usernames that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, and underscores
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// User represents a registered account.
type User struct {
	ID           ulid.ULID
	Username     string
	PasswordHash string
	Role         Role
	Avatar       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a validated User with the default role and avatar.
func NewUser(username, passwordHash string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         RoleUser,
		Avatar:       DefaultAvatar,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateUsername validates a username against rules.
// Username requirements:
// - Length: MinUsernameLength to MaxUsernameLength characters
// - Must start with a letter
// - Can contain only letters (a-z, A-Z), numbers (0-9), and underscores (_)
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("AUTH_INVALID_USERNAME").
			Errorf("username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// UserRepository manages user persistence.
// Users are never deleted through this interface; removal (and the cascade
// onto sessions and progress rows) is an operator-level concern.
type UserRepository interface {
	// Create stores a new user. Returns an error wrapping ErrUsernameTaken
	// when the username is already registered.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByUsername retrieves a user by username (case-insensitive).
	GetByUsername(ctx context.Context, username string) (*User, error)

	// UpdatePassword updates only the password hash for a user.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// UpdateAvatar updates only the avatar reference for a user.
	UpdateAvatar(ctx context.Context, id ulid.ULID, avatar string) error
}
