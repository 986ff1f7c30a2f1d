// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

package auth

import (
	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost matches the cost the platform has always used for
// credential hashes. Stored hashes carry their own cost, so raising this
// only affects new hashes (existing ones are upgraded on login).
const DefaultBcryptCost = 10

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted one-way hash of the password.
	Hash(password string) (string, error)

	// Verify reports whether the password matches the stored hash.
	// A corrupt or unparseable hash verifies as false rather than erroring,
	// so callers cannot distinguish "wrong password" from "corrupt record".
	Verify(password, hash string) bool

	// NeedsRehash returns true if the hash was produced with parameters
	// weaker than the currently configured ones.
	NeedsRehash(hash string) bool
}

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher with the given work factor.
// Costs outside bcrypt's supported range fall back to DefaultBcryptCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash produces a bcrypt hash of the password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").
			With("cost", h.cost).
			Wrap(err)
	}
	return string(digest), nil
}

// Verify reports whether the password matches the hash.
// bcrypt's comparison runs in time independent of where the mismatch occurs.
func (h *BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NeedsRehash returns true if the stored hash uses a lower cost than
// configured, or cannot be parsed at all.
func (h *BcryptHasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost < h.cost
}

// Compile-time interface check.
var _ PasswordHasher = (*BcryptHasher)(nil)
