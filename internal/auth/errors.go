// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrUsernameTaken is returned when registering a username that already exists.
var ErrUsernameTaken = errors.New("username taken")

// ErrUnauthenticated is the single rejection outcome for every failed
// session resolution: missing token, unknown token, expired token, and
// storage failure (fail closed) are indistinguishable to callers.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrForbidden is returned when an authenticated identity lacks the
// required role. Distinct from ErrUnauthenticated.
var ErrForbidden = errors.New("forbidden")
