// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

// Package progress tracks per-user module state: a completion flag and a
// pin flag per (user, module) pair. Rows are created lazily on the first
// toggle of either flag; an absent row is equivalent to both flags false.
package progress

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrNotFound is returned when a requested progress row does not exist.
var ErrNotFound = errors.New("not found")

// Flag identifies one of the two independent booleans on a progress row.
type Flag string

// The toggleable flags.
const (
	FlagCompleted Flag = "completed"
	FlagPinned    Flag = "pinned"
)

// ModuleProgress is the state of one (user, module) pair.
type ModuleProgress struct {
	UserID    ulid.ULID
	ModuleID  ulid.ULID
	Completed bool
	Pinned    bool
	UpdatedAt time.Time
}

// Repository manages progress persistence.
//
// Toggle operations are non-idempotent by design: each call flips the flag
// and returns the new value. Implementations must perform the flip as one
// atomic unit (a single-statement upsert or equivalent) so that two
// concurrent toggles on the same key cannot both read the same stale value
// and silently lose one flip.
type Repository interface {
	// ToggleCompleted flips the completed flag, creating the row with
	// pinned=false if it did not exist, and returns the new value.
	ToggleCompleted(ctx context.Context, userID, moduleID ulid.ULID) (bool, error)

	// TogglePinned flips the pinned flag, creating the row with
	// completed=false if it did not exist, and returns the new value.
	TogglePinned(ctx context.Context, userID, moduleID ulid.ULID) (bool, error)

	// GetCompletion reads the completed flag. Absent rows read as false.
	// Never creates a row.
	GetCompletion(ctx context.Context, userID, moduleID ulid.ULID) (bool, error)

	// Get retrieves the full progress row. Returns an error wrapping
	// ErrNotFound when absent.
	Get(ctx context.Context, userID, moduleID ulid.ULID) (*ModuleProgress, error)

	// ListPinned returns the module IDs the user has pinned.
	ListPinned(ctx context.Context, userID ulid.ULID) ([]ulid.ULID, error)
}
