// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

package progress

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Tracker coordinates progress-flag operations. There is deliberately no
// "set to value" entry point: state can only be flipped, so callers that
// want a specific outcome must read the current value first.
type Tracker struct {
	repo   Repository
	logger *slog.Logger
}

// NewTracker creates a Tracker. A nil logger falls back to slog.Default().
func NewTracker(repo Repository, logger *slog.Logger) (*Tracker, error) {
	if repo == nil {
		return nil, oops.Errorf("progress repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{repo: repo, logger: logger}, nil
}

// ToggleCompleted flips the completion flag and returns the new value.
// A storage failure surfaces as an explicit error, never as a fabricated
// toggle result.
func (t *Tracker) ToggleCompleted(ctx context.Context, userID, moduleID ulid.ULID) (bool, error) {
	if err := validateKey(userID, moduleID); err != nil {
		return false, err
	}
	value, err := t.repo.ToggleCompleted(ctx, userID, moduleID)
	if err != nil {
		return false, oops.Code("PROGRESS_TOGGLE_FAILED").
			With("flag", string(FlagCompleted)).
			With("user_id", userID.String()).
			With("module_id", moduleID.String()).
			Wrap(err)
	}
	t.logger.Debug("toggled module flag",
		"flag", string(FlagCompleted),
		"user_id", userID.String(),
		"module_id", moduleID.String(),
		"value", value,
	)
	return value, nil
}

// TogglePinned flips the pin flag and returns the new value. Pinning and
// completion are independent; toggling one never changes the other.
func (t *Tracker) TogglePinned(ctx context.Context, userID, moduleID ulid.ULID) (bool, error) {
	if err := validateKey(userID, moduleID); err != nil {
		return false, err
	}
	value, err := t.repo.TogglePinned(ctx, userID, moduleID)
	if err != nil {
		return false, oops.Code("PROGRESS_TOGGLE_FAILED").
			With("flag", string(FlagPinned)).
			With("user_id", userID.String()).
			With("module_id", moduleID.String()).
			Wrap(err)
	}
	t.logger.Debug("toggled module flag",
		"flag", string(FlagPinned),
		"user_id", userID.String(),
		"module_id", moduleID.String(),
		"value", value,
	)
	return value, nil
}

// GetCompletion reads the completion flag without side effects. Absent rows
// read as false.
func (t *Tracker) GetCompletion(ctx context.Context, userID, moduleID ulid.ULID) (bool, error) {
	if err := validateKey(userID, moduleID); err != nil {
		return false, err
	}
	value, err := t.repo.GetCompletion(ctx, userID, moduleID)
	if err != nil {
		return false, oops.Code("PROGRESS_GET_FAILED").
			With("user_id", userID.String()).
			With("module_id", moduleID.String()).
			Wrap(err)
	}
	return value, nil
}

// Get retrieves the full progress row for a (user, module) pair.
func (t *Tracker) Get(ctx context.Context, userID, moduleID ulid.ULID) (*ModuleProgress, error) {
	if err := validateKey(userID, moduleID); err != nil {
		return nil, err
	}
	row, err := t.repo.Get(ctx, userID, moduleID)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// ListPinned returns the module IDs the user has pinned.
func (t *Tracker) ListPinned(ctx context.Context, userID ulid.ULID) ([]ulid.ULID, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("PROGRESS_INVALID_KEY").Errorf("user ID cannot be zero")
	}
	ids, err := t.repo.ListPinned(ctx, userID)
	if err != nil {
		return nil, oops.Code("PROGRESS_LIST_PINNED_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return ids, nil
}

func validateKey(userID, moduleID ulid.ULID) error {
	if userID.Compare(ulid.ULID{}) == 0 {
		return oops.Code("PROGRESS_INVALID_KEY").Errorf("user ID cannot be zero")
	}
	if moduleID.Compare(ulid.ULID{}) == 0 {
		return oops.Code("PROGRESS_INVALID_KEY").Errorf("module ID cannot be zero")
	}
	return nil
}
