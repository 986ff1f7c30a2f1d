// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

// Package postgres implements the progress repository over PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/skillforge/skillforge/internal/progress"
)

// db is the subset of *pgxpool.Pool the repository uses. pgxmock's
// PgxPoolIface satisfies it, so repository unit tests run without a server.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements progress.Repository using PostgreSQL.
//
// Both toggles run as a single INSERT ... ON CONFLICT ... DO UPDATE
// statement, so the read-negate-write cycle commits atomically per key and
// concurrent toggles serialize on the row lock instead of losing updates.
type Repository struct {
	pool db
}

// NewRepository creates a new Repository.
func NewRepository(pool db) *Repository {
	return &Repository{pool: pool}
}

// ToggleCompleted flips the completed flag and returns the new value,
// creating the row (with pinned=false) if it did not exist.
func (r *Repository) ToggleCompleted(ctx context.Context, userID, moduleID ulid.ULID) (bool, error) {
	var value bool
	err := r.pool.QueryRow(ctx, `
		INSERT INTO user_module_data (user_id, module_id, completed, updated_at)
		VALUES ($1, $2, TRUE, $3)
		ON CONFLICT (user_id, module_id)
		DO UPDATE SET completed = NOT user_module_data.completed, updated_at = $3
		RETURNING completed
	`, userID.String(), moduleID.String(), time.Now()).Scan(&value)
	if err != nil {
		return false, oops.Code("PROGRESS_TOGGLE_COMPLETED_FAILED").
			With("operation", "upsert completed flag").
			With("user_id", userID.String()).
			With("module_id", moduleID.String()).
			Wrap(err)
	}
	return value, nil
}

// TogglePinned flips the pinned flag and returns the new value, creating
// the row (with completed=false) if it did not exist.
func (r *Repository) TogglePinned(ctx context.Context, userID, moduleID ulid.ULID) (bool, error) {
	var value bool
	err := r.pool.QueryRow(ctx, `
		INSERT INTO user_module_data (user_id, module_id, pinned, updated_at)
		VALUES ($1, $2, TRUE, $3)
		ON CONFLICT (user_id, module_id)
		DO UPDATE SET pinned = NOT user_module_data.pinned, updated_at = $3
		RETURNING pinned
	`, userID.String(), moduleID.String(), time.Now()).Scan(&value)
	if err != nil {
		return false, oops.Code("PROGRESS_TOGGLE_PINNED_FAILED").
			With("operation", "upsert pinned flag").
			With("user_id", userID.String()).
			With("module_id", moduleID.String()).
			Wrap(err)
	}
	return value, nil
}

// GetCompletion reads the completed flag. An absent row reads as false and
// no row is created.
func (r *Repository) GetCompletion(ctx context.Context, userID, moduleID ulid.ULID) (bool, error) {
	var value bool
	err := r.pool.QueryRow(ctx, `
		SELECT completed FROM user_module_data
		WHERE user_id = $1 AND module_id = $2
	`, userID.String(), moduleID.String()).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("PROGRESS_GET_COMPLETION_FAILED").
			With("operation", "get completed flag").
			With("user_id", userID.String()).
			With("module_id", moduleID.String()).
			Wrap(err)
	}
	return value, nil
}

// Get retrieves the full progress row.
func (r *Repository) Get(ctx context.Context, userID, moduleID ulid.ULID) (*progress.ModuleProgress, error) {
	var (
		completed bool
		pinned    bool
		updatedAt time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT completed, pinned, updated_at FROM user_module_data
		WHERE user_id = $1 AND module_id = $2
	`, userID.String(), moduleID.String()).Scan(&completed, &pinned, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PROGRESS_NOT_FOUND").
			With("user_id", userID.String()).
			With("module_id", moduleID.String()).
			Wrap(progress.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("PROGRESS_GET_FAILED").
			With("operation", "get progress row").
			With("user_id", userID.String()).
			With("module_id", moduleID.String()).
			Wrap(err)
	}
	return &progress.ModuleProgress{
		UserID:    userID,
		ModuleID:  moduleID,
		Completed: completed,
		Pinned:    pinned,
		UpdatedAt: updatedAt,
	}, nil
}

// ListPinned returns the module IDs the user has pinned.
func (r *Repository) ListPinned(ctx context.Context, userID ulid.ULID) ([]ulid.ULID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT module_id FROM user_module_data
		WHERE user_id = $1 AND pinned
		ORDER BY module_id
	`, userID.String())
	if err != nil {
		return nil, oops.Code("PROGRESS_LIST_PINNED_FAILED").
			With("operation", "list pinned modules").
			With("user_id", userID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var ids []ulid.ULID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, oops.Code("PROGRESS_SCAN_FAILED").
				With("operation", "scan pinned module id").
				Wrap(err)
		}
		id, err := ulid.Parse(idStr)
		if err != nil {
			return nil, oops.Code("PROGRESS_INVALID_MODULE_ID").
				With("operation", "parse module id").
				With("module_id", idStr).
				Wrap(err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, oops.Code("PROGRESS_ROWS_ERROR").
			With("operation", "iterate pinned modules").
			Wrap(err)
	}

	return ids, nil
}

// Compile-time interface check.
var _ progress.Repository = (*Repository)(nil)
