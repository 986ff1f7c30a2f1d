// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

// Package postgres implements the auth repositories over PostgreSQL.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// db is the subset of *pgxpool.Pool the repositories use. pgxmock's
// PgxPoolIface satisfies it, so repository unit tests run without a server.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
