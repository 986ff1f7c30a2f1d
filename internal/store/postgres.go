// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

// Package store provides database connection and schema management.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// connectAttempts bounds the startup ping retries. Postgres restarting
// alongside the app (compose, rolling deploys) is the case this covers.
const connectAttempts = 5

// Connect opens a pgx connection pool and verifies it with a pinged
// fibonacci-backoff retry loop before returning.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "create connection pool").
			Wrap(err)
	}

	backoff := retry.WithMaxRetries(connectAttempts, retry.NewFibonacci(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_PING_FAILED").
			With("operation", "ping database").
			With("attempts", connectAttempts+1).
			Wrap(err)
	}

	return pool, nil
}
