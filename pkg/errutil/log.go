// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

// Package errutil bridges oops errors and slog.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// attrs extracts structured attributes from an error. For oops errors the
// code and context are included alongside the message.
func attrs(err error) []any {
	if oopsErr, ok := oops.AsOops(err); ok {
		out := []any{"error", oopsErr.Error()}
		if code := oopsErr.Code(); code != "" {
			out = append(out, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			out = append(out, "context", ctx)
		}
		return out
	}
	return []any{"error", err}
}

// LogError logs an error with structured context at ERROR level.
func LogError(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, attrs(err)...)
}

// LogWarn logs an error with structured context at WARN level. Used for
// fail-closed and best-effort paths where the operation still completes.
func LogWarn(logger *slog.Logger, msg string, err error) {
	logger.Warn(msg, attrs(err)...)
}

// LogWarnOp is LogWarn with an operation attribute identifying which
// best-effort step failed.
func LogWarnOp(logger *slog.Logger, msg, operation string, err error) {
	logger.Warn(msg, append([]any{"operation", operation}, attrs(err)...)...)
}
