// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package errutil holds helpers for logging and asserting oops errors.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level with attrs appended. An oops error
// contributes its domain, code, hint and context as separate attributes;
// anything else is logged as its message.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	LogErrorAt(context.Background(), logger, slog.LevelError, msg, err, attrs...)
}

// LogErrorAt is LogError at an explicit level.
func LogErrorAt(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, err error, attrs ...any) {
	if logger == nil {
		logger = slog.Default()
	}

	fields := []any{"error", err.Error()}
	if oopsErr, ok := oops.AsOops(err); ok {
		if domain := oopsErr.Domain(); domain != "" {
			fields = append(fields, "domain", domain)
		}
		if code := oopsErr.Code(); code != nil {
			fields = append(fields, "code", code)
		}
		if hint := oopsErr.Hint(); hint != "" {
			fields = append(fields, "hint", hint)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			fields = append(fields, "context", ctx)
		}
	}
	logger.Log(ctx, level, msg, append(fields, attrs...)...)
}
