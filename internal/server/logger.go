// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package server

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// setupLogger installs the process-wide slog logger: tinted text for
// terminals, JSON when log-format=json is requested.
func setupLogger(level, format string) {
	lvl, ok := logLevels[level]
	if !ok {
		lvl = slog.LevelInfo
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: lvl})
	}

	slog.SetDefault(slog.New(handler))
}
