// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/bureau-foundation/pkgvault/lib/service"
)

// LogLevelEnvVar names the environment variable that sets the level of
// command loggers: debug, info, warn or error.
const LogLevelEnvVar = "PKGVAULT_LOG_LEVEL"

// NewCommandLogger returns the logger passed to command Run functions.
// It writes to stderr: text when stderr is a terminal, JSON (the
// server's format) when it is piped. An unknown level in
// PKGVAULT_LOG_LEVEL is ignored and info is used.
func NewCommandLogger() *slog.Logger {
	return newCommandLogger(os.Stderr, os.Getenv(LogLevelEnvVar))
}

func newCommandLogger(output *os.File, levelName string) *slog.Logger {
	level := slog.LevelInfo
	if levelName != "" {
		if parsed, err := service.ParseLevel(levelName); err == nil {
			level = parsed
		}
	}
	options := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(output.Fd())) {
		return slog.New(slog.NewTextHandler(output, options))
	}
	return slog.New(slog.NewJSONHandler(output, options))
}
