// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the pkgvault
// binary: a tree of [Command] values with pflag flag sets, generated
// help, "did you mean" suggestions for mistyped commands and flags,
// [ExitError] for handled non-zero exits, and helpers for JSON output
// and command logging.
package cli
