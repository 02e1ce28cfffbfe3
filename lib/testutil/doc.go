// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides channel helpers for pkgvault tests that
// wait on goroutines: servers becoming ready, shutdowns completing,
// and concurrent writers finishing. Each helper fails the test after a
// timeout instead of hanging the test binary.
package testutil
