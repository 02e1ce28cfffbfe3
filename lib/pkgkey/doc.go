// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pkgkey turns untrusted package names and artifact filenames
// into filesystem-safe storage keys.
//
// [PackageName] and [Filename] are pure and total: they never fail and
// always map the same input to the same key. Both remove every ".."
// sequence before any other filtering, so filtering can never glue a
// traversal sequence back together from adjacent safe characters.
//
// The mapping is not injective. "left pad" and "left_pad" both map to
// "left_pad". Callers that cannot accept the collision use
// [ValidatePackageName] and [ValidateFilename], which reject any input
// that is not already in canonical form.
package pkgkey
