// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration used for metadata
// snapshots.
//
// Descriptors are JSON on disk and on the wire because that is the
// format package tooling reads. Snapshots are a pkgvault-only format,
// so they use CBOR with Core Deterministic Encoding (RFC 8949 §4.2):
// sorted map keys, shortest integer and float encodings, no
// indefinite-length items. Exporting the same metadata twice yields
// identical bytes, which keeps snapshot diffs and checksums meaningful.
//
// Decoding into an any-typed target produces map[string]any rather
// than CBOR's default map[any]any, so decoded descriptors have the
// same shape encoding/json gives them and can be written straight back
// to disk.
package codec
