// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry is the durable package metadata and artifact store.
//
// It persists one descriptor document per package and any number of
// binary artifacts per package under a single storage root:
//
//	<root>/<key>/package.json
//	<root>/<key>/artifacts/<filename>
//
// where <key> is [pkgkey.PackageName] of the raw package name and
// <filename> is [pkgkey.Filename] of the raw artifact filename. Scoped
// packages ("@scope/name") therefore live one directory deeper, under
// <root>/@scope/name.
//
// The pieces, leaves first:
//
//   - [MetadataStore] reads, writes and lists descriptors. Writes go to
//     a temporary file in the package directory and are renamed over
//     package.json, so a reader sees either the old document or the new
//     one and never a partial file.
//   - [ArtifactStore] streams artifact bytes in and out. Uploads use the
//     same temp-and-rename pattern, so a concurrent reader never sees a
//     torn artifact either.
//   - [Coordinator] binds an uploaded artifact to a descriptor version.
//     It serializes read-modify-write cycles per package with a keyed
//     lock, so two concurrent uploads to one package cannot lose each
//     other's descriptor changes.
//
// Missing data is reported with [ErrNotFound]. A descriptor that exists
// but cannot be parsed is reported as a [*CorruptDocumentError] by
// [MetadataStore.Read]; [MetadataStore.Lookup] folds both into "absent"
// for callers that only need a found/not-found answer. Filesystem
// failures on the write path are [*StorageError] values. Nothing in
// this package retries.
//
// The store owns its root directory. Running two processes against the
// same root is not supported.
package registry
