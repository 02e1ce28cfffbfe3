// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the pkgvault command tree.
//
// Every command that touches storage resolves its configuration the
// same way (see storeFlags): --config, else PKGVAULT_CONFIG, else the
// built-in defaults, with --root, --base-url and --strict applied on
// top. Offline commands (publish, upload, show, list, artifacts,
// fetch, export, import) operate on the storage root directly and must
// not run against a root a server is writing to from another process.
package commands
