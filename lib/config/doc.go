// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for pkgvault.
//
// Configuration is loaded from a single file named by either the
// PKGVAULT_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no search path and no per-field
// environment override: the file is the whole configuration.
//
// The file may contain development, staging and production sections
// that override base values when [Config].Environment matches.
// Production is stricter by default: package names must already be
// canonical (see storage.strict_names).
//
// ${HOME}, ${PKGVAULT_ROOT} and ${VAR:-default} are expanded in path
// fields after loading.
//
// This package depends on no other pkgvault packages.
package config
