// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"net/url"
	"strings"
)

// FallbackVersion is the version an upload binds to when the
// descriptor has no "latest" dist-tag.
const FallbackVersion = "0.0.0"

// VersionResolver picks the version key an uploaded artifact is bound
// to, given the package's current descriptor. It is the only place
// version policy lives; storage never interprets version strings.
type VersionResolver func(descriptor Descriptor) string

// LatestTagResolver binds uploads to the version "dist-tags.latest"
// points at, or to [FallbackVersion] when there is no such tag. It does
// not parse version strings out of filenames.
func LatestTagResolver(descriptor Descriptor) string {
	if latest, ok := descriptor.Latest(); ok {
		return latest
	}
	return FallbackVersion
}

// TarballURL builds the canonical locator stored in dist.tarball:
//
//	<scheme>://<host>/<escaped package>/-/<escaped filename>
//
// Any path on baseURL is kept as a prefix. Both names are escaped as
// single path segments, so "@scope/name" becomes "@scope%2Fname".
func TarballURL(baseURL, pkg, filename string) string {
	return strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(pkg) + "/-/" + url.PathEscape(filename)
}
