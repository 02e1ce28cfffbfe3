// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Well-known descriptor fields. Everything else in a descriptor is
// carried through untouched.
const (
	fieldName     = "name"
	fieldVersions = "versions"
	fieldDistTags = "dist-tags"
	fieldDist     = "dist"
	fieldTarball  = "tarball"

	latestTag = "latest"
)

// Descriptor is a package's metadata document: a structured mapping
// with at least "name", "versions" (version string to version record)
// and "dist-tags" (tag to version string). The store keeps the
// document verbatim and only interprets the fields it needs.
type Descriptor map[string]any

// NewDescriptor returns the document synthesized for a package that
// has no stored metadata yet.
func NewDescriptor(name string) Descriptor {
	return Descriptor{
		fieldName:     name,
		fieldVersions: map[string]any{},
	}
}

// ParseDescriptor decodes a JSON publish payload. Anything other than
// a JSON object fails with [ErrMalformedInput].
func ParseDescriptor(data []byte) (Descriptor, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: descriptor must be a JSON object", ErrMalformedInput)
	}
	var descriptor Descriptor
	if err := json.Unmarshal(trimmed, &descriptor); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return descriptor, nil
}

// Name returns the "name" field, or "" when it is missing or not a
// string.
func (d Descriptor) Name() string {
	name, _ := d[fieldName].(string)
	return name
}

// Versions returns the "versions" mapping, or nil when it is missing
// or not a mapping. The returned map aliases the descriptor.
func (d Descriptor) Versions() map[string]any {
	versions, _ := d[fieldVersions].(map[string]any)
	return versions
}

// DistTags returns the string-valued entries of "dist-tags". Entries
// whose value is not a string are skipped.
func (d Descriptor) DistTags() map[string]string {
	raw, _ := d[fieldDistTags].(map[string]any)
	tags := make(map[string]string, len(raw))
	for tag, value := range raw {
		if version, ok := value.(string); ok {
			tags[tag] = version
		}
	}
	return tags
}

// Latest returns the version the "latest" dist-tag points at.
func (d Descriptor) Latest() (string, bool) {
	raw, _ := d[fieldDistTags].(map[string]any)
	version, ok := raw[latestTag].(string)
	if !ok || version == "" {
		return "", false
	}
	return version, true
}

// Tarball returns dist.tarball of the given version, if present.
func (d Descriptor) Tarball(version string) (string, bool) {
	record, _ := d.Versions()[version].(map[string]any)
	dist, _ := record[fieldDist].(map[string]any)
	tarball, ok := dist[fieldTarball].(string)
	return tarball, ok
}

// SetTarball points dist.tarball of version at locator, creating the
// "versions" mapping, the version record and its "dist" object as
// needed. Non-mapping values found along the way are replaced.
func (d Descriptor) SetTarball(version, locator string) {
	versions := d.Versions()
	if versions == nil {
		versions = map[string]any{}
		d[fieldVersions] = versions
	}
	record, ok := versions[version].(map[string]any)
	if !ok {
		record = map[string]any{}
		versions[version] = record
	}
	dist, ok := record[fieldDist].(map[string]any)
	if !ok {
		dist = map[string]any{}
		record[fieldDist] = dist
	}
	dist[fieldTarball] = locator
}
