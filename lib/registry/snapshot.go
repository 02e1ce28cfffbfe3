// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"
	"io"
	"sort"

	"github.com/bureau-foundation/pkgvault/lib/codec"
)

// SnapshotFormat is the current snapshot format version.
const SnapshotFormat = 1

// Snapshot is a portable copy of every descriptor in a store. It is
// encoded as deterministic CBOR, so two exports of the same metadata
// are byte-identical. Artifacts are not included.
type Snapshot struct {
	Format   int                   `cbor:"format"`
	Packages map[string]Descriptor `cbor:"packages"`
}

// Export writes a snapshot of the stored descriptors in metadata to w.
// Packages with no stored descriptor are omitted, so an import never
// creates descriptor files the source did not have. Returns the number
// of packages written.
func Export(w io.Writer, metadata *MetadataStore) (int, error) {
	snapshot := Snapshot{
		Format:   SnapshotFormat,
		Packages: metadata.ListStored(),
	}
	if err := codec.NewEncoder(w).Encode(snapshot); err != nil {
		return 0, fmt.Errorf("encoding snapshot: %w", err)
	}
	return len(snapshot.Packages), nil
}

// Import reads a snapshot from r and publishes each descriptor through
// coordinator, in key order. It stops at the first failure and returns
// how many packages were published before it.
func Import(r io.Reader, coordinator *Coordinator) (int, error) {
	var snapshot Snapshot
	if err := codec.NewDecoder(r).Decode(&snapshot); err != nil {
		return 0, fmt.Errorf("%w: decoding snapshot: %v", ErrMalformedInput, err)
	}
	if snapshot.Format != SnapshotFormat {
		return 0, fmt.Errorf("%w: snapshot format %d, want %d", ErrMalformedInput, snapshot.Format, SnapshotFormat)
	}

	keys := make([]string, 0, len(snapshot.Packages))
	for key := range snapshot.Packages {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for index, key := range keys {
		if _, err := coordinator.Publish(key, snapshot.Packages[key]); err != nil {
			return index, fmt.Errorf("importing %q: %w", key, err)
		}
	}
	return len(keys), nil
}
