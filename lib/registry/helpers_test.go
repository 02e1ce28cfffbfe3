// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
)

const testBaseURL = "http://registry.test"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMetadataStore(t *testing.T, strict bool) *MetadataStore {
	t.Helper()
	store, err := NewMetadataStore(filepath.Join(t.TempDir(), "storage"), MetadataOptions{
		Strict: strict,
		Logger: discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewMetadataStore failed: %v", err)
	}
	return store
}

type testRegistry struct {
	metadata    *MetadataStore
	artifacts   *ArtifactStore
	coordinator *Coordinator
}

func newTestRegistry(t *testing.T) *testRegistry {
	t.Helper()
	metadata := newTestMetadataStore(t, false)
	artifacts := NewArtifactStore(metadata)
	coordinator, err := NewCoordinator(CoordinatorConfig{
		Metadata:  metadata,
		Artifacts: artifacts,
		BaseURL:   testBaseURL,
		Logger:    discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}
	return &testRegistry{metadata: metadata, artifacts: artifacts, coordinator: coordinator}
}

func mustParse(t *testing.T, document string) Descriptor {
	t.Helper()
	descriptor, err := ParseDescriptor([]byte(document))
	if err != nil {
		t.Fatalf("ParseDescriptor(%s): %v", document, err)
	}
	return descriptor
}
