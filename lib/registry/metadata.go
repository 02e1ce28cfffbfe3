// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/pkgvault/lib/pkgkey"
)

// Names within a package directory. Part of the persisted layout:
// changing either orphans existing data.
const (
	descriptorFile = "package.json"
	artifactsDir   = "artifacts"
)

// MetadataOptions configures a [MetadataStore].
type MetadataOptions struct {
	// Strict rejects package names that are not already canonical
	// (see [pkgkey.ValidatePackageName]) with [ErrMalformedInput]
	// instead of silently rewriting them.
	Strict bool

	// Logger receives warnings about corrupt descriptors. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// MetadataStore persists one descriptor document per package. Reads
// and writes are individually atomic with respect to each other; it
// performs no read-modify-write coordination of its own (see
// [Coordinator]).
type MetadataStore struct {
	root   string
	strict bool
	logger *slog.Logger
}

// NewMetadataStore creates a MetadataStore rooted at the given
// directory, creating the directory if it does not exist.
func NewMetadataStore(root string, options MetadataOptions) (*MetadataStore, error) {
	if root == "" {
		return nil, fmt.Errorf("metadata store root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage root %s: %w", root, err)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MetadataStore{
		root:   filepath.Clean(root),
		strict: options.Strict,
		logger: logger,
	}, nil
}

// Root returns the storage root directory.
func (m *MetadataStore) Root() string {
	return m.root
}

// Key returns the storage key for a raw package name, or an error
// wrapping [ErrMalformedInput] if the name cannot be stored.
func (m *MetadataStore) Key(pkg string) (string, error) {
	key, _, err := m.resolve(pkg)
	return key, err
}

// resolve maps a raw package name to its key and package directory.
// Keys must be "name" or "@scope/name" so that no package directory
// nests inside another. The directory is always strictly inside the
// root.
func (m *MetadataStore) resolve(pkg string) (key, dir string, err error) {
	if m.strict {
		if err := pkgkey.ValidatePackageName(pkg); err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
	}

	key = pkgkey.PackageName(pkg)
	if err := pkgkey.ValidateKeyShape(key); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	dir = filepath.Join(m.root, filepath.FromSlash(key))

	relative, err := filepath.Rel(m.root, dir)
	if err != nil || relative == "." || relative == ".." || strings.HasPrefix(relative, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("%w: package name %q does not map to a package directory", ErrMalformedInput, pkg)
	}
	return key, dir, nil
}

// Ensure creates the package directory and its artifacts directory.
// Safe to call repeatedly and concurrently. Returns the package
// directory.
func (m *MetadataStore) Ensure(pkg string) (string, error) {
	_, dir, err := m.resolve(pkg)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Join(dir, artifactsDir), 0o755); err != nil {
		return "", storageError("creating package directory", dir, err)
	}
	return dir, nil
}

// Read returns the stored descriptor for pkg. It fails with
// [ErrNotFound] when no descriptor exists and with a
// [*CorruptDocumentError] when one exists but cannot be used. It never
// reports a storage failure.
func (m *MetadataStore) Read(pkg string) (Descriptor, error) {
	_, dir, err := m.resolve(pkg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return readDescriptor(pkg, filepath.Join(dir, descriptorFile))
}

// Lookup is Read with corruption folded into absence: it reports
// whether a usable descriptor exists. Corrupt documents are logged.
func (m *MetadataStore) Lookup(pkg string) (Descriptor, bool) {
	descriptor, err := m.Read(pkg)
	if err != nil {
		if errors.Is(err, ErrCorruptDocument) {
			m.logger.Warn("treating corrupt descriptor as absent", "package", pkg, "error", err)
		}
		return nil, false
	}
	return descriptor, true
}

func readDescriptor(pkg, path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, &CorruptDocumentError{Package: pkg, Path: path, Err: err}
	}

	var descriptor Descriptor
	if err := json.Unmarshal(data, &descriptor); err != nil {
		return nil, &CorruptDocumentError{Package: pkg, Path: path, Err: err}
	}
	if descriptor == nil {
		return nil, &CorruptDocumentError{Package: pkg, Path: path, Err: errors.New("document is null")}
	}
	return descriptor, nil
}

// Write atomically replaces the descriptor for pkg. The document is
// written to a uniquely named temporary file in the package directory,
// synced, and renamed over package.json, so concurrent readers observe
// either the previous complete document or the new one. Returns the
// descriptor path.
func (m *MetadataStore) Write(pkg string, descriptor Descriptor) (string, error) {
	if descriptor == nil {
		return "", fmt.Errorf("%w: descriptor for %q is nil", ErrMalformedInput, pkg)
	}
	data, err := json.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: encoding descriptor for %q: %v", ErrMalformedInput, pkg, err)
	}
	data = append(data, '\n')

	dir, err := m.Ensure(pkg)
	if err != nil {
		return "", err
	}

	finalPath := filepath.Join(dir, descriptorFile)
	if err := writeFileAtomic(dir, "."+descriptorFile+"-*.tmp", finalPath, func(file *os.File) error {
		_, err := file.Write(data)
		return err
	}); err != nil {
		return "", err
	}
	return finalPath, nil
}

// writeFileAtomic creates a temporary file in dir, fills it with
// write, syncs it and renames it to finalPath. The temporary file is
// removed on any failure.
func writeFileAtomic(dir, pattern, finalPath string, write func(*os.File) error) error {
	tmpFile, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return storageError("creating temp file", dir, err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := write(tmpFile); err != nil {
		tmpFile.Close()
		return storageError("writing", tmpPath, err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return storageError("syncing", tmpPath, err)
	}
	if err := tmpFile.Close(); err != nil {
		return storageError("closing", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return storageError("setting permissions on", tmpPath, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return storageError("renaming temp file to", finalPath, err)
	}

	success = true
	return nil
}

// ListAll returns every package in the store keyed by storage key.
// Packages without a usable descriptor are reported with the
// synthesized empty descriptor. Scope directories ("@scope") are
// descended into. A missing or unreadable root yields an empty map.
func (m *MetadataStore) ListAll() map[string]Descriptor {
	result := make(map[string]Descriptor)
	for _, key := range m.packageKeys() {
		descriptor, err := m.readKey(key)
		if err != nil {
			if errors.Is(err, ErrCorruptDocument) {
				m.logger.Warn("listing corrupt descriptor as empty", "package", key, "error", err)
			}
			descriptor = NewDescriptor(key)
		}
		result[key] = descriptor
	}
	return result
}

// ListStored returns only the packages that have a usable stored
// descriptor. Package directories holding nothing but artifacts, and
// corrupt descriptors, are left out.
func (m *MetadataStore) ListStored() map[string]Descriptor {
	result := make(map[string]Descriptor)
	for _, key := range m.packageKeys() {
		descriptor, err := m.readKey(key)
		if err != nil {
			if errors.Is(err, ErrCorruptDocument) {
				m.logger.Warn("skipping corrupt descriptor", "package", key, "error", err)
			}
			continue
		}
		result[key] = descriptor
	}
	return result
}

// packageKeys enumerates package directories, descending into scope
// directories.
func (m *MetadataStore) packageKeys() []string {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		m.logger.Debug("listing storage root failed", "root", m.root, "error", err)
		return nil
	}

	var keys []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, "@") {
			keys = append(keys, name)
			continue
		}
		scoped, err := os.ReadDir(filepath.Join(m.root, name))
		if err != nil {
			m.logger.Debug("listing scope directory failed", "scope", name, "error", err)
			continue
		}
		for _, child := range scoped {
			if child.IsDir() {
				keys = append(keys, name+"/"+child.Name())
			}
		}
	}
	return keys
}

func (m *MetadataStore) readKey(key string) (Descriptor, error) {
	return readDescriptor(key, filepath.Join(m.root, filepath.FromSlash(key), descriptorFile))
}
