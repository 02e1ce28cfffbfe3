// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/pkgvault/lib/pkgkey"
)

// artifactTempPrefix marks in-flight uploads inside an artifacts
// directory. Sanitized filenames can also start with a dot, so
// listings match the full temp pattern rather than the dot alone.
const (
	artifactTempPrefix = ".upload-"
	artifactTempSuffix = ".tmp"
)

// ArtifactInfo describes a stored artifact.
type ArtifactInfo struct {
	// Package is the raw package name the artifact was stored under.
	Package string `json:"package"`

	// Filename is the sanitized name the artifact is stored as.
	Filename string `json:"filename"`

	// Path is the artifact's location on disk.
	Path string `json:"path"`

	// Size is the artifact length in bytes.
	Size int64 `json:"size"`

	// Digest is the hex BLAKE3-256 digest of the artifact bytes.
	Digest string `json:"digest"`
}

// ArtifactStore keeps binary artifacts inside each package's
// artifacts directory. It shares the storage root and the package
// namespace of its [MetadataStore].
//
// Bytes are streamed in both directions: Put copies from a reader and
// Open hands back a file, so artifact size is bounded by disk space
// rather than memory.
type ArtifactStore struct {
	metadata *MetadataStore
}

// NewArtifactStore returns an ArtifactStore that stores artifacts in
// the package directories managed by metadata.
func NewArtifactStore(metadata *MetadataStore) *ArtifactStore {
	return &ArtifactStore{metadata: metadata}
}

// filename sanitizes a raw artifact filename and rejects names that
// sanitize to nothing usable.
func (a *ArtifactStore) filename(raw string) (string, error) {
	if a.metadata.strict {
		if err := pkgkey.ValidateFilename(raw); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
	}
	name := pkgkey.Filename(raw)
	if name == "" || name == "." {
		return "", fmt.Errorf("%w: filename %q does not map to a file", ErrMalformedInput, raw)
	}
	return name, nil
}

// artifactPath returns the on-disk path of an artifact without
// touching the filesystem.
func (a *ArtifactStore) artifactPath(pkg, filename string) (string, string, error) {
	_, dir, err := a.metadata.resolve(pkg)
	if err != nil {
		return "", "", err
	}
	name, err := a.filename(filename)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(dir, artifactsDir, name), name, nil
}

// Put stores the bytes read from content as pkg's artifact filename,
// replacing any artifact already stored under the same sanitized
// name. The bytes go to a temporary file first and are renamed into
// place once complete, so readers never observe a partial artifact.
func (a *ArtifactStore) Put(pkg, filename string, content io.Reader) (*ArtifactInfo, error) {
	name, err := a.filename(filename)
	if err != nil {
		return nil, err
	}
	dir, err := a.metadata.Ensure(pkg)
	if err != nil {
		return nil, err
	}

	artifactDir := filepath.Join(dir, artifactsDir)
	finalPath := filepath.Join(artifactDir, name)

	hasher := blake3.New()
	var size int64
	err = writeFileAtomic(artifactDir, artifactTempPrefix+"*"+artifactTempSuffix, finalPath, func(file *os.File) error {
		written, err := io.Copy(io.MultiWriter(file, hasher), content)
		size = written
		return err
	})
	if err != nil {
		return nil, err
	}

	return &ArtifactInfo{
		Package:  pkg,
		Filename: name,
		Path:     finalPath,
		Size:     size,
		Digest:   hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Get returns the path of a stored artifact, or [ErrNotFound].
func (a *ArtifactStore) Get(pkg, filename string) (string, error) {
	path, _, err := a.artifactPath(pkg, filename)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", storageError("checking artifact", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return path, nil
}

// Open returns a read handle on a stored artifact, or [ErrNotFound].
// The caller closes the file.
func (a *ArtifactStore) Open(pkg, filename string) (*os.File, error) {
	path, err := a.Get(pkg, filename)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, storageError("opening artifact", path, err)
	}
	return file, nil
}

// Digest returns the hex BLAKE3-256 digest of a stored artifact.
func (a *ArtifactStore) Digest(pkg, filename string) (string, error) {
	file, err := a.Open(pkg, filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	digest, err := ContentDigest(file)
	if err != nil {
		return "", storageError("hashing artifact", file.Name(), err)
	}
	return digest, nil
}

// ContentDigest returns the hex BLAKE3-256 digest of everything read
// from r. Hashing a handle returned by [ArtifactStore.Open] describes
// exactly the bytes behind that handle, even if the artifact is
// replaced meanwhile.
func ContentDigest(r io.Reader) (string, error) {
	hasher := blake3.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// List returns the stored artifact filenames of pkg in directory
// order. In-flight uploads are not included. A package with no
// artifacts directory has no artifacts.
func (a *ArtifactStore) List(pkg string) ([]string, error) {
	_, dir, err := a.metadata.resolve(pkg)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(dir, artifactsDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, storageError("listing artifacts", dir, err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || isArtifactTemp(name) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func isArtifactTemp(name string) bool {
	return strings.HasPrefix(name, artifactTempPrefix) && strings.HasSuffix(name, artifactTempSuffix)
}
