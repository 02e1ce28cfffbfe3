// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/im7mortal/kmutex"
)

// CoordinatorConfig configures a [Coordinator].
type CoordinatorConfig struct {
	// Metadata and Artifacts are the stores the coordinator drives.
	// Required.
	Metadata  *MetadataStore
	Artifacts *ArtifactStore

	// BaseURL is the scheme and host (optionally with a path prefix)
	// used to build dist.tarball locators, e.g.
	// "https://registry.example.com". Required.
	BaseURL string

	// Resolver picks the version an upload is bound to when the
	// request does not name one. Defaults to [LatestTagResolver].
	Resolver VersionResolver

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Coordinator binds uploaded artifacts to descriptor versions and
// publishes descriptors. It holds no persistent state. Every
// read-modify-write of a package's descriptor runs under a lock keyed
// by the package's storage key, so concurrent uploads and publishes to
// one package are applied one after another instead of overwriting
// each other.
//
// The lock is per process. Two processes sharing a root are not
// coordinated.
type Coordinator struct {
	metadata  *MetadataStore
	artifacts *ArtifactStore
	baseURL   string
	resolver  VersionResolver
	logger    *slog.Logger
	locks     *kmutex.Kmutex
}

// NewCoordinator validates config and returns a Coordinator.
func NewCoordinator(config CoordinatorConfig) (*Coordinator, error) {
	if config.Metadata == nil {
		return nil, errors.New("coordinator: Metadata is required")
	}
	if config.Artifacts == nil {
		return nil, errors.New("coordinator: Artifacts is required")
	}
	if config.BaseURL == "" {
		return nil, errors.New("coordinator: BaseURL is required")
	}
	resolver := config.Resolver
	if resolver == nil {
		resolver = LatestTagResolver
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		metadata:  config.Metadata,
		artifacts: config.Artifacts,
		baseURL:   config.BaseURL,
		resolver:  resolver,
		logger:    logger,
		locks:     kmutex.New(),
	}, nil
}

// UploadRequest is one artifact upload.
type UploadRequest struct {
	// Package is the raw package name.
	Package string

	// Filename is the raw artifact filename.
	Filename string

	// Body supplies the artifact bytes. It is streamed, not buffered.
	Body io.Reader

	// Version, when set, names the version to bind the artifact to
	// and bypasses the resolver.
	Version string
}

// UploadResult reports a completed upload.
type UploadResult struct {
	// Filename is the sanitized name the artifact was stored under.
	Filename string `json:"filename"`

	// Version is the descriptor version the artifact was bound to.
	Version string `json:"version"`

	// Tarball is the locator written to dist.tarball.
	Tarball string `json:"tarball"`

	// Artifact describes the stored bytes.
	Artifact *ArtifactInfo `json:"artifact"`

	// DescriptorPath is where the updated descriptor was written.
	DescriptorPath string `json:"descriptor_path"`
}

// Upload stores an artifact and records it in the package descriptor:
//
//  1. the artifact is written (replacing any artifact of the same name),
//  2. the current descriptor is loaded, or a fresh one synthesized,
//  3. the target version is request.Version or the resolver's choice,
//  4. versions[version].dist.tarball is pointed at the artifact,
//  5. the descriptor is written back atomically.
//
// Any failure is returned wrapped as a storage failure (malformed
// names keep [ErrMalformedInput] as well). A failure after step 1
// leaves the artifact stored without a descriptor reference; nothing
// is rolled back.
func (c *Coordinator) Upload(request UploadRequest) (*UploadResult, error) {
	key, err := c.metadata.Key(request.Package)
	if err != nil {
		return nil, uploadError(request, err)
	}

	unlock := c.lock(key)
	defer unlock()

	artifact, err := c.artifacts.Put(request.Package, request.Filename, request.Body)
	if err != nil {
		return nil, uploadError(request, err)
	}

	descriptor := c.currentDescriptor(request.Package)

	version := request.Version
	if version == "" {
		version = c.resolver(descriptor)
	}

	tarball := TarballURL(c.baseURL, request.Package, artifact.Filename)
	descriptor.SetTarball(version, tarball)

	descriptorPath, err := c.metadata.Write(request.Package, descriptor)
	if err != nil {
		return nil, uploadError(request, err)
	}

	c.logger.Info("artifact uploaded",
		"package", request.Package,
		"filename", artifact.Filename,
		"version", version,
		"size", artifact.Size,
	)

	return &UploadResult{
		Filename:       artifact.Filename,
		Version:        version,
		Tarball:        tarball,
		Artifact:       artifact,
		DescriptorPath: descriptorPath,
	}, nil
}

// currentDescriptor loads the descriptor an upload modifies. A corrupt
// descriptor is replaced by a fresh one, the same as a missing one;
// the corruption is logged so the lost document can be investigated.
func (c *Coordinator) currentDescriptor(pkg string) Descriptor {
	descriptor, err := c.metadata.Read(pkg)
	if err == nil {
		return descriptor
	}
	if errors.Is(err, ErrCorruptDocument) {
		c.logger.Warn("replacing corrupt descriptor during upload", "package", pkg, "error", err)
	}
	return NewDescriptor(pkg)
}

// Publish stores a descriptor verbatim, serialized with uploads to the
// same package. Returns the descriptor path.
func (c *Coordinator) Publish(pkg string, descriptor Descriptor) (string, error) {
	key, err := c.metadata.Key(pkg)
	if err != nil {
		return "", err
	}

	unlock := c.lock(key)
	defer unlock()

	path, err := c.metadata.Write(pkg, descriptor)
	if err != nil {
		return "", err
	}
	c.logger.Info("descriptor published", "package", pkg, "versions", len(descriptor.Versions()))
	return path, nil
}

func (c *Coordinator) lock(key string) func() {
	c.locks.Lock(key)
	return func() { c.locks.Unlock(key) }
}

// uploadError wraps err as a storage failure without hiding its
// original classification from errors.Is.
func uploadError(request UploadRequest, err error) error {
	if errors.Is(err, ErrStorage) {
		return fmt.Errorf("uploading %s for %q: %w", request.Filename, request.Package, err)
	}
	return fmt.Errorf("uploading %s for %q: %w: %w", request.Filename, request.Package, ErrStorage, err)
}
