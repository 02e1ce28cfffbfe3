// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pkgvault/lib/config"
	"github.com/bureau-foundation/pkgvault/lib/registry"
)

// storeFlags are the flags shared by every command that opens the
// store.
type storeFlags struct {
	configPath string
	root       string
	baseURL    string
	strict     bool
}

func (f *storeFlags) bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.configPath, "config", "", "config file (default: $PKGVAULT_CONFIG, else built-in defaults)")
	flagSet.StringVar(&f.root, "root", "", "storage root directory (overrides storage.root)")
	flagSet.StringVar(&f.baseURL, "base-url", "", "base URL for tarball locators (overrides server.base_url)")
	flagSet.BoolVar(&f.strict, "strict", false, "reject package names and filenames that need sanitizing")
}

// loadConfig resolves configuration from --config, PKGVAULT_CONFIG or
// the defaults, then applies flag overrides and validates.
func (f *storeFlags) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case f.configPath != "":
		cfg, err = config.LoadFile(f.configPath)
	case os.Getenv(config.ConfigEnvVar) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if f.root != "" {
		cfg.Storage.Root = f.root
	}
	if f.baseURL != "" {
		cfg.Server.BaseURL = f.baseURL
	}
	if f.strict {
		cfg.Storage.StrictNames = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// store bundles the registry components built from one configuration.
type store struct {
	config      *config.Config
	metadata    *registry.MetadataStore
	artifacts   *registry.ArtifactStore
	coordinator *registry.Coordinator
}

func (f *storeFlags) open(logger *slog.Logger) (*store, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	return openStore(cfg, logger)
}

func openStore(cfg *config.Config, logger *slog.Logger) (*store, error) {
	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}
	metadata, err := registry.NewMetadataStore(cfg.Storage.Root, registry.MetadataOptions{
		Strict: cfg.Storage.StrictNames,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	artifacts := registry.NewArtifactStore(metadata)
	coordinator, err := registry.NewCoordinator(registry.CoordinatorConfig{
		Metadata:  metadata,
		Artifacts: artifacts,
		BaseURL:   cfg.Server.BaseURL,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return &store{
		config:      cfg,
		metadata:    metadata,
		artifacts:   artifacts,
		coordinator: coordinator,
	}, nil
}
