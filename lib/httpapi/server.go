// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/time/rate"

	"github.com/bureau-foundation/pkgvault/lib/registry"
)

// maxDescriptorBytes bounds a publish request body.
const maxDescriptorBytes = 16 << 20

// Config configures the HTTP handler.
type Config struct {
	// Metadata, Artifacts and Coordinator are the store. Required.
	Metadata    *registry.MetadataStore
	Artifacts   *registry.ArtifactStore
	Coordinator *registry.Coordinator

	// Token, when non-empty, is required as a bearer token on every
	// PUT request.
	Token string

	// AllowedOrigins receive CORS headers. "*" allows any origin.
	AllowedOrigins []string

	// RequestsPerSecond and Burst configure per-client rate
	// limiting. Zero RequestsPerSecond disables it.
	RequestsPerSecond float64
	Burst             int

	// MaxArtifactBytes bounds an upload body. Zero means unbounded.
	MaxArtifactBytes int64

	// Version is reported by the health endpoint.
	Version string

	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger
}

// Handler serves the registry routes.
type Handler struct {
	metadata    *registry.MetadataStore
	artifacts   *registry.ArtifactStore
	coordinator *registry.Coordinator

	maxArtifactBytes int64
	version          string
	logger           *slog.Logger
}

// New builds the complete middleware-wrapped handler.
func New(config Config) (http.Handler, error) {
	if config.Metadata == nil || config.Artifacts == nil || config.Coordinator == nil {
		return nil, errors.New("httpapi: Metadata, Artifacts and Coordinator are required")
	}
	if config.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("httpapi: negative request rate %v", config.RequestsPerSecond)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handler := &Handler{
		metadata:         config.Metadata,
		artifacts:        config.Artifacts,
		coordinator:      config.Coordinator,
		maxArtifactBytes: config.MaxArtifactBytes,
		version:          config.Version,
		logger:           logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /-/health", handler.HandleHealth)
	mux.HandleFunc("GET /-/all", handler.HandleListAll)
	mux.HandleFunc("GET /", handler.HandleGet)
	mux.HandleFunc("PUT /", handler.HandlePut)

	// Artifacts are already compressed archives; only JSON bodies
	// are worth gzipping.
	gzip, err := gzhttp.NewWrapper(
		gzhttp.MinSize(1024),
		gzhttp.ExceptContentTypes([]string{"application/octet-stream"}),
	)
	if err != nil {
		return nil, fmt.Errorf("httpapi: configuring gzip: %w", err)
	}

	var wrapped http.Handler = gzip(mux)
	wrapped = requireToken(config.Token, wrapped)
	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		wrapped = newClientLimiter(rate.Limit(config.RequestsPerSecond), burst).middleware(wrapped)
	}
	wrapped = allowOrigins(config.AllowedOrigins, wrapped)
	wrapped = securityHeaders(wrapped)
	wrapped = logRequests(logger, wrapped)
	return wrapped, nil
}
