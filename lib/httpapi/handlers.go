// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/bureau-foundation/pkgvault/lib/registry"
)

// artifactSeparator splits a package path from an artifact filename.
const artifactSeparator = "/-/"

// HealthResponse is the body of GET /-/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	Packages  int    `json:"packages"`
	FreeBytes uint64 `json:"free_bytes,omitempty"`
}

// PublishResponse is the body of a successful descriptor publish.
type PublishResponse struct {
	OK       bool   `json:"ok"`
	Package  string `json:"package"`
	Versions int    `json:"versions"`
}

// UploadResponse is the body of a successful artifact upload. Server
// paths are deliberately absent.
type UploadResponse struct {
	OK       bool   `json:"ok"`
	Package  string `json:"package"`
	Filename string `json:"filename"`
	Version  string `json:"version"`
	Tarball  string `json:"tarball"`
	Size     int64  `json:"size"`
	Digest   string `json:"digest"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleHealth reports liveness, the number of stored packages and,
// where the platform supports it, free space under the storage root.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:   "ok",
		Version:  h.version,
		Packages: len(h.metadata.ListAll()),
	}
	if usage, err := registry.DiskUsage(h.metadata.Root()); err == nil {
		response.FreeBytes = usage.FreeBytes
	} else {
		h.logger.Debug("disk usage unavailable", "error", err)
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleListAll returns every descriptor keyed by package name.
func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.metadata.ListAll())
}

// HandleGet serves a descriptor or an artifact.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	pkg, filename, ok := splitPath(r.URL.Path)
	if !ok {
		h.sendError(w, http.StatusNotFound, "package name required")
		return
	}
	if filename != "" {
		h.serveArtifact(w, r, pkg, filename)
		return
	}

	descriptor, found := h.metadata.Lookup(pkg)
	if !found {
		h.sendError(w, http.StatusNotFound, "package not found")
		return
	}
	h.writeJSON(w, http.StatusOK, descriptor)
}

// HandlePut publishes a descriptor or uploads an artifact.
func (h *Handler) HandlePut(w http.ResponseWriter, r *http.Request) {
	pkg, filename, ok := splitPath(r.URL.Path)
	if !ok {
		h.sendError(w, http.StatusBadRequest, "package name required")
		return
	}
	if filename != "" {
		h.uploadArtifact(w, r, pkg, filename)
		return
	}
	h.publishDescriptor(w, r, pkg)
}

func (h *Handler) serveArtifact(w http.ResponseWriter, r *http.Request, pkg, filename string) {
	file, err := h.artifacts.Open(pkg, filename)
	if err != nil {
		h.sendStoreError(w, err)
		return
	}
	defer file.Close()
	h.serveOpenArtifact(w, r, file)
}

// serveOpenArtifact streams an open artifact. The ETag is computed
// from the same handle, so it always describes the bytes served.
func (h *Handler) serveOpenArtifact(w http.ResponseWriter, r *http.Request, file *os.File) {
	info, err := file.Stat()
	if err != nil {
		h.sendStoreError(w, err)
		return
	}

	digest, err := registry.ContentDigest(file)
	if err != nil {
		h.logger.Error("hashing artifact", "path", file.Name(), "error", err)
		h.sendError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		h.logger.Error("rewinding artifact", "path", file.Name(), "error", err)
		h.sendError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	w.Header().Set("ETag", `"`+digest+`"`)
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, info.Name(), info.ModTime(), file)
}

func (h *Handler) publishDescriptor(w http.ResponseWriter, r *http.Request, pkg string) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDescriptorBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.sendError(w, http.StatusRequestEntityTooLarge, "descriptor too large")
			return
		}
		h.sendError(w, http.StatusBadRequest, "reading request body: %v", err)
		return
	}

	descriptor, err := registry.ParseDescriptor(body)
	if err != nil {
		h.sendStoreError(w, err)
		return
	}

	if _, err := h.coordinator.Publish(pkg, descriptor); err != nil {
		h.sendStoreError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, PublishResponse{
		OK:       true,
		Package:  pkg,
		Versions: len(descriptor.Versions()),
	})
}

func (h *Handler) uploadArtifact(w http.ResponseWriter, r *http.Request, pkg, filename string) {
	var body io.Reader = r.Body
	if h.maxArtifactBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxArtifactBytes)
	}

	result, err := h.coordinator.Upload(registry.UploadRequest{
		Package:  pkg,
		Filename: filename,
		Body:     body,
		Version:  r.URL.Query().Get("version"),
	})
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.sendError(w, http.StatusRequestEntityTooLarge, "artifact exceeds %d bytes", tooLarge.Limit)
			return
		}
		h.sendStoreError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, UploadResponse{
		OK:       true,
		Package:  pkg,
		Filename: result.Filename,
		Version:  result.Version,
		Tarball:  result.Tarball,
		Size:     result.Artifact.Size,
		Digest:   result.Artifact.Digest,
	})
}

// splitPath separates a request path into a package name and an
// optional artifact filename. ok is false when no package is named.
func splitPath(path string) (pkg, filename string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/")
	pkg, filename, _ = strings.Cut(trimmed, artifactSeparator)
	pkg = strings.TrimSuffix(pkg, "/")
	if pkg == "" {
		return "", "", false
	}
	return pkg, filename, true
}

// sendStoreError maps a store error onto a status code. Malformed
// input is checked first: an upload with a bad name carries both the
// malformed and the storage classification.
func (h *Handler) sendStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrMalformedInput):
		h.sendError(w, http.StatusBadRequest, "%v", err)
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, registry.ErrCorruptDocument):
		h.sendError(w, http.StatusNotFound, "not found")
	default:
		h.logger.Error("storage failure", "error", err)
		h.sendError(w, http.StatusInternalServerError, "storage failure")
	}
}

func (h *Handler) sendError(w http.ResponseWriter, status int, format string, args ...any) {
	h.writeJSON(w, status, ErrorResponse{Error: fmt.Sprintf(format, args...)})
}

// writeJSON encodes value as JSON into w. If encoding fails (typically
// because the client disconnected), the error is logged.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		h.logger.Warn("writing JSON response", "error", err, "status", status)
	}
}
