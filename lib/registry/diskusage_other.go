// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux && !darwin

package registry

import (
	"errors"
	"runtime"
)

// Usage describes the filesystem holding the storage root.
type Usage struct {
	TotalBytes uint64 `json:"total_bytes"`
	FreeBytes  uint64 `json:"free_bytes"`
}

// DiskUsage is not implemented on this platform.
func DiskUsage(root string) (Usage, error) {
	return Usage{}, errors.New("disk usage is not supported on " + runtime.GOOS)
}
