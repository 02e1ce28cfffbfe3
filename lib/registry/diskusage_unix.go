// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux || darwin

package registry

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Usage describes the filesystem holding the storage root.
type Usage struct {
	TotalBytes uint64 `json:"total_bytes"`
	FreeBytes  uint64 `json:"free_bytes"`
}

// DiskUsage reports capacity and space available to unprivileged
// writers on the filesystem containing root.
func DiskUsage(root string) (Usage, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(root, &stat); err != nil {
		return Usage{}, fmt.Errorf("statfs %s: %w", root, err)
	}
	blockSize := uint64(stat.Bsize)
	return Usage{
		TotalBytes: uint64(stat.Blocks) * blockSize,
		FreeBytes:  uint64(stat.Bavail) * blockSize,
	}, nil
}
