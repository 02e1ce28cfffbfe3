// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the descriptor or artifact does not exist.
	ErrNotFound = errors.New("not found")

	// ErrMalformedInput means the caller supplied something the store
	// refuses to persist: a descriptor that is not a structured
	// document, or a name that sanitizes to nothing usable. Always
	// returned before any filesystem mutation.
	ErrMalformedInput = errors.New("malformed input")

	// ErrStorage means an underlying filesystem operation failed.
	ErrStorage = errors.New("storage failure")

	// ErrCorruptDocument means a descriptor file exists but could not
	// be read or parsed.
	ErrCorruptDocument = errors.New("corrupt document")
)

// StorageError records a failed filesystem operation on the write path.
// It matches [ErrStorage] with errors.Is and unwraps to the underlying
// error.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// CorruptDocumentError is returned by [MetadataStore.Read] when a
// descriptor file is present but unusable.
type CorruptDocumentError struct {
	Package string
	Path    string
	Err     error
}

func (e *CorruptDocumentError) Error() string {
	return fmt.Sprintf("descriptor for %q at %s is corrupt: %v", e.Package, e.Path, e.Err)
}

func (e *CorruptDocumentError) Unwrap() error { return e.Err }

func (e *CorruptDocumentError) Is(target error) bool { return target == ErrCorruptDocument }

func storageError(op, path string, err error) error {
	return &StorageError{Op: op, Path: path, Err: err}
}
