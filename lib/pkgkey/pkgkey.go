// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pkgkey

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidName is returned (wrapped) by the validation functions when
// a raw name is not already a canonical key.
var ErrInvalidName = errors.New("invalid name")

// parentDirectory is removed from every input before filtering.
const parentDirectory = ".."

// MaxNameLength bounds package names and filenames accepted by the
// validation functions. The sanitizers themselves do not truncate.
const MaxNameLength = 214

// PackageName returns the storage key for a raw package name. Every
// ".." is removed, then every character outside [A-Za-z0-9@/._-] is
// replaced with "_". Scoped names ("@scope/name") keep their shape.
func PackageName(raw string) string {
	cleaned := strings.ReplaceAll(raw, parentDirectory, "")

	var builder strings.Builder
	builder.Grow(len(cleaned))
	for _, character := range cleaned {
		if isPackageNameRune(character) {
			builder.WriteRune(character)
		} else {
			builder.WriteByte('_')
		}
	}
	return builder.String()
}

// Filename returns the storage key for a raw artifact filename. Every
// ".." is removed, then both path separators are stripped, so a nested
// path such as "a/b/c.tgz" collapses into the flat name "abc.tgz".
// Stripping can join two dots into a new "..", so the two steps repeat
// until the name is stable.
func Filename(raw string) string {
	name := raw
	for {
		cleaned := strings.ReplaceAll(name, parentDirectory, "")
		cleaned = strings.Map(func(character rune) rune {
			if character == '/' || character == '\\' {
				return -1
			}
			return character
		}, cleaned)
		if cleaned == name {
			return cleaned
		}
		name = cleaned
	}
}

func isPackageNameRune(character rune) bool {
	switch {
	case character >= 'a' && character <= 'z':
		return true
	case character >= 'A' && character <= 'Z':
		return true
	case character >= '0' && character <= '9':
		return true
	}
	switch character {
	case '@', '/', '-', '_', '.':
		return true
	}
	return false
}

// ValidatePackageName reports whether raw is usable as-is: it must
// sanitize to itself, pass [ValidateKeyShape], and have no
// leading-dot segments.
func ValidatePackageName(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: package name is empty", ErrInvalidName)
	}
	if len(raw) > MaxNameLength {
		return fmt.Errorf("%w: package name is %d bytes, maximum is %d", ErrInvalidName, len(raw), MaxNameLength)
	}
	if PackageName(raw) != raw {
		return fmt.Errorf("%w: package name %q contains disallowed characters", ErrInvalidName, raw)
	}
	if err := ValidateKeyShape(raw); err != nil {
		return err
	}
	for _, segment := range strings.Split(raw, "/") {
		if strings.HasPrefix(segment, ".") {
			return fmt.Errorf("%w: package name %q has a dot-prefixed segment", ErrInvalidName, raw)
		}
	}
	return nil
}

// ValidateKeyShape reports whether a sanitized key has the shape
// "name" or "@scope/name". Keys of any other shape would nest one
// package directory inside another. Characters are not checked, so
// permissive stores keep rewriting them.
func ValidateKeyShape(key string) error {
	segments := strings.Split(key, "/")
	switch len(segments) {
	case 1:
		if strings.HasPrefix(key, "@") {
			return fmt.Errorf("%w: package name %q has a scope but no name", ErrInvalidName, key)
		}
	case 2:
		if !strings.HasPrefix(segments[0], "@") || len(segments[0]) < 2 {
			return fmt.Errorf("%w: package name %q must be \"name\" or \"@scope/name\"", ErrInvalidName, key)
		}
		if strings.Contains(segments[1], "@") {
			return fmt.Errorf("%w: package name %q has \"@\" outside the scope", ErrInvalidName, key)
		}
	default:
		return fmt.Errorf("%w: package name %q has too many path segments", ErrInvalidName, key)
	}
	for _, segment := range segments {
		if segment == "" || segment == "." {
			return fmt.Errorf("%w: package name %q has an empty or \".\" segment", ErrInvalidName, key)
		}
	}
	return nil
}

// ValidateFilename reports whether raw is usable as an artifact
// filename without rewriting.
func ValidateFilename(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: filename is empty", ErrInvalidName)
	}
	if len(raw) > MaxNameLength {
		return fmt.Errorf("%w: filename is %d bytes, maximum is %d", ErrInvalidName, len(raw), MaxNameLength)
	}
	if Filename(raw) != raw {
		return fmt.Errorf("%w: filename %q contains path components", ErrInvalidName, raw)
	}
	if strings.HasPrefix(raw, ".") {
		return fmt.Errorf("%w: filename %q starts with a dot", ErrInvalidName, raw)
	}
	return nil
}
