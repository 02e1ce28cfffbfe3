// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the process scaffolding shared by pkgvault's
// long-running commands:
//
//   - [HTTPServer]: binds a TCP listener, serves an http.Handler, and
//     drains in-flight requests on context cancellation.
//   - [NewLogger]: the structured JSON logger used by the server.
//
// Commands compose these in their own run functions rather than
// subclassing a framework. The package provides building blocks, not
// a runtime.
package service
