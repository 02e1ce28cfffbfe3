// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpapi exposes a registry store over HTTP with an
// npm-registry-shaped route set:
//
//	GET  /-/health            liveness, package count, free disk space
//	GET  /-/all               every descriptor, keyed by package
//	GET  /<pkg>               one descriptor
//	PUT  /<pkg>               publish a descriptor verbatim
//	GET  /<pkg>/-/<file>      stream an artifact
//	PUT  /<pkg>/-/<file>      upload an artifact (?version= optional)
//
// Scoped packages may be addressed as /@scope/name or /@scope%2fname.
//
// The handler returned by [New] is wrapped in middleware, outermost
// first: request logging, security headers, CORS, per-client rate
// limiting, bearer-token authentication of mutating requests, and gzip
// compression of non-artifact responses.
//
// Store outcomes map to status codes at this boundary only: absent and
// corrupt descriptors are both 404 (corruption is logged), malformed
// input is 400, storage failures are 500.
package httpapi
