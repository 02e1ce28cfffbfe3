// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/pkgvault/lib/registry"
)

const testBaseURL = "http://registry.test"

type testServer struct {
	handler   http.Handler
	metadata  *registry.MetadataStore
	artifacts *registry.ArtifactStore
}

func newTestServer(t *testing.T, mutate func(*Config)) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	metadata, err := registry.NewMetadataStore(filepath.Join(t.TempDir(), "storage"), registry.MetadataOptions{Logger: logger})
	if err != nil {
		t.Fatalf("NewMetadataStore: %v", err)
	}
	artifacts := registry.NewArtifactStore(metadata)
	coordinator, err := registry.NewCoordinator(registry.CoordinatorConfig{
		Metadata:  metadata,
		Artifacts: artifacts,
		BaseURL:   testBaseURL,
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}

	config := Config{
		Metadata:    metadata,
		Artifacts:   artifacts,
		Coordinator: coordinator,
		Version:     "test",
		Logger:      logger,
	}
	if mutate != nil {
		mutate(&config)
	}
	handler, err := New(config)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testServer{handler: handler, metadata: metadata, artifacts: artifacts}
}

func (s *testServer) do(t *testing.T, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	request := httptest.NewRequest(method, target, reader)
	for key, value := range headers {
		request.Header.Set(key, value)
	}
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeJSON(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("decoding response %q: %v", recorder.Body.String(), err)
	}
}

func TestNewRequiresStores(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New(Config{}) = nil error, want error")
	}
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, nil)
	server.do(t, http.MethodPut, "/left-pad", []byte(`{"name":"left-pad","versions":{}}`), nil)

	recorder := server.do(t, http.MethodGet, "/-/health", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	var health HealthResponse
	decodeJSON(t, recorder, &health)
	if health.Status != "ok" || health.Packages != 1 || health.Version != "test" {
		t.Errorf("health = %+v", health)
	}
}

func TestPublishAndGetDescriptor(t *testing.T) {
	server := newTestServer(t, nil)
	document := `{"name":"left-pad","dist-tags":{"latest":"1.3.0"},"versions":{"1.3.0":{"description":"pads"}}}`

	recorder := server.do(t, http.MethodPut, "/left-pad", []byte(document), nil)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("PUT status = %d, want 201 (%s)", recorder.Code, recorder.Body)
	}
	var published PublishResponse
	decodeJSON(t, recorder, &published)
	if !published.OK || published.Versions != 1 {
		t.Errorf("publish response = %+v", published)
	}

	recorder = server.do(t, http.MethodGet, "/left-pad", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", recorder.Code)
	}
	if got := recorder.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	var descriptor registry.Descriptor
	decodeJSON(t, recorder, &descriptor)
	if latest, _ := descriptor.Latest(); latest != "1.3.0" {
		t.Errorf("latest = %q, want 1.3.0", latest)
	}
}

func TestGetMissingDescriptor(t *testing.T) {
	server := newTestServer(t, nil)
	recorder := server.do(t, http.MethodGet, "/never-published", nil, nil)
	if recorder.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", recorder.Code)
	}
	var response ErrorResponse
	decodeJSON(t, recorder, &response)
	if response.Error == "" {
		t.Error("error body is empty")
	}
}

func TestCorruptDescriptorIsNotFound(t *testing.T) {
	server := newTestServer(t, nil)
	dir, err := server.metadata.Ensure("broken")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte("{truncated"), 0o644); err != nil {
		t.Fatal(err)
	}

	recorder := server.do(t, http.MethodGet, "/broken", nil, nil)
	if recorder.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", recorder.Code)
	}
}

func TestPublishRejectsNonObject(t *testing.T) {
	server := newTestServer(t, nil)
	for _, body := range []string{`[1,2,3]`, `"text"`, `not json`} {
		recorder := server.do(t, http.MethodPut, "/left-pad", []byte(body), nil)
		if recorder.Code != http.StatusBadRequest {
			t.Errorf("PUT %s: status = %d, want 400", body, recorder.Code)
		}
	}
	if _, found := server.metadata.Lookup("left-pad"); found {
		t.Error("rejected publish created a descriptor")
	}
}

func TestScopedPackageEncodings(t *testing.T) {
	server := newTestServer(t, nil)
	recorder := server.do(t, http.MethodPut, "/@scope%2fwidget", []byte(`{"name":"@scope/widget","versions":{}}`), nil)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("PUT status = %d (%s)", recorder.Code, recorder.Body)
	}

	for _, target := range []string{"/@scope/widget", "/@scope%2fwidget", "/@scope%2Fwidget"} {
		recorder := server.do(t, http.MethodGet, target, nil, nil)
		if recorder.Code != http.StatusOK {
			t.Errorf("GET %s: status = %d, want 200", target, recorder.Code)
		}
	}
}

func TestUploadAndDownloadArtifact(t *testing.T) {
	server := newTestServer(t, nil)
	content := []byte("tarball bytes for left-pad")

	recorder := server.do(t, http.MethodPut, "/left-pad/-/left-pad-1.0.0.tgz", content, nil)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("upload status = %d (%s)", recorder.Code, recorder.Body)
	}
	var uploaded UploadResponse
	decodeJSON(t, recorder, &uploaded)
	if uploaded.Version != "0.0.0" {
		t.Errorf("version = %q, want 0.0.0", uploaded.Version)
	}
	if !strings.HasSuffix(uploaded.Tarball, "/left-pad/-/left-pad-1.0.0.tgz") {
		t.Errorf("tarball = %q", uploaded.Tarball)
	}
	if uploaded.Size != int64(len(content)) || uploaded.Digest == "" {
		t.Errorf("upload response = %+v", uploaded)
	}
	if strings.Contains(recorder.Body.String(), server.metadata.Root()) {
		t.Error("upload response leaks a server path")
	}

	recorder = server.do(t, http.MethodGet, "/left-pad/-/left-pad-1.0.0.tgz", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("download status = %d", recorder.Code)
	}
	if !bytes.Equal(recorder.Body.Bytes(), content) {
		t.Errorf("downloaded %q, want %q", recorder.Body.Bytes(), content)
	}
	if got := recorder.Header().Get("Content-Type"); got != "application/octet-stream" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := recorder.Header().Get("ETag"); got != `"`+uploaded.Digest+`"` {
		t.Errorf("ETag = %q, want digest %q", got, uploaded.Digest)
	}
}

func TestUploadExplicitVersion(t *testing.T) {
	server := newTestServer(t, nil)
	recorder := server.do(t, http.MethodPut, "/left-pad/-/left-pad-2.0.0.tgz?version=2.0.0", []byte("x"), nil)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", recorder.Code, recorder.Body)
	}
	descriptor, found := server.metadata.Lookup("left-pad")
	if !found {
		t.Fatal("descriptor not written")
	}
	if _, ok := descriptor.Tarball("2.0.0"); !ok {
		t.Errorf("versions[2.0.0] has no tarball: %v", descriptor)
	}
}

func TestArtifactConditionalAndRange(t *testing.T) {
	server := newTestServer(t, nil)
	server.do(t, http.MethodPut, "/left-pad/-/a.tgz", []byte("0123456789"), nil)

	recorder := server.do(t, http.MethodGet, "/left-pad/-/a.tgz", nil, map[string]string{"Range": "bytes=2-5"})
	if recorder.Code != http.StatusPartialContent {
		t.Fatalf("range status = %d, want 206", recorder.Code)
	}
	if recorder.Body.String() != "2345" {
		t.Errorf("range body = %q, want 2345", recorder.Body.String())
	}

	etag := recorder.Header().Get("ETag")
	recorder = server.do(t, http.MethodGet, "/left-pad/-/a.tgz", nil, map[string]string{"If-None-Match": etag})
	if recorder.Code != http.StatusNotModified {
		t.Errorf("conditional status = %d, want 304", recorder.Code)
	}
}

func TestMissingArtifact(t *testing.T) {
	server := newTestServer(t, nil)
	recorder := server.do(t, http.MethodGet, "/left-pad/-/missing.tgz", nil, nil)
	if recorder.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", recorder.Code)
	}
}

func TestTraversalStaysInsideRoot(t *testing.T) {
	server := newTestServer(t, nil)
	recorder := server.do(t, http.MethodPut, "/evil/-/..%2f..%2fescape.txt", []byte("payload"), nil)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", recorder.Code, recorder.Body)
	}
	outside := filepath.Join(filepath.Dir(server.metadata.Root()), "escape.txt")
	if _, err := os.Stat(outside); err == nil {
		t.Fatalf("upload escaped the storage root to %s", outside)
	}
	var uploaded UploadResponse
	decodeJSON(t, recorder, &uploaded)
	if strings.ContainsAny(uploaded.Filename, `/\`) || strings.Contains(uploaded.Filename, "..") {
		t.Errorf("stored filename %q is not flat", uploaded.Filename)
	}
}

func TestUploadTooLarge(t *testing.T) {
	server := newTestServer(t, func(config *Config) { config.MaxArtifactBytes = 4 })
	recorder := server.do(t, http.MethodPut, "/left-pad/-/big.tgz", []byte("way more than four bytes"), nil)
	if recorder.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", recorder.Code)
	}
}

func TestListAll(t *testing.T) {
	server := newTestServer(t, nil)
	server.do(t, http.MethodPut, "/a", []byte(`{"name":"a","versions":{}}`), nil)
	server.do(t, http.MethodPut, "/@scope/b", []byte(`{"name":"@scope/b","versions":{}}`), nil)

	recorder := server.do(t, http.MethodGet, "/-/all", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	var all map[string]registry.Descriptor
	decodeJSON(t, recorder, &all)
	for _, name := range []string{"a", "@scope/b"} {
		if _, ok := all[name]; !ok {
			t.Errorf("listing missing %q: %v", name, all)
		}
	}
}

func TestGzipSkipsArtifacts(t *testing.T) {
	server := newTestServer(t, nil)
	description := strings.Repeat("long description ", 200)
	server.do(t, http.MethodPut, "/left-pad", []byte(`{"name":"left-pad","versions":{},"description":"`+description+`"}`), nil)
	server.do(t, http.MethodPut, "/left-pad/-/a.tgz", []byte(description), nil)

	gzipHeader := map[string]string{"Accept-Encoding": "gzip"}

	recorder := server.do(t, http.MethodGet, "/left-pad", nil, gzipHeader)
	if recorder.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("descriptor response not gzipped: %v", recorder.Header())
	}
	reader, err := gzip.NewReader(recorder.Body)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(decoded, []byte(`"left-pad"`)) {
		t.Errorf("decompressed body = %q", decoded)
	}

	recorder = server.do(t, http.MethodGet, "/left-pad/-/a.tgz", nil, gzipHeader)
	if recorder.Header().Get("Content-Encoding") != "" {
		t.Errorf("artifact response was compressed: %v", recorder.Header())
	}
	if recorder.Body.String() != description {
		t.Error("artifact body changed")
	}
}

func TestMissingPackageName(t *testing.T) {
	server := newTestServer(t, nil)
	if recorder := server.do(t, http.MethodGet, "/", nil, nil); recorder.Code != http.StatusNotFound {
		t.Errorf("GET / status = %d, want 404", recorder.Code)
	}
	if recorder := server.do(t, http.MethodPut, "/", []byte(`{}`), nil); recorder.Code != http.StatusBadRequest {
		t.Errorf("PUT / status = %d, want 400", recorder.Code)
	}
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path     string
		pkg      string
		filename string
		ok       bool
	}{
		{"/left-pad", "left-pad", "", true},
		{"/left-pad/", "left-pad", "", true},
		{"/@scope/name", "@scope/name", "", true},
		{"/left-pad/-/left-pad-1.0.0.tgz", "left-pad", "left-pad-1.0.0.tgz", true},
		{"/@scope/name/-/name-1.0.0.tgz", "@scope/name", "name-1.0.0.tgz", true},
		{"/", "", "", false},
	}
	for _, test := range tests {
		pkg, filename, ok := splitPath(test.path)
		if pkg != test.pkg || filename != test.filename || ok != test.ok {
			t.Errorf("splitPath(%q) = (%q, %q, %v), want (%q, %q, %v)",
				test.path, pkg, filename, ok, test.pkg, test.filename, test.ok)
		}
	}
}

func TestStrictModeRejectsNonCanonicalNames(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metadata, err := registry.NewMetadataStore(t.TempDir(), registry.MetadataOptions{Strict: true, Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	artifacts := registry.NewArtifactStore(metadata)
	coordinator, err := registry.NewCoordinator(registry.CoordinatorConfig{
		Metadata: metadata, Artifacts: artifacts, BaseURL: testBaseURL, Logger: logger,
	})
	if err != nil {
		t.Fatal(err)
	}
	handler, err := New(Config{Metadata: metadata, Artifacts: artifacts, Coordinator: coordinator, Logger: logger})
	if err != nil {
		t.Fatal(err)
	}

	request := httptest.NewRequest(http.MethodPut, "/bad%20name", strings.NewReader(`{"name":"bad name"}`))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", recorder.Code)
	}
}

func TestArtifactETagDescribesServedBytes(t *testing.T) {
	server := newTestServer(t, nil)

	if _, err := server.artifacts.Put("left-pad", "a.tgz", strings.NewReader("old")); err != nil {
		t.Fatal(err)
	}
	file, err := server.artifacts.Open("left-pad", "a.tgz")
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	// An upload replaces the artifact while the download holds the
	// old handle.
	if _, err := server.artifacts.Put("left-pad", "a.tgz", strings.NewReader("new")); err != nil {
		t.Fatal(err)
	}

	handler := &Handler{
		metadata:  server.metadata,
		artifacts: server.artifacts,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	recorder := httptest.NewRecorder()
	handler.serveOpenArtifact(recorder, httptest.NewRequest(http.MethodGet, "/left-pad/-/a.tgz", nil), file)

	if recorder.Body.String() != "old" {
		t.Fatalf("body = %q, want %q", recorder.Body.String(), "old")
	}
	oldDigest, err := registry.ContentDigest(strings.NewReader("old"))
	if err != nil {
		t.Fatal(err)
	}
	if got := recorder.Header().Get("ETag"); got != `"`+oldDigest+`"` {
		t.Errorf("ETag = %s, want digest of the served bytes %q", got, oldDigest)
	}

	recorder = server.do(t, http.MethodGet, "/left-pad/-/a.tgz", nil, nil)
	if recorder.Body.String() != "new" {
		t.Errorf("fresh download body = %q, want %q", recorder.Body.String(), "new")
	}
	if recorder.Header().Get("ETag") == `"`+oldDigest+`"` {
		t.Error("fresh download kept the replaced artifact's ETag")
	}
}

func TestNestedPackageNamesRejected(t *testing.T) {
	server := newTestServer(t, nil)

	recorder := server.do(t, http.MethodPut, "/foo/bar", []byte(`{"name":"foo/bar"}`), nil)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("PUT /foo/bar status = %d, want 400", recorder.Code)
	}
	recorder = server.do(t, http.MethodPut, "/foo/bar/-/x.tgz", []byte("x"), nil)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("PUT /foo/bar/-/x.tgz status = %d, want 400", recorder.Code)
	}
	recorder = server.do(t, http.MethodGet, "/foo/bar", nil, nil)
	if recorder.Code != http.StatusNotFound {
		t.Errorf("GET /foo/bar status = %d, want 404", recorder.Code)
	}
}
