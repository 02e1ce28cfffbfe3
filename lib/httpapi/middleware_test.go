// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestTokenRequiredForMutations(t *testing.T) {
	server := newTestServer(t, func(config *Config) { config.Token = "s3cret" })
	body := []byte(`{"name":"left-pad","versions":{}}`)

	tests := []struct {
		name          string
		authorization string
		want          int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic s3cret", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer s3cret", http.StatusCreated},
		{"lowercase scheme", "bearer s3cret", http.StatusCreated},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			headers := map[string]string{}
			if test.authorization != "" {
				headers["Authorization"] = test.authorization
			}
			recorder := server.do(t, http.MethodPut, "/left-pad", body, headers)
			if recorder.Code != test.want {
				t.Errorf("status = %d, want %d", recorder.Code, test.want)
			}
			if test.want == http.StatusUnauthorized && recorder.Header().Get("WWW-Authenticate") == "" {
				t.Error("401 without WWW-Authenticate")
			}
		})
	}

	// Reads stay open.
	if recorder := server.do(t, http.MethodGet, "/left-pad", nil, nil); recorder.Code != http.StatusOK {
		t.Errorf("GET without token: status = %d, want 200", recorder.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	server := newTestServer(t, nil)
	recorder := server.do(t, http.MethodGet, "/-/health", nil, nil)
	for header, want := range map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "no-referrer",
		"Content-Security-Policy": "default-src 'none'",
	} {
		if got := recorder.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestCORS(t *testing.T) {
	server := newTestServer(t, func(config *Config) {
		config.AllowedOrigins = []string{"https://app.example.com"}
	})

	recorder := server.do(t, http.MethodGet, "/-/health", nil, map[string]string{"Origin": "https://app.example.com"})
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("allowed origin header = %q", got)
	}

	recorder = server.do(t, http.MethodGet, "/-/health", nil, map[string]string{"Origin": "https://evil.example.com"})
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin received %q", got)
	}

	recorder = server.do(t, http.MethodOptions, "/left-pad", nil, map[string]string{
		"Origin":                        "https://app.example.com",
		"Access-Control-Request-Method": "PUT",
	})
	if recorder.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", recorder.Code)
	}
}

func TestCORSWildcard(t *testing.T) {
	server := newTestServer(t, func(config *Config) { config.AllowedOrigins = []string{"*"} })
	recorder := server.do(t, http.MethodGet, "/-/health", nil, map[string]string{"Origin": "https://anywhere.test"})
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "https://anywhere.test" {
		t.Errorf("wildcard origin header = %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	server := newTestServer(t, func(config *Config) {
		config.RequestsPerSecond = 0.001
		config.Burst = 2
	})

	for i := range 2 {
		if recorder := server.do(t, http.MethodGet, "/-/health", nil, nil); recorder.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, recorder.Code)
		}
	}
	recorder := server.do(t, http.MethodGet, "/-/health", nil, nil)
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status = %d, want 429", recorder.Code)
	}
	if recorder.Header().Get("Retry-After") == "" {
		t.Error("429 without Retry-After")
	}
}

func TestClientLimiterPerClientAndEviction(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := newClientLimiter(rate.Every(time.Hour), 1)
	limiter.now = func() time.Time { return now }

	if !limiter.allow("192.0.2.1") {
		t.Fatal("first request from client A denied")
	}
	if limiter.allow("192.0.2.1") {
		t.Error("second request from client A allowed")
	}
	if !limiter.allow("192.0.2.2") {
		t.Error("client B limited by client A's bucket")
	}

	now = now.Add(2 * idleLimiterTTL)
	limiter.allow("192.0.2.3")
	if _, ok := limiter.clients["192.0.2.1"]; ok {
		t.Error("idle client bucket was not evicted")
	}
}

func TestClientAddress(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.RemoteAddr = "198.51.100.7:52311"
	if got := clientAddress(request); got != "198.51.100.7" {
		t.Errorf("clientAddress = %q", got)
	}
	request.RemoteAddr = "not-a-host-port"
	if got := clientAddress(request); got != "not-a-host-port" {
		t.Errorf("clientAddress = %q", got)
	}
}

func TestRequestLogging(t *testing.T) {
	var buffer bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buffer, nil))
	server := newTestServer(t, func(config *Config) { config.Logger = logger })

	server.do(t, http.MethodGet, "/never-published", nil, nil)

	var record map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buffer.Bytes()), []byte("\n")) {
		var candidate map[string]any
		if err := json.Unmarshal(line, &candidate); err == nil && candidate["msg"] == "request" {
			record = candidate
		}
	}
	if record == nil {
		t.Fatalf("no request log line in %q", buffer.String())
	}
	if record["method"] != "GET" || record["path"] != "/never-published" || record["status"] != float64(404) {
		t.Errorf("request log = %v", record)
	}
}
