// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

// recorder captures Fatalf instead of stopping the test.
type recorder struct {
	message string
}

func (r *recorder) Helper() {}

func (r *recorder) Fatalf(format string, args ...any) {
	r.message = fmt.Sprintf(format, args...)
	panic(r)
}

func capture(f func(t TestingT)) (message string) {
	r := &recorder{}
	defer func() {
		if recovered := recover(); recovered != nil {
			if recovered != r {
				panic(recovered)
			}
			message = r.message
		}
	}()
	f(r)
	return ""
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 7
	if got := RequireReceive(t, ch, time.Second, "value"); got != 7 {
		t.Errorf("RequireReceive = %d, want 7", got)
	}

	message := capture(func(r TestingT) {
		RequireReceive(r, make(chan int), time.Millisecond, "waiting for %s", "upload")
	})
	if !strings.Contains(message, "timed out") || !strings.Contains(message, "waiting for upload") {
		t.Errorf("timeout message = %q", message)
	}

	closed := make(chan int)
	close(closed)
	message = capture(func(r TestingT) {
		RequireReceive(r, closed, time.Second)
	})
	if !strings.Contains(message, "channel closed") {
		t.Errorf("closed message = %q", message)
	}
}

func TestRequireClosed(t *testing.T) {
	ready := make(chan struct{})
	close(ready)
	RequireClosed(t, ready, time.Second, "ready")

	message := capture(func(r TestingT) {
		RequireClosed(r, make(chan struct{}), time.Millisecond, "server ready")
	})
	if !strings.Contains(message, "server ready") {
		t.Errorf("timeout message = %q", message)
	}
}
