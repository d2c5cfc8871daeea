// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package subprocess

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestRunCapturesOutput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := Runner{}
	if err := r.Run(context.Background(), []string{"echo", "hello"}, &stdout, &stderr); err != nil {
		t.Fatalf("Run failed: %s", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "hello" {
		t.Errorf("stdout = %q, want %q", got, "hello")
	}
}

func TestRunReportsExitError(t *testing.T) {
	r := Runner{}
	err := r.Run(context.Background(), []string{"false"}, nil, nil)
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Run returned %v, want an exec.ExitError", err)
	}
}

func TestRunKilledOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		r := Runner{}
		errs <- r.Run(ctx, []string{"sleep", "60"}, nil, nil)
	}()
	cancel()
	select {
	case err := <-errs:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after the context was canceled")
	}
}
