// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dispatcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRunStepsSequentialOrder(t *testing.T) {
	ctx := context.Background()
	var order []string
	steps := []Step{
		{Name: "first", Run: func(ctx context.Context) error {
			order = append(order, "first")
			return nil
		}},
		{Name: "second", Run: func(ctx context.Context) error {
			order = append(order, "second")
			return nil
		}},
		{Name: "third", Run: func(ctx context.Context) error {
			order = append(order, "third")
			return nil
		}},
	}
	if err := RunSteps(ctx, steps, false); err != nil {
		t.Fatalf("RunSteps() failed: %s", err)
	}
	if diff := cmp.Diff([]string{"first", "second", "third"}, order); diff != "" {
		t.Errorf("unexpected step order (-want +got):\n%s", diff)
	}
}

func TestRunStepsSequentialStopsAtFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("step exploded")
	ran := false
	steps := []Step{
		{Name: "failing", Run: func(ctx context.Context) error { return boom }},
		{Name: "never", Run: func(ctx context.Context) error {
			ran = true
			return nil
		}},
	}
	err := RunSteps(ctx, steps, false)
	if !errors.Is(err, boom) {
		t.Errorf("RunSteps() returned %v, want %v", err, boom)
	}
	if !strings.Contains(err.Error(), `step "failing"`) {
		t.Errorf("error does not name the failing step: %s", err)
	}
	if ran {
		t.Errorf("step after the failure still ran")
	}
}

func TestRunStepsConcurrentRunsAll(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	ran := make(map[string]bool)
	var steps []Step
	for _, name := range []string{"a", "b", "c", "d"} {
		name := name
		steps = append(steps, Step{Name: name, Run: func(ctx context.Context) error {
			mu.Lock()
			ran[name] = true
			mu.Unlock()
			return nil
		}})
	}
	if err := RunSteps(ctx, steps, true); err != nil {
		t.Fatalf("RunSteps() failed: %s", err)
	}
	if len(ran) != 4 {
		t.Errorf("ran %d steps, want 4", len(ran))
	}
}

func TestRunStepsConcurrentCancelsPeersOnFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("step exploded")
	release := make(chan struct{})
	canceled := make(chan struct{})
	steps := []Step{
		{Name: "failing", Run: func(ctx context.Context) error {
			<-release
			return boom
		}},
		{Name: "waiting", Run: func(ctx context.Context) error {
			close(release)
			<-ctx.Done()
			close(canceled)
			return ctx.Err()
		}},
	}
	err := RunSteps(ctx, steps, true)
	if !errors.Is(err, boom) {
		t.Errorf("RunSteps() returned %v, want %v", err, boom)
	}
	<-canceled
}
