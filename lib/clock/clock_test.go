// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clock

import (
	"context"
	"testing"
	"time"
)

func TestNowUsesContextClock(t *testing.T) {
	fake := NewFakeClock()
	ctx := NewContext(context.Background(), fake)

	start := Now(ctx)
	fake.Advance(5 * time.Minute)
	if got := Now(ctx).Sub(start); got != 5*time.Minute {
		t.Errorf("Now() advanced by %s, want %s", got, 5*time.Minute)
	}
}

func TestNowFallsBackToRealTime(t *testing.T) {
	before := time.Now()
	got := Now(context.Background())
	after := time.Now()
	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %s, want a real timestamp between %s and %s", got, before, after)
	}
}

func TestAfterFiresOnAdvance(t *testing.T) {
	fake := NewFakeClock()
	ctx := NewContext(context.Background(), fake)

	ch := After(ctx, time.Minute)
	select {
	case <-ch:
		t.Fatal("timer fired before the clock advanced")
	default:
	}

	fake.Advance(2 * time.Minute)
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timer did not fire after the clock advanced past its deadline")
	}
}
