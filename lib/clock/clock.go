// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package clock exposes the current time through a context so that tests
// can substitute a fake clock.
package clock

import (
	"context"
	"time"
)

type clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type clockKeyType string

const clockKey = clockKeyType("clock")

// Now returns the current time for the clock associated with the given
// context, or the real current time if the context carries no clock. Code
// whose timing behavior needs test coverage should call clock.Now() rather
// than time.Now().
func Now(ctx context.Context) time.Time {
	if c, ok := ctx.Value(clockKey).(clock); ok && c != nil {
		return c.Now()
	}
	return time.Now()
}

// After returns time.After() or the equivalent for the clock associated
// with the given context.
func After(ctx context.Context, d time.Duration) <-chan time.Time {
	if c, ok := ctx.Value(clockKey).(clock); ok && c != nil {
		return c.After(d)
	}
	return time.After(d)
}

// NewContext returns a new context with the given clock attached.
//
// Production code should not attach a clock; real time is the default.
func NewContext(ctx context.Context, c clock) context.Context {
	return context.WithValue(ctx, clockKey, c)
}

type timer struct {
	endTime time.Time
	ch      chan time.Time
}

func (t *timer) advanceTo(newTime time.Time) {
	if newTime.After(t.endTime) {
		t.ch <- newTime
	}
}

// FakeClock is a manually advanced clock for tests.
type FakeClock struct {
	now         time.Time
	timer       *timer
	afterCalled chan struct{}
}

func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Now(), afterCalled: make(chan struct{}, 1)}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	t := &timer{c.now.Add(d), make(chan time.Time, 1)}
	c.timer = t
	if len(c.afterCalled) == 0 {
		c.afterCalled <- struct{}{}
	}
	return t.ch
}

// Advance moves the clock forward by d, firing any timer whose deadline
// passes.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
	if c.timer != nil {
		c.timer.advanceTo(c.now)
	}
}

// AfterCalledChan returns a channel that receives once the clock's timer
// has been set by a call to After().
func (c *FakeClock) AfterCalledChan() chan struct{} {
	return c.afterCalled
}
