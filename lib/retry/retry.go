// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package retry

import (
	"context"

	"go.fleet.dev/fleetrunner/lib/clock"
)

// Retry the operation using the provided back-off policy until it succeeds
// or the context is canceled. If c is non-nil, it receives the error from
// each failed attempt before the next one starts.
func Retry(ctx context.Context, b Backoff, f func() error, c chan<- error) error {
	var err error
	b.Reset()
	for {
		if err = f(); err == nil {
			return nil
		}
		next := b.Next()
		if next == Stop {
			return err
		}
		if c != nil {
			c <- err
		}
		select {
		case <-ctx.Done():
			return err
		case <-clock.After(ctx, next):
		}
	}
}
