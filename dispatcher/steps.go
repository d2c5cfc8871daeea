// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dispatcher

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"go.fleet.dev/fleetrunner/lib/logger"
)

// Step is a named unit of work in a run. Steps within a round share no
// state, so a run may execute them concurrently or one at a time with the
// same outcome.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// RunSteps executes the given steps, concurrently when concurrent is set
// and in order otherwise. A step error cancels the context shared by any
// still-running steps; the first error is returned, wrapped with the name
// of the step that produced it.
func RunSteps(ctx context.Context, steps []Step, concurrent bool) error {
	if concurrent {
		eg, ctx := errgroup.WithContext(ctx)
		for _, step := range steps {
			step := step
			eg.Go(func() error {
				if err := step.Run(ctx); err != nil {
					return fmt.Errorf("step %q failed: %w", step.Name, err)
				}
				return nil
			})
		}
		return eg.Wait()
	}
	for _, step := range steps {
		logger.Debugf(ctx, "running step %q", step.Name)
		if err := step.Run(ctx); err != nil {
			return fmt.Errorf("step %q failed: %w", step.Name, err)
		}
	}
	return nil
}
