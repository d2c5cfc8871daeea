// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package fleet manages the pool of workers a sharded run executes on:
// discovery, health checking, blacklisting, and concurrent fan-out.
package fleet

import (
	"context"
	"errors"
	"io"
	"os/exec"

	"golang.org/x/crypto/ssh"

	"go.fleet.dev/fleetrunner/lib/osmisc"
	"go.fleet.dev/fleetrunner/lib/subprocess"
)

// Worker is one addressable execution unit: it can be health-checked, run
// a command, and receive files.
type Worker interface {
	// ID returns the worker's stable identifier (serial or address).
	ID() string

	// CheckHealth verifies the worker can accept work.
	CheckHealth(ctx context.Context) error

	// Run executes a command on the worker, streaming its output to the
	// given writers, until completion or context cancellation.
	Run(ctx context.Context, command []string, stdout, stderr io.Writer) error

	// PushFile transfers a local file to the worker.
	PushFile(ctx context.Context, src, dst string) error

	// Close releases any transport resources held by the worker.
	Close() error
}

// CommandExitCode extracts the exit code from an error returned by
// Worker.Run. The second return is false if the error does not describe a
// command that ran to completion: transport failures and cancellations
// carry no exit code.
func CommandExitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	var sshExitErr *ssh.ExitError
	if errors.As(err, &sshExitErr) {
		return sshExitErr.ExitStatus(), true
	}
	return 0, false
}

// LocalWorker executes commands as subprocesses of the current host. It
// exists for single-host fleets and for tests; the run semantics match the
// remote transports.
type LocalWorker struct {
	id     string
	runner subprocess.Runner
}

// NewLocalWorker returns a local worker with the given identifier; dir, if
// non-empty, is the working directory for its commands.
func NewLocalWorker(id, dir string) *LocalWorker {
	return &LocalWorker{id: id, runner: subprocess.Runner{Dir: dir}}
}

func (w *LocalWorker) ID() string { return w.id }

func (w *LocalWorker) CheckHealth(ctx context.Context) error {
	return w.runner.Run(ctx, []string{"true"}, nil, nil)
}

func (w *LocalWorker) Run(ctx context.Context, command []string, stdout, stderr io.Writer) error {
	return w.runner.Run(ctx, command, stdout, stderr)
}

func (w *LocalWorker) PushFile(_ context.Context, src, dst string) error {
	return osmisc.CopyFile(src, dst)
}

func (w *LocalWorker) Close() error { return nil }
