// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package subprocess runs commands as local OS processes.
package subprocess

import (
	"context"
	"io"
	"os/exec"
	"syscall"

	"go.fleet.dev/fleetrunner/lib/logger"
)

// Runner runs commands as local subprocesses.
type Runner struct {
	// Dir is the working directory of the subprocesses; if unspecified,
	// that of the current process will be used.
	Dir string

	// Env is the environment of the subprocess, following the usual
	// convention of a list of strings of the form
	// "<environment variable name>=<value>".
	Env []string
}

// Run runs a command until completion or until the context is canceled, in
// which case the subprocess is killed so that no subprocesses it spun up
// are orphaned.
func (r *Runner) Run(ctx context.Context, command []string, stdout, stderr io.Writer) error {
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Dir = r.Dir
	cmd.Env = r.Env
	// Put the child in its own process group so the whole group, the
	// process and any of its children, can be killed together.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	logger.Debugf(ctx, "starting: %v", cmd.Args)
	if err := cmd.Start(); err != nil {
		return err
	}
	done := make(chan error)
	go func() {
		done <- cmd.Wait()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// Negating the process ID means interpret it as a process group
		// ID, killing the subprocess and all of its children.
		syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		return ctx.Err()
	}
}
