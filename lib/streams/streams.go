// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package streams resolves stdout and stderr through a context so that
// tests can capture what commands print.
package streams

import (
	"context"
	"io"
	"os"
)

type streamKeyType string

const (
	stdoutKey = streamKeyType("stdout")
	stderrKey = streamKeyType("stderr")
)

// Stdout returns os.Stdout or the mocked stdout writer associated with the
// given context.
func Stdout(ctx context.Context) io.Writer {
	return getStream(ctx, stdoutKey, os.Stdout)
}

// Stderr returns os.Stderr or the mocked stderr writer associated with the
// given context.
func Stderr(ctx context.Context) io.Writer {
	return getStream(ctx, stderrKey, os.Stderr)
}

func getStream(ctx context.Context, key streamKeyType, def *os.File) io.Writer {
	if s, ok := ctx.Value(key).(io.Writer); ok && s != nil {
		return s
	}
	return def
}

// ContextWithStdout overrides os.Stdout for all code that accesses stdout
// through streams.Stdout(ctx). Only for use in tests.
func ContextWithStdout(ctx context.Context, s io.Writer) context.Context {
	return context.WithValue(ctx, stdoutKey, s)
}

// ContextWithStderr overrides os.Stderr for all code that accesses stderr
// through streams.Stderr(ctx). Only for use in tests.
func ContextWithStderr(ctx context.Context, s io.Writer) context.Context {
	return context.WithValue(ctx, stderrKey, s)
}
