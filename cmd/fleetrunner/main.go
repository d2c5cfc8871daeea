// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"syscall"

	"github.com/google/subcommands"

	"go.fleet.dev/fleetrunner/lib/color"
	"go.fleet.dev/fleetrunner/lib/command"
	"go.fleet.dev/fleetrunner/lib/logger"
)

var (
	colors = color.ColorAuto
	level  = logger.InfoLevel
)

func init() {
	flag.Var(&colors, "color", "use color in output, can be never, auto, always")
	flag.Var(&level, "level", "output verbosity, can be fatal, error, warning, info, debug or trace")
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&RunCommand{}, "")
	subcommands.Register(&PrintOneCommand{}, "")
	subcommands.Register(&PrintAllCommand{}, "")

	flag.Parse()

	l := logger.NewLogger(level, color.NewColor(colors), os.Stdout, os.Stderr, "fleetrunner ")
	l.SetFlags(log.Ltime | log.Lmicroseconds | log.Lshortfile)
	ctx := logger.WithLogger(context.Background(), l)

	ctx = command.CancelOnSignals(ctx, syscall.SIGTERM, syscall.SIGINT)
	os.Exit(int(subcommands.Execute(ctx)))
}
