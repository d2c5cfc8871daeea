// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package color

import (
	"fmt"
	"testing"
)

func TestColors(t *testing.T) {
	c := NewColor(ColorAlways)
	colorFns := []Colorfn{c.Black, c.Red, c.Green, c.Yellow, c.Magenta, c.Cyan, c.White, c.DefaultColor}
	colorCodes := []ColorCode{BlackFg, RedFg, GreenFg, YellowFg, MagentaFg, CyanFg, WhiteFg, DefaultFg}

	for i, code := range colorCodes {
		str := fmt.Sprintf("test string: %d", i)
		want := fmt.Sprintf("%v%vm%v%v", escape, code, str, clear)
		if code == DefaultFg {
			want = str
		}
		if got := colorFns[i]("test string: %d", i); got != want {
			t.Errorf("color function for %v returned %q, want %q", code, got, want)
		}
		if got := c.WithColor(code, "test string: %d", i); got != want {
			t.Errorf("WithColor(%v) returned %q, want %q", code, got, want)
		}
	}
}

func TestColorsDisabled(t *testing.T) {
	c := NewColor(ColorNever)
	colorFns := []Colorfn{c.Black, c.Red, c.Green, c.Yellow, c.Magenta, c.Cyan, c.White, c.DefaultColor}
	colorCodes := []ColorCode{BlackFg, RedFg, GreenFg, YellowFg, MagentaFg, CyanFg, WhiteFg, DefaultFg}

	for i, code := range colorCodes {
		want := fmt.Sprintf("test string: %d", i)
		if got := colorFns[i]("test string: %d", i); got != want {
			t.Errorf("disabled color function for %v returned %q, want %q", code, got, want)
		}
		if got := c.WithColor(code, "test string: %d", i); got != want {
			t.Errorf("disabled WithColor(%v) returned %q, want %q", code, got, want)
		}
	}
}

func TestEnableColorFlagValue(t *testing.T) {
	var ec EnableColor
	for _, s := range []string{"never", "auto", "always"} {
		if err := ec.Set(s); err != nil {
			t.Errorf("Set(%q) failed: %s", s, err)
		}
		if got := ec.String(); got != s {
			t.Errorf("String() after Set(%q) = %q", s, got)
		}
	}
	if err := ec.Set("sometimes"); err == nil {
		t.Error("Set(\"sometimes\") should have failed")
	}
}
