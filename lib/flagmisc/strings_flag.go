// Copyright 2025 The Fleetrunner Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package flagmisc holds flag.Value implementations shared by the command
// line tools.
package flagmisc

import "strings"

// StringsValue accumulates repeated occurrences of a string flag.
type StringsValue []string

func (s *StringsValue) String() string {
	return strings.Join(*s, ", ")
}

func (s *StringsValue) Set(val string) error {
	*s = append(*s, val)
	return nil
}
