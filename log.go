// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

import (
	"fmt"
	"os"
)

// tracef is the teacher's own debug-logging idiom: a gate bool and a
// plain fmt.Fprintf to stderr, rather than pulling in a structured
// logging library for a handful of opt-in diagnostic lines.
func (c *Config) tracef(format string, args ...interface{}) {
	if c == nil || !c.logging {
		return
	}
	fmt.Fprintf(os.Stderr, "r3malloc: "+format+"\n", args...)
}
