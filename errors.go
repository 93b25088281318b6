// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

import "github.com/pkg/errors"

var (
	// ErrOutOfMemory is returned when the page provider cannot satisfy
	// a request (the OS mmap call failed).
	ErrOutOfMemory = errors.New("r3malloc: out of memory")

	// ErrInvalidAlignment is returned by AlignedAllocate when align is
	// not a power of two, or not a multiple of the pointer size.
	ErrInvalidAlignment = errors.New("r3malloc: invalid alignment")

	// ErrOverflow is returned by AllocateZero when n*size overflows.
	ErrOverflow = errors.New("r3malloc: allocation size overflow")
)

func wrapOOM(err error) error {
	return errors.Wrap(ErrOutOfMemory, err.Error())
}

// assert panics with a diagnostic message on internal invariant
// violations. The spec's error-handling policy for detected corruption is
// abort via assertion, not an attempt to recover.
func assert(cond bool, msg string) {
	if !cond {
		panic("r3malloc: invariant violated: " + msg)
	}
}
