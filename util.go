// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

// roundup returns the smallest multiple of m that is >= n. m must be a
// power of two.
func roundup(n, m int) int {
	return (n + m - 1) &^ (m - 1)
}

// roundupPtr returns the smallest address >= p aligned to align, which
// must be a power of two.
func roundupPtr(p uintptr, align uintptr) uintptr {
	return (p + align - 1) &^ (align - 1)
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// mulOverflows reports whether a*b overflows an int on this platform.
func mulOverflows(a, b int) bool {
	if a == 0 || b == 0 {
		return false
	}
	p := a * b
	return p/b != a
}
