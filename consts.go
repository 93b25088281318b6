// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

import "unsafe"

// Layout constants, ported from original_source/src/defines.rs. r3malloc
// only targets 64-bit platforms, so pointer size is fixed rather than
// probed at runtime.
const (
	lgPage   = 12
	pageSize = 1 << lgPage
	pageMask = pageSize - 1

	lgCacheline   = 6
	cacheLineSize = 1 << lgCacheline
	cachelineMask = cacheLineSize - 1

	ptrSize = unsafe.Sizeof(uintptr(0))

	// mallocAlign is the largest alignment AlignedAllocate serves from a
	// small size class; it does so only for classes whose block size is a
	// multiple of the requested alignment.
	mallocAlign = 16
)

const cachelineMaskU = uintptr(cachelineMask)
