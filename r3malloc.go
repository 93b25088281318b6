// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package r3malloc implements a multithreaded, lock-free, segregated-size
// memory allocator with an online cache-sizing predictor (APF, "Average
// Predicted Footprint").
//
// Allocations below a fixed size threshold are served out of superblocks
// (contiguous runs of same-size blocks) shared process-wide through a set
// of lock-free descriptor pools and process heaps; each Thread keeps a
// small per-size-class cache on top so that the common case never touches
// shared state. Requests above the threshold go straight to the page
// provider. The APF predictor watches each size class's allocation/free
// cadence and periodically trims a Thread's cache back down to what it is
// actually using, so long-lived threads that moved on from a size class
// don't keep pages pinned indefinitely.
//
// This is a from-scratch Go port, built in the idiom of
// github.com/cznic/memory: an explicit allocator object
// (Thread) in place of process-global C symbols or pthread TLS, dual
// []byte/unsafe.Pointer APIs, and anonymous mmap for every page the
// allocator itself manages.
package r3malloc

import "sync"

var processInit sync.Once

// initProcess brings up the size classes and process heaps exactly once,
// on first use by any Thread or by a direct classForSize lookup. The page
// map and the descriptor pool are set up lazily on their own first use.
func initProcess() {
	processInit.Do(func() {
		initSizeClasses()
		initProcessHeaps()
	})
}
