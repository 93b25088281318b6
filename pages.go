// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

import "sync/atomic"

// pageProvider is the OS-facing allocator of whole pages, the collaborator
// spec.md describes as external to the core design. Implementations live
// in pages_unix.go and pages_windows.go, split along the same lines as
// the teacher's mmap_unix.go/mmap_windows.go.
type pageProvider interface {
	// acquire returns size bytes of committed, zeroed, page-aligned
	// memory.
	acquire(size int) (uintptr, error)
	// acquireOvercommit is like acquire but asks the OS not to reserve
	// physical backing up front, for sparse structures like the page
	// map that are mostly never touched.
	acquireOvercommit(size int) (uintptr, error)
	release(addr uintptr, size int)
}

func acquirePages(size int) (uintptr, error) {
	addr, err := globalPages.acquire(size)
	if err != nil {
		return 0, wrapOOM(err)
	}
	atomic.AddInt64(&statMmaps, 1)
	atomic.AddInt64(&statBytes, int64(size))
	return addr, nil
}

func acquirePagesOvercommit(size int) (uintptr, error) {
	addr, err := globalPages.acquireOvercommit(size)
	if err != nil {
		return 0, wrapOOM(err)
	}
	atomic.AddInt64(&statMmaps, 1)
	atomic.AddInt64(&statBytes, int64(size))
	return addr, nil
}

func releasePages(addr uintptr, size int) {
	globalPages.release(addr, size)
	atomic.AddInt64(&statMmaps, -1)
	atomic.AddInt64(&statBytes, -int64(size))
}
