// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

import "sync/atomic"

// procHeap is the process-wide, per-size-class collection of partially
// full superblocks, the Go analogue of original_source/src/heap.rs's
// ProcHeap. There is exactly one procHeap per size class, shared by every
// Thread.
type procHeap struct {
	partialHead uintptr // tagged *descriptor, lock-free stack
	scIdx       int
}

var processHeaps [maxSizeClasses]procHeap

func initProcessHeaps() {
	for i := range processHeaps {
		processHeaps[i].scIdx = i
	}
}

// pushPartial makes d available to any thread that next fills this size
// class's cache from the process heap.
func (h *procHeap) pushPartial(d *descriptor) {
	for {
		old := atomic.LoadUintptr(&h.partialHead)
		d.nextPartial = untagPointer(old)
		newHead := tagPointer(d, tagOf(old)+1)
		if atomic.CompareAndSwapUintptr(&h.partialHead, old, newHead) {
			return
		}
	}
}

// popPartial detaches and returns a partial superblock, or nil if none is
// available. A descriptor observed to have emptied out in the meantime is
// retired instead of being handed back, and the search continues.
func (h *procHeap) popPartial() *descriptor {
	for {
		old := atomic.LoadUintptr(&h.partialHead)
		d := untagPointer(old)
		if d == nil {
			return nil
		}
		newHead := tagPointer(d.nextPartial, tagOf(old))
		if atomic.CompareAndSwapUintptr(&h.partialHead, old, newHead) {
			if d.anchor.load().state() == sbEmpty {
				retireDescriptor(d)
				continue
			}
			return d
		}
	}
}
