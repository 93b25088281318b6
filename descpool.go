// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

import (
	"sync/atomic"
	"unsafe"
)

// descriptorBlockSize is the amount of memory requested from the page
// provider each time the descriptor pool runs dry, matching
// original_source/src/heap.rs's DESCRIPTOR_BLOCK_SZ (16 pages).
const descriptorBlockSize = 16 * pageSize

// availDescHead is the lock-free Treiber stack of unused descriptors,
// CAS'd as a tagged uintptr. spec.md upgrades the source's
// mutex-guarded pool (AVAIL_DESC behind POOL_LOCK) to this lock-free
// design.
var availDescHead uintptr

// allocDescriptor pops a descriptor off the free stack, growing the pool
// from a fresh page-provider block if it is empty. The popping CAS
// preserves the incoming ABA tag: popping alone cannot introduce a fresh
// aliasing hazard, only retiring (pushing) can.
func allocDescriptor() (*descriptor, error) {
	for {
		old := atomic.LoadUintptr(&availDescHead)
		d := untagPointer(old)
		if d == nil {
			if err := growDescriptorPool(); err != nil {
				return nil, err
			}
			continue
		}
		newHead := tagPointer(d.nextFree, tagOf(old))
		if atomic.CompareAndSwapUintptr(&availDescHead, old, newHead) {
			assert(d.blockSize == 0, "popped descriptor is still owned")
			return d, nil
		}
	}
}

// retireDescriptor returns d to the free stack, incrementing the ABA tag.
func retireDescriptor(d *descriptor) {
	d.blockSize = 0
	d.heap = nil
	for {
		old := atomic.LoadUintptr(&availDescHead)
		d.nextFree = untagPointer(old)
		newHead := tagPointer(d, tagOf(old)+1)
		if atomic.CompareAndSwapUintptr(&availDescHead, old, newHead) {
			return
		}
	}
}

// growDescriptorPool carves descriptorBlockSize bytes of fresh mmap'd
// memory into cacheline-aligned descriptor slots, threads them into a
// singly linked list, and CAS-pushes the whole list onto availDescHead
// in one shot.
func growDescriptorPool() error {
	base, err := acquirePages(descriptorBlockSize)
	if err != nil {
		return err
	}

	n := int(uintptr(descriptorBlockSize) / descriptorStride)
	assert(n > 0, "descriptor block too small for even one descriptor")

	var first, prev *descriptor
	for i := 0; i < n; i++ {
		d := (*descriptor)(unsafe.Pointer(base + uintptr(i)*descriptorStride))
		*d = descriptor{}
		if prev != nil {
			prev.nextFree = d
		} else {
			first = d
		}
		prev = d
	}

	for {
		old := atomic.LoadUintptr(&availDescHead)
		prev.nextFree = untagPointer(old)
		newHead := tagPointer(first, tagOf(old)+1)
		if atomic.CompareAndSwapUintptr(&availDescHead, old, newHead) {
			return nil
		}
	}
}
