// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// descriptor is per-superblock metadata, the Go analogue of
// original_source/src/heap.rs's Descriptor. Descriptors are never
// allocated by the Go runtime: they are carved directly out of mmap'd
// pages (see descpool.go), exactly as the teacher reinterprets raw
// mmap'd bytes as *page/*node via unsafe.Pointer. That makes the
// descriptor-pool head and the process-heap partial-list heads genuine
// tagged raw pointers
// instead of a simulated index, since the Go GC never has to know these
// bytes exist.
type descriptor struct {
	nextFree    *descriptor // free-stack link while sitting in the descriptor pool
	nextPartial *descriptor // partial-list link while sitting on a procHeap

	anchor atomicAnchor

	superblock uintptr // base address of the superblock this descriptor owns
	heap       *procHeap
	blockSize  uint32 // 0 while the descriptor itself is retired/unused
	maxCount   uint32

	_ cpu.CacheLinePad
}

const descriptorSize = unsafe.Sizeof(descriptor{})

// descriptorStride is descriptorSize rounded up to a cacheline, so that
// CAS'ing a tagged pointer to a descriptor can steal the low
// cachelineMask bits for the ABA counter without ever aliasing two
// descriptors' addresses.
const descriptorStride = (descriptorSize + cachelineMask) &^ cachelineMask

// tagPointer packs d's address with tag in the low cacheline bits.
func tagPointer(d *descriptor, tag uintptr) uintptr {
	return uintptr(unsafe.Pointer(d)) | (tag & cachelineMaskU)
}

func untagPointer(v uintptr) *descriptor {
	return (*descriptor)(unsafe.Pointer(v &^ cachelineMaskU))
}

func tagOf(v uintptr) uintptr {
	return v & cachelineMaskU
}
