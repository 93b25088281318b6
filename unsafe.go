// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

import "unsafe"

// capacityAt returns the full usable capacity of the block whose first
// byte lives at addr, the same size-class lookup UsableSize performs.
func capacityAt(addr uintptr) int {
	desc, scIdx := getPageInfo(addr)
	if desc == nil {
		panic("r3malloc: pointer not owned by this allocator")
	}
	if scIdx == 0 {
		return int(desc.blockSize) - int(addr-desc.superblock)
	}
	return int(sizeClasses[scIdx].blockSize)
}

// UnsafeAllocate is like Allocate except it returns an unsafe.Pointer,
// mirroring cznic/memory.Allocator.UnsafeMalloc.
func (t *Thread) UnsafeAllocate(size int) (unsafe.Pointer, error) {
	b, err := t.Allocate(size)
	if err != nil || len(b) == 0 {
		return nil, err
	}
	return unsafe.Pointer(&b[0]), nil
}

// UnsafeAllocateZero is like AllocateZero except it returns an
// unsafe.Pointer, mirroring cznic/memory.Allocator.UnsafeCalloc.
func (t *Thread) UnsafeAllocateZero(n, size int) (unsafe.Pointer, error) {
	b, err := t.AllocateZero(n, size)
	if err != nil || len(b) == 0 {
		return nil, err
	}
	return unsafe.Pointer(&b[0]), nil
}

// UnsafeFree is like Free except its argument is an unsafe.Pointer that
// must have been returned from UnsafeAllocate, UnsafeAllocateZero or
// UnsafeReallocate, mirroring cznic/memory.Allocator.UnsafeFree.
func (t *Thread) UnsafeFree(p unsafe.Pointer) error {
	if p == nil {
		return nil
	}
	addr := uintptr(p)
	n := capacityAt(addr)
	return t.Free(ptrToSlice(addr, n, n))
}

// UnsafeUsableSize is like UsableSize except its argument is an
// unsafe.Pointer, mirroring cznic/memory.UnsafeUsableSize.
func (t *Thread) UnsafeUsableSize(p unsafe.Pointer) int {
	if p == nil {
		return 0
	}
	return capacityAt(uintptr(p))
}

// UnsafeReallocate is like Reallocate except its first argument and
// result are unsafe.Pointer, mirroring
// cznic/memory.Allocator.UnsafeRealloc.
func (t *Thread) UnsafeReallocate(p unsafe.Pointer, size int) (unsafe.Pointer, error) {
	if p == nil {
		return t.UnsafeAllocate(size)
	}
	if size == 0 {
		return nil, t.UnsafeFree(p)
	}
	addr := uintptr(p)
	n := capacityAt(addr)
	b, err := t.Reallocate(ptrToSlice(addr, n, n), size)
	if err != nil || len(b) == 0 {
		return nil, err
	}
	return unsafe.Pointer(&b[0]), nil
}
