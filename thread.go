// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

import (
	"sync/atomic"
	"unsafe"
)

// Thread is a caller-owned allocation front end: one thread cache and one
// APF predictor per size class. It generalizes cznic/memory.Allocator's
// explicit-object pattern to a design with no package-global allocator at
// all; every Thread shares the process-wide descriptor pool, process
// heaps and page map.
//
// A *Thread must not be used from more than one goroutine concurrently.
// Callers that map 1:1 onto OS threads (runtime.LockOSThread) get the
// exact concurrency model spec.md describes; callers sharing one Thread
// across goroutines must synchronize externally.
type Thread struct {
	caches [maxSizeClasses]tcacheBin
	apfs   [maxSizeClasses]apfState
	cfg    *Config

	// flushCount and cutCount tally calls to flushCache and cutCache,
	// exposed only for in-package tests to observe the decay behavior
	// spec.md §8 scenario 5 describes (occasional small cuts, not bulk
	// evictions).
	flushCount uint64
	cutCount   uint64
}

// NewThread creates a Thread. initProcess runs at most once per process
// regardless of how many Threads are created.
func NewThread(opts ...Option) *Thread {
	initProcess()
	cfg := buildConfig(opts...)
	t := &Thread{cfg: cfg}
	for i := range t.apfs {
		t.apfs[i] = newAPFState(&cfg.apf)
	}
	return t
}

// Allocate returns size bytes, or an error if the page provider is out of
// memory. Size 0 routes to the smallest size class rather than returning
// nil.
func (t *Thread) Allocate(size int) ([]byte, error) {
	if size < 0 {
		panic("r3malloc: negative allocate size")
	}
	t.cfg.tracef("allocate(%d)", size)

	scIdx, small := classForSize(size)
	if !small {
		return t.allocateLarge(size)
	}

	apf := &t.apfs[scIdx]
	apf.onAllocation()
	apf.incTimer()

	bin := &t.caches[scIdx]
	if bin.count == 0 {
		if err := t.fillCache(scIdx); err != nil {
			return nil, err
		}
		apf.onFetch()
	}
	p := bin.popBlock()
	atomic.AddInt64(&statAllocs, 1)
	return ptrToSlice(p, size, int(sizeClasses[scIdx].blockSize)), nil
}

// AllocateZero allocates space for n elements of size bytes each,
// zeroed, failing with ErrOverflow rather than wrapping if n*size would
// overflow.
func (t *Thread) AllocateZero(n, size int) ([]byte, error) {
	if n < 0 || size < 0 {
		panic("r3malloc: negative allocate-zero arguments")
	}
	if mulOverflows(n, size) {
		return nil, ErrOverflow
	}
	b, err := t.Allocate(n * size)
	if err != nil {
		return nil, err
	}
	for i := range b {
		b[i] = 0
	}
	return b, nil
}

// Free releases a block previously returned by Allocate, AllocateZero,
// Reallocate or AlignedAllocate. Freeing a block obtained from any
// Thread's Allocate is valid from any other Thread: ownership of a block
// is not pinned to the Thread that allocated it.
func (t *Thread) Free(b []byte) error {
	b = b[:cap(b)]
	if len(b) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&b[0]))
	t.cfg.tracef("free(%#x, %d)", addr, len(b))

	desc, scIdx := getPageInfo(addr)
	if desc == nil {
		panic("r3malloc: free of pointer not owned by this allocator")
	}

	if scIdx == 0 {
		size := int(desc.blockSize)
		sb := desc.superblock
		unregisterSuperblock(sb, size)
		releasePages(sb, size)
		retireDescriptor(desc)
		atomic.AddInt64(&statAllocs, -1)
		return nil
	}

	bin := &t.caches[scIdx]
	apf := &t.apfs[scIdx]
	apf.onFree()
	apf.incTimer()

	sc := &sizeClasses[scIdx]
	if bin.count >= sc.cacheBlockNum {
		t.flushCache(scIdx)
	} else if k, ok := apf.shouldUpdateSlots(bin.count); ok && uint32(k) < bin.count {
		t.cutCache(scIdx, uint32(k))
	}
	bin.pushBlock(addr)
	atomic.AddInt64(&statAllocs, -1)
	return nil
}

// Reallocate resizes a block, copying min(old size, size) bytes,
// shrinking in place when possible.
func (t *Thread) Reallocate(b []byte, size int) ([]byte, error) {
	if size < 0 {
		panic("r3malloc: negative reallocate size")
	}
	switch {
	case cap(b) == 0:
		return t.Allocate(size)
	case size == 0:
		return nil, t.Free(b)
	case size <= t.UsableSize(b):
		return b[:size], nil
	}
	r, err := t.Allocate(size)
	if err != nil {
		return nil, err
	}
	copy(r, b)
	if err := t.Free(b); err != nil {
		return nil, err
	}
	return r, nil
}

// UsableSize returns the actual capacity of the block backing b, which
// may exceed len(b).
func (t *Thread) UsableSize(b []byte) int {
	b = b[:cap(b)]
	if len(b) == 0 {
		return 0
	}
	addr := uintptr(unsafe.Pointer(&b[0]))
	desc, scIdx := getPageInfo(addr)
	if desc == nil {
		panic("r3malloc: usable-size of pointer not owned by this allocator")
	}
	if scIdx == 0 {
		return int(desc.blockSize) - int(addr-desc.superblock)
	}
	return int(sizeClasses[scIdx].blockSize)
}

// AlignedAllocate returns size bytes aligned to align, which must be a
// power of two and a multiple of the platform pointer size.
func (t *Thread) AlignedAllocate(align, size int) ([]byte, error) {
	if size < 0 {
		panic("r3malloc: negative allocate size")
	}
	if !isPowerOfTwo(align) || align%int(ptrSize) != 0 {
		return nil, ErrInvalidAlignment
	}
	if align <= mallocAlign {
		// Superblocks are page aligned, so a class's blocks meet align
		// only when its block size is a multiple of align.
		scIdx, small := classForSize(size)
		if small && sizeClasses[scIdx].blockSize%uint32(align) == 0 {
			return t.Allocate(size)
		}
	}
	return t.allocateAlignedLarge(align, size)
}

// AllocatePageAligned is a convenience wrapper for
// AlignedAllocate(pageSize, size).
func (t *Thread) AllocatePageAligned(size int) ([]byte, error) {
	return t.AlignedAllocate(pageSize, size)
}

// Finalize flushes every thread-cache bin back to the process heaps.
// Callers that map a Thread onto an OS thread should call this before
// the thread exits, playing the role spec.md assigns to
// thread_finalize().
func (t *Thread) Finalize() error {
	for i := 1; i < maxSizeClasses; i++ {
		if t.caches[i].count > 0 {
			t.flushCache(i)
		}
	}
	return nil
}

func (t *Thread) allocateLarge(size int) ([]byte, error) {
	sizeBytes := roundup(size, pageSize)
	base, err := acquirePages(sizeBytes)
	if err != nil {
		return nil, err
	}
	d, err := allocDescriptor()
	if err != nil {
		releasePages(base, sizeBytes)
		return nil, err
	}
	d.heap = nil
	d.superblock = base
	d.blockSize = uint32(sizeBytes)
	d.maxCount = 1
	d.anchor.store(packAnchor(sbFull, 0, 0))
	registerSuperblock(d, base, sizeBytes, 0)
	atomic.AddInt64(&statAllocs, 1)
	return ptrToSlice(base, size, sizeBytes), nil
}

func (t *Thread) allocateAlignedLarge(align, size int) ([]byte, error) {
	total := size + align - 1
	sizeBytes := roundup(total, pageSize)
	base, err := acquirePages(sizeBytes)
	if err != nil {
		return nil, err
	}
	d, err := allocDescriptor()
	if err != nil {
		releasePages(base, sizeBytes)
		return nil, err
	}
	alignedAddr := roundupPtr(base, uintptr(align))

	d.heap = nil
	d.superblock = base
	d.blockSize = uint32(sizeBytes)
	d.maxCount = 1
	d.anchor.store(packAnchor(sbFull, 0, 0))
	registerSuperblock(d, base, sizeBytes, 0)

	atomic.AddInt64(&statAllocs, 1)
	usable := sizeBytes - int(alignedAddr-base)
	return ptrToSlice(alignedAddr, size, usable), nil
}

// fillCache refills an empty bin, preferring a superblock already partial
// in the process heap over carving a brand new one.
func (t *Thread) fillCache(scIdx int) error {
	if d := processHeaps[scIdx].popPartial(); d != nil {
		return t.fillFromPartial(scIdx, d)
	}
	return t.fillFromNewSuperblock(scIdx)
}

func (t *Thread) fillFromPartial(scIdx int, d *descriptor) error {
	sc := &sizeClasses[scIdx]
	for {
		old := d.anchor.load()
		if old.state() == sbEmpty {
			retireDescriptor(d)
			return t.fillFromNewSuperblock(scIdx)
		}
		newA := packAnchor(sbFull, sc.blockNum, 0)
		if d.anchor.cas(old, newA) {
			headPtr := d.superblock + uintptr(old.avail())*uintptr(sc.blockSize)
			t.caches[scIdx].pushList(headPtr, old.count())
			return nil
		}
	}
}

func (t *Thread) fillFromNewSuperblock(scIdx int) error {
	sc := &sizeClasses[scIdx]
	d, err := allocDescriptor()
	if err != nil {
		return err
	}
	base, err := acquirePages(int(sc.sbSize))
	if err != nil {
		retireDescriptor(d)
		return err
	}

	for i := uint32(0); i+1 < sc.blockNum; i++ {
		cur := base + uintptr(i)*uintptr(sc.blockSize)
		next := base + uintptr(i+1)*uintptr(sc.blockSize)
		*(*uintptr)(unsafe.Pointer(cur)) = next
	}
	last := base + uintptr(sc.blockNum-1)*uintptr(sc.blockSize)
	*(*uintptr)(unsafe.Pointer(last)) = 0

	d.heap = &processHeaps[scIdx]
	d.superblock = base
	d.blockSize = sc.blockSize
	d.maxCount = sc.blockNum
	d.anchor.store(packAnchor(sbFull, sc.blockNum, 0))

	registerSuperblock(d, base, int(sc.sbSize), scIdx)
	t.caches[scIdx].pushList(base, sc.blockNum)
	return nil
}

// flushCache empties a bin entirely back to the process heaps / page
// provider, one contiguous superblock run at a time.
func (t *Thread) flushCache(scIdx int) {
	t.flushCount++
	bin := &t.caches[scIdx]
	for bin.count > 0 {
		t.flushRun(scIdx, bin.count)
	}
}

// cutCache sheds up to blockCount blocks in a single flushRun, the
// APF-driven partial flush described in spec.md §4.8/§4.9; fewer are shed
// when the run of cached blocks from one superblock is shorter.
func (t *Thread) cutCache(scIdx int, blockCount uint32) {
	if blockCount == 0 {
		return
	}
	t.cutCount++
	t.flushRun(scIdx, blockCount)
}

// flushRun peels off one contiguous run of up to maxBlocks cache entries
// that all belong to the same superblock (determined by walking the
// intrusive next chain while it stays within [sb, sb+sbSize)) and CASes
// them back into that superblock's anchor.
func (t *Thread) flushRun(scIdx int, maxBlocks uint32) {
	bin := &t.caches[scIdx]
	sc := &sizeClasses[scIdx]

	head := bin.peekBlock()
	desc, _ := getPageInfo(head)
	sb := desc.superblock
	sbEnd := sb + uintptr(sc.sbSize)

	tail := head
	count := uint32(1)
	for count < maxBlocks && count < bin.count {
		next := *(*uintptr)(unsafe.Pointer(tail))
		if next < sb || next >= sbEnd {
			break
		}
		tail = next
		count++
	}
	newHead := *(*uintptr)(unsafe.Pointer(tail))
	bin.popList(newHead, count)

	headIdx := uint32((head - sb) / uintptr(sc.blockSize))

	for {
		old := desc.anchor.load()
		*(*uintptr)(unsafe.Pointer(tail)) = sb + uintptr(old.avail())*uintptr(sc.blockSize)

		newCount := old.count() + count
		var newState sbState
		switch {
		case newCount == desc.maxCount:
			newState = sbEmpty
			newCount = desc.maxCount - 1
		case old.state() == sbFull:
			newState = sbPartial
		default:
			newState = old.state()
		}

		newA := packAnchor(newState, headIdx, newCount)
		if desc.anchor.cas(old, newA) {
			switch {
			case newState == sbEmpty:
				unregisterSuperblock(sb, int(sc.sbSize))
				releasePages(sb, int(sc.sbSize))
				// A descriptor that was PARTIAL is on the heap's partial
				// list (or held by a filler) and is retired when popped.
				if old.state() == sbFull {
					retireDescriptor(desc)
				}
			case old.state() == sbFull && newState == sbPartial:
				desc.heap.pushPartial(desc)
			}
			return
		}
	}
}

func ptrToSlice(p uintptr, length, capacity int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), capacity)[:length]
}
