// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// Page map constants, ported from original_source/src/pagemap.rs. pmBits
// is the number of low address bits (above the page offset) actually
// indexed; the remaining high bits are assumed to be sign/kernel-reserved
// and are skipped, matching the source's PM_NHS ("num high skip").
const (
	pmNumHighSkip = 14
	pmBits        = 64 - pmNumHighSkip - lgPage
	pmSCMask      = uint64(cachelineMask) // descriptors are cacheline aligned
)

var (
	pageMapInit sync.Once
	pageMap     []uint64
	pageMapMask uintptr
)

// initPageMap reserves a single huge, sparse table covering the whole
// indexable address range, backed by overcommitted anonymous memory:
// nothing is physically resident until a page of the table is actually
// written.
func initPageMap() {
	numEntries := uintptr(1) << uint(pmBits)
	pageMapMask = numEntries - 1

	size := roundup(int(numEntries)*8, pageSize)
	base, err := acquirePagesOvercommit(size)
	if err != nil {
		panic(wrapOOM(err).Error())
	}
	pageMap = unsafe.Slice((*uint64)(unsafe.Pointer(base)), size/8)
}

func pageMapKey(addr uintptr) uintptr {
	return (addr >> lgPage) & pageMapMask
}

func packPageInfo(d *descriptor, scIdx int) uint64 {
	addr := uint64(uintptr(unsafe.Pointer(d)))
	assert(addr&pmSCMask == 0, "descriptor address not cacheline aligned")
	return addr | uint64(scIdx)&pmSCMask
}

func unpackPageInfo(v uint64) (*descriptor, int) {
	d := (*descriptor)(unsafe.Pointer(uintptr(v &^ pmSCMask)))
	return d, int(v & pmSCMask)
}

// getPageInfo returns the descriptor owning the superblock addr falls in
// (nil if untracked) and its size-class index.
func getPageInfo(addr uintptr) (*descriptor, int) {
	pageMapInit.Do(initPageMap)
	v := atomic.LoadUint64(&pageMap[pageMapKey(addr)])
	return unpackPageInfo(v)
}

func setPageInfo(addr uintptr, d *descriptor, scIdx int) {
	pageMapInit.Do(initPageMap)
	atomic.StoreUint64(&pageMap[pageMapKey(addr)], packPageInfo(d, scIdx))
}

// registerSuperblock stamps every page of [base, base+size) with d's
// identity so a later Free can find it from any block's address.
func registerSuperblock(d *descriptor, base uintptr, size int, scIdx int) {
	for off := 0; off < size; off += pageSize {
		setPageInfo(base+uintptr(off), d, scIdx)
	}
}

func unregisterSuperblock(base uintptr, size int) {
	for off := 0; off < size; off += pageSize {
		setPageInfo(base+uintptr(off), nil, 0)
	}
}
