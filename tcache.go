// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

import "unsafe"

// tcacheBin is a thread-exclusive LIFO of free blocks for one size class,
// the Go analogue of original_source/src/tcache.rs's TCacheBin. The free
// list is intrusive: the first machine word of each free block stores the
// pointer to the next one, so the cache itself costs no extra memory.
type tcacheBin struct {
	head  uintptr
	count uint32
}

func (b *tcacheBin) peekBlock() uintptr { return b.head }

func (b *tcacheBin) pushBlock(p uintptr) {
	*(*uintptr)(unsafe.Pointer(p)) = b.head
	b.head = p
	b.count++
}

func (b *tcacheBin) popBlock() uintptr {
	assert(b.count > 0, "popBlock on empty cache bin")
	p := b.head
	b.head = *(*uintptr)(unsafe.Pointer(p))
	b.count--
	return p
}

// pushList installs a freshly carved or filled chain of length blocks as
// the entire contents of an empty bin.
func (b *tcacheBin) pushList(head uintptr, length uint32) {
	assert(b.count == 0, "pushList onto non-empty cache bin")
	b.head = head
	b.count = length
}

// popList removes length blocks from the front of the bin, the caller
// having already walked the chain to find newHead, the block that will
// become the new front.
func (b *tcacheBin) popList(newHead uintptr, length uint32) {
	assert(b.count >= length, "popList underflow")
	b.head = newHead
	b.count -= length
}
