// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

import "testing"

func TestUnsafeAllocateFreeRoundTrip(t *testing.T) {
	th := NewThread()
	defer th.Finalize()

	for _, size := range []int{1, 64, 4096, maxSmallSize + 1} {
		p, err := th.UnsafeAllocate(size)
		if err != nil {
			t.Fatalf("UnsafeAllocate(%d): %v", size, err)
		}
		if th.UnsafeUsableSize(p) < size {
			t.Fatalf("UnsafeUsableSize(%d) < %d", th.UnsafeUsableSize(p), size)
		}
		if err := th.UnsafeFree(p); err != nil {
			t.Fatalf("UnsafeFree: %v", err)
		}
	}
}

func TestUnsafeAllocateZeroIsZeroed(t *testing.T) {
	th := NewThread()
	defer th.Finalize()

	p, err := th.UnsafeAllocateZero(16, 8)
	if err != nil {
		t.Fatalf("UnsafeAllocateZero: %v", err)
	}
	b := ptrToSlice(uintptr(p), 16*8, 16*8)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d = %d, want 0", i, v)
		}
	}
	if err := th.UnsafeFree(p); err != nil {
		t.Fatalf("UnsafeFree: %v", err)
	}
}

func TestUnsafeReallocateGrows(t *testing.T) {
	th := NewThread()
	defer th.Finalize()

	p, err := th.UnsafeAllocate(8)
	if err != nil {
		t.Fatalf("UnsafeAllocate: %v", err)
	}
	copy(ptrToSlice(uintptr(p), 8, 8), []byte("12345678"))

	grown, err := th.UnsafeReallocate(p, 256)
	if err != nil {
		t.Fatalf("UnsafeReallocate: %v", err)
	}
	if got := ptrToSlice(uintptr(grown), 8, 8); string(got) != "12345678" {
		t.Fatalf("UnsafeReallocate lost data: %q", got)
	}
	if err := th.UnsafeFree(grown); err != nil {
		t.Fatalf("UnsafeFree: %v", err)
	}
}

func TestUnsafeFreeNilIsNoop(t *testing.T) {
	th := NewThread()
	defer th.Finalize()

	if err := th.UnsafeFree(nil); err != nil {
		t.Fatalf("UnsafeFree(nil): %v", err)
	}
	if th.UnsafeUsableSize(nil) != 0 {
		t.Fatalf("UnsafeUsableSize(nil) != 0")
	}
}
