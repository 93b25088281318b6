// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

import (
	"bytes"
	"testing"
	"unsafe"

	"modernc.org/mathutil"
)

// TestSingleThreadChurn is scenario 1 of spec.md §8: a single thread
// repeatedly allocates, writes a recognizable pattern, and frees,
// verifying every live block still holds what it was written.
func TestSingleThreadChurn(t *testing.T) {
	th := NewThread()
	defer th.Finalize()

	rnd, err := mathutil.NewFC32(1, 512, true)
	if err != nil {
		t.Fatalf("NewFC32: %v", err)
	}

	const quota = 20000
	live := map[*byte][]byte{}
	pattern := map[*byte]byte{}

	for i := 0; i < quota; i++ {
		switch {
		case len(live) == 0 || rnd.Next()%3 != 0:
			size := rnd.Next() + 1
			b, err := th.Allocate(size)
			if err != nil {
				t.Fatalf("Allocate(%d): %v", size, err)
			}
			if len(b) != size {
				t.Fatalf("Allocate(%d) returned len %d", size, len(b))
			}
			for j := range b {
				b[j] = byte(i)
			}
			live[&b[0]] = b
			pattern[&b[0]] = byte(i)
		default:
			for k, b := range live {
				want := pattern[k]
				for j := range b {
					if b[j] != want {
						t.Fatalf("corrupted block: byte %d changed", j)
					}
				}
				if err := th.Free(b); err != nil {
					t.Fatalf("Free: %v", err)
				}
				delete(live, k)
				delete(pattern, k)
				break
			}
		}
	}

	for _, b := range live {
		if err := th.Free(b); err != nil {
			t.Fatalf("final Free: %v", err)
		}
	}
}

// TestMixedSizesIncludingLargePath is scenario 2 of spec.md §8.
func TestMixedSizesIncludingLargePath(t *testing.T) {
	th := NewThread()
	defer th.Finalize()

	sizes := []int{0, 1, 15, 16, 17, 1000, maxSmallSize, maxSmallSize + 1, 1 << 20}
	for _, size := range sizes {
		b, err := th.Allocate(size)
		if err != nil {
			t.Fatalf("Allocate(%d): %v", size, err)
		}
		if len(b) != size {
			t.Fatalf("Allocate(%d): len=%d", size, len(b))
		}
		if th.UsableSize(b) < size {
			t.Fatalf("Allocate(%d): UsableSize=%d < size", size, th.UsableSize(b))
		}
		for i := range b {
			b[i] = 0xAB
		}
		if err := th.Free(b); err != nil {
			t.Fatalf("Free(%d): %v", size, err)
		}
	}
}

// TestAlignedAllocate is scenario 6 of spec.md §8.
func TestAlignedAllocate(t *testing.T) {
	th := NewThread()
	defer th.Finalize()

	for _, align := range []int{8, 16, 32, 64, 128, 4096} {
		for _, size := range []int{1, 17, 5000, 1 << 18} {
			b, err := th.AlignedAllocate(align, size)
			if err != nil {
				t.Fatalf("AlignedAllocate(%d, %d): %v", align, size, err)
			}
			addr := bytesPtr(b)
			if addr%uintptr(align) != 0 {
				t.Fatalf("AlignedAllocate(%d, %d): address %#x not aligned", align, size, addr)
			}
			if err := th.Free(b); err != nil {
				t.Fatalf("Free: %v", err)
			}
		}
	}
}

func TestAlignedAllocateRejectsBadAlignment(t *testing.T) {
	th := NewThread()
	defer th.Finalize()

	for _, align := range []int{0, 3, 24, 1} {
		if _, err := th.AlignedAllocate(align, 16); err != ErrInvalidAlignment {
			t.Fatalf("AlignedAllocate(%d, 16): err=%v, want ErrInvalidAlignment", align, err)
		}
	}
}

func TestReallocatePreservesContent(t *testing.T) {
	th := NewThread()
	defer th.Finalize()

	b, err := th.Allocate(10)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	copy(b, []byte("0123456789"))

	grown, err := th.Reallocate(b, 1000)
	if err != nil {
		t.Fatalf("Reallocate grow: %v", err)
	}
	if !bytes.Equal(grown[:10], []byte("0123456789")) {
		t.Fatalf("Reallocate grow lost data: %q", grown[:10])
	}

	shrunk, err := th.Reallocate(grown, 3)
	if err != nil {
		t.Fatalf("Reallocate shrink: %v", err)
	}
	if !bytes.Equal(shrunk, []byte("012")) {
		t.Fatalf("Reallocate shrink lost data: %q", shrunk)
	}

	if err := th.Free(shrunk); err != nil {
		t.Fatalf("Free: %v", err)
	}
}

func TestAllocateZeroOverflow(t *testing.T) {
	th := NewThread()
	defer th.Finalize()

	_, err := th.AllocateZero(1<<62, 1<<62)
	if err != ErrOverflow {
		t.Fatalf("AllocateZero overflow: err=%v, want ErrOverflow", err)
	}
}

func TestAllocateZeroIsZeroed(t *testing.T) {
	th := NewThread()
	defer th.Finalize()

	b, err := th.AllocateZero(100, 4)
	if err != nil {
		t.Fatalf("AllocateZero: %v", err)
	}
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d = %d, want 0", i, v)
		}
	}
	if err := th.Free(b); err != nil {
		t.Fatalf("Free: %v", err)
	}
}

func bytesPtr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
