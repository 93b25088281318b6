// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

import (
	"sync"
	"testing"
)

func TestDescriptorAllocRetireRoundTrip(t *testing.T) {
	initProcess()

	d, err := allocDescriptor()
	if err != nil {
		t.Fatalf("allocDescriptor: %v", err)
	}
	if d.blockSize != 0 {
		t.Fatalf("freshly popped descriptor has nonzero blockSize %d", d.blockSize)
	}
	d.blockSize = 42
	retireDescriptor(d)
	if d.blockSize != 0 {
		t.Fatalf("retireDescriptor did not clear blockSize")
	}
}

func TestDescriptorPoolGrowsUnderPressure(t *testing.T) {
	initProcess()

	const n = 5000
	descs := make([]*descriptor, 0, n)
	for i := 0; i < n; i++ {
		d, err := allocDescriptor()
		if err != nil {
			t.Fatalf("allocDescriptor #%d: %v", i, err)
		}
		descs = append(descs, d)
	}

	seen := make(map[*descriptor]bool, n)
	for _, d := range descs {
		if seen[d] {
			t.Fatalf("descriptor pool handed out the same descriptor twice")
		}
		seen[d] = true
	}

	for _, d := range descs {
		retireDescriptor(d)
	}
}

func TestDescriptorPoolConcurrentAllocRetire(t *testing.T) {
	initProcess()

	const goroutines = 16
	const perGoroutine = 2000

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				d, err := allocDescriptor()
				if err != nil {
					t.Errorf("allocDescriptor: %v", err)
					return
				}
				if d.blockSize != 0 {
					t.Errorf("descriptor reused while still owned")
					return
				}
				retireDescriptor(d)
			}
		}()
	}
	wg.Wait()
}

func TestDescriptorStrideIsCachelineAligned(t *testing.T) {
	if descriptorStride%cacheLineSize != 0 {
		t.Fatalf("descriptorStride %d is not a multiple of the cacheline size %d", descriptorStride, cacheLineSize)
	}
	if descriptorStride < descriptorSize {
		t.Fatalf("descriptorStride %d smaller than descriptorSize %d", descriptorStride, descriptorSize)
	}
}
