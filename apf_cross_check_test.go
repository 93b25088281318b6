// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

import (
	"math"
	"testing"

	"modernc.org/mathutil"
)

// TestComputeFastAgreesWithComputeSlow drives a deterministic sequence of
// allocation/free events through two otherwise-identical predictors and
// checks that compute_fast's incremental shortcuts never disagree with a
// from-scratch compute_slow, resolving spec.md's Open Question about the
// two code paths' consistency.
func TestComputeFastAgreesWithComputeSlow(t *testing.T) {
	rnd, err := mathutil.NewFC32(1, 64, true)
	if err != nil {
		t.Fatalf("NewFC32: %v", err)
	}

	cfg := &apfConfig{
		windowLength:         2,
		targetAPF:            16,
		reuseComputeInterval: 4,
		numFreeIntervals:     64,
		boostLength:          100000,
	}
	slow := newAPFState(cfg)
	fast := newAPFState(cfg)

	for i := 0; i < 500; i++ {
		if rnd.Next()%2 == 0 {
			slow.onAllocation()
			fast.onAllocation()
		} else {
			slow.onFree()
			fast.onFree()
		}
		slow.incTimer()
		fast.incTimer()

		for wl := uint64(1); wl < uint64(cfg.targetAPF); wl++ {
			got := fast.computeFast(wl)
			want := slow.computeSlow(wl)
			if math.Abs(got-want) > 1e-9 {
				t.Fatalf("iteration %d, wl=%d: compute_fast=%v compute_slow=%v disagree", i, wl, got, want)
			}
		}
	}
}
