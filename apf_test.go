// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

import "testing"

func newTestAPFState() apfState {
	cfg := &apfConfig{
		windowLength:         2,
		targetAPF:            20,
		reuseComputeInterval: 4,
		numFreeIntervals:     32,
		boostLength:          1000,
	}
	return newAPFState(cfg)
}

func TestAPFBoostHibernateCycle(t *testing.T) {
	s := newTestAPFState()

	if s.hibernating {
		t.Fatalf("new predictor should not start hibernating")
	}

	// First boost epoch ends: boostCount goes 0 -> 1, stays awake.
	for i := 0; i < s.cfg.boostLength; i++ {
		s.incTimer()
	}
	if s.hibernating {
		t.Fatalf("should still be awake after first boost epoch")
	}
	if s.boostCount != 1 {
		t.Fatalf("boostCount = %d, want 1", s.boostCount)
	}

	// Second epoch ends while boostCount == 1: now it hibernates.
	for i := 0; i < s.cfg.boostLength; i++ {
		s.incTimer()
	}
	if !s.hibernating {
		t.Fatalf("should be hibernating after second boost epoch")
	}

	// Third epoch ends: wakes back up, boostCount resets.
	for i := 0; i < s.cfg.boostLength; i++ {
		s.incTimer()
	}
	if s.hibernating {
		t.Fatalf("should have woken back up after the hibernation epoch")
	}
	if s.boostCount != 0 {
		t.Fatalf("boostCount = %d, want 0 after waking", s.boostCount)
	}
}

func TestAPFHibernatingSuppressesBookkeeping(t *testing.T) {
	s := newTestAPFState()
	s.hibernating = true

	s.onAllocation()
	s.onFree()

	if s.numEvents != 0 {
		t.Fatalf("numEvents = %d while hibernating, want 0", s.numEvents)
	}
}

func TestAPFDemandIsWindowLengthWhenIdle(t *testing.T) {
	s := newTestAPFState()
	wl := uint64(s.cfg.windowLength)
	d := s.demand(&wl)
	if d != float64(wl) {
		t.Fatalf("demand on an untouched predictor = %v, want %v (no reuse observed yet)", d, wl)
	}
}

func TestAPFShouldUpdateSlotsOverflow(t *testing.T) {
	s := newTestAPFState()
	// updateAPF sets currentAPF to at least targetAPF, so a near-2^63
	// target forces demand(currentAPF) high enough for demand*2 to overflow.
	s.cfg.targetAPF = int(^uint(0) >> 1)

	_, ok := s.shouldUpdateSlots(10)
	if ok {
		t.Fatalf("shouldUpdateSlots should report overflow for an enormous demand")
	}
}

func TestAPFUpdateAPFSaturatesAtTarget(t *testing.T) {
	s := newTestAPFState()
	s.numFetches = 0
	s.currentTime = 0
	s.updateAPF()
	if s.currentAPF != uint64(s.cfg.targetAPF) {
		t.Fatalf("currentAPF = %d at t=0, want target %d", s.currentAPF, s.cfg.targetAPF)
	}
}
