// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

import "math/bits"

// freeInterval is one recorded (free, realloc) pair, the Go analogue of
// original_source/src/apf.rs's Reuse ring entry.
type freeInterval struct {
	freeTime  uint64
	allocTime uint64
}

// reuseMemo is a memoized (x, y, z) partial sum for one window length,
// the Go analogue of apf.rs's Xyz bitfield. It is kept as a plain struct
// rather than a packed bitfield: Go has no benefit from the C/Rust
// cache-density trick since nothing here is shared across threads.
type reuseMemo struct {
	valid bool
	x, y, z uint64
}

// apfState is the Average Predicted Footprint online estimator for one
// size class within one Thread, ported line for line from
// original_source/src/apf.rs's Apf/Reuse.
type apfState struct {
	cfg *apfConfig

	currentTime uint64
	boostCount  int
	hibernating bool

	freeIntervals []freeInterval
	numIntervals  int // ring write position, mod len(freeIntervals)
	numFrees      int // ring write position, mod len(freeIntervals)

	// numEvents is a full, non-wrapping logical event counter for the
	// current boost epoch. original_source's num_events is instead
	// taken modulo NUM_FREE_INTERVALS, which makes the
	// num_events-wl+1 arithmetic in compute_slow/compute_fast
	// meaningless once more than a ring's worth of events have
	// happened in an epoch; spec.md's Open Question resolution (a)
	// keeps this counter real instead.
	numEvents uint64

	allReuses []reuseMemo // memoized per window length, length cfg.targetAPF+1

	numFetches uint64
	currentAPF uint64
}

func newAPFState(cfg *apfConfig) apfState {
	return apfState{
		cfg:           cfg,
		freeIntervals: make([]freeInterval, cfg.numFreeIntervals),
		allReuses:     make([]reuseMemo, cfg.targetAPF+1),
	}
}

func (s *apfState) onAllocation() {
	if s.hibernating {
		return
	}
	iv := &s.freeIntervals[s.numIntervals%len(s.freeIntervals)]
	if iv.freeTime != 0 {
		iv.allocTime = s.currentTime
		s.numIntervals = (s.numIntervals + 1) % len(s.freeIntervals)
	}
	s.numEvents++
}

func (s *apfState) onFree() {
	if s.hibernating {
		return
	}
	s.freeIntervals[s.numFrees%len(s.freeIntervals)].freeTime = s.currentTime
	s.numFrees = (s.numFrees + 1) % len(s.freeIntervals)
	s.numEvents++
}

func (s *apfState) onFetch() {
	s.numFetches++
}

// incTimer advances the per-class clock and handles the boost/hibernate
// duty cycle: after boostLength ticks, the class either starts
// hibernating (APF bookkeeping suspended), wakes back up, or simply
// starts a fresh measurement epoch, and the ring state is reset either
// way.
func (s *apfState) incTimer() {
	s.currentTime++
	if s.currentTime != uint64(s.cfg.boostLength) {
		return
	}
	switch {
	case s.hibernating:
		s.hibernating = false
		s.boostCount = 0
	case s.boostCount == 1:
		s.hibernating = true
	default:
		s.boostCount++
	}
	s.currentTime = 0
	for i := range s.freeIntervals {
		s.freeIntervals[i] = freeInterval{}
	}
	s.numIntervals = 0
	s.numFrees = 0
	s.numEvents = 0
}

// saturatingReuse mirrors apf.rs's
// x.checked_sub(y).unwrap_or(0).checked_add(z).unwrap_or(u64::MAX).
func saturatingReuse(x, y, z uint64) uint64 {
	var diff uint64
	if x >= y {
		diff = x - y
	}
	sum := diff + z
	if sum < diff {
		return ^uint64(0)
	}
	return sum
}

// computeSlow recomputes the reuse ratio for window length wl from
// scratch over every recorded interval, memoizing the result when
// wl < targetAPF. The interval predicate (allocTime-freeTime < wl) and
// the x/y/z accumulation are the exact formulas of apf.rs's
// Reuse::compute_slow.
func (s *apfState) computeSlow(wl uint64) float64 {
	var x, y, z uint64
	n := len(s.freeIntervals)
	for i := 0; i < n; i++ {
		iv := s.freeIntervals[i%n]
		if iv.allocTime < iv.freeTime || iv.allocTime == 0 {
			continue
		}
		if iv.allocTime-iv.freeTime >= wl {
			continue
		}
		x += uint64(minI64(int64(s.numEvents)-int64(wl), int64(iv.freeTime)))
		y += uint64(maxI64(int64(wl), int64(iv.allocTime)))
		z += wl
	}
	if wl < uint64(s.cfg.targetAPF) {
		s.allReuses[wl] = reuseMemo{valid: true, x: x, y: y, z: z}
	}
	num := saturatingReuse(x, y, z)
	denom := int64(s.numEvents) - int64(wl) + 1
	if denom <= 0 {
		return 0
	}
	return float64(num) / float64(denom)
}

// computeFast derives the reuse ratio for wl incrementally: it locates the
// nearest memoized window at or below wl (searching back at most
// reuseComputeInterval steps, falling back to computeSlow to seed one if
// none is found), then walks forward rebuilding each intermediate window
// from the previous one's (x, y, z) plus the per-interval corrections
// documented in spec.md §4.9, exactly as apf.rs's Reuse::compute_fast.
func (s *apfState) computeFast(wl uint64) float64 {
	reuseInterval := uint64(s.cfg.reuseComputeInterval)
	lowerBound := uint64(0)
	if wl > reuseInterval {
		lowerBound = wl - reuseInterval
	}

	lowestComputed := lowerBound
	found := false
	for i := int64(wl); i >= int64(lowerBound); i-- {
		if s.allReuses[uint64(i)].valid {
			lowestComputed = uint64(i)
			found = true
			break
		}
	}
	if !found {
		s.computeSlow(lowestComputed)
	}

	if lowestComputed == wl {
		if wl == 0 {
			return s.computeSlow(0)
		}
		lowestComputed = wl - 1
	}

	n := len(s.freeIntervals)
	var result float64
	for r := lowestComputed + 1; r <= wl; r++ {
		prev := s.allReuses[r-1]
		x, y, z := prev.x, prev.y, prev.z

		for i := 0; i < n; i++ {
			iv := s.freeIntervals[i%n]
			if iv.allocTime < iv.freeTime || iv.allocTime == 0 {
				continue
			}
			if iv.allocTime-iv.freeTime+1 == r {
				x += uint64(minI64(int64(s.numEvents)-int64(r), int64(iv.freeTime)))
				y += uint64(maxI64(int64(r), int64(iv.allocTime)))
				z += r
			}
			if iv.allocTime-iv.freeTime >= r-1 {
				continue
			}
			if int64(iv.freeTime) >= int64(s.numEvents)-int64(r-1) {
				x--
			}
			if iv.allocTime <= r-1 {
				y++
			}
			z++
		}

		s.allReuses[r] = reuseMemo{valid: true, x: x, y: y, z: z}
		if r == wl {
			num := saturatingReuse(x, y, z)
			denom := int64(s.numEvents) - int64(wl) + 1
			if denom <= 0 {
				result = 0
			} else {
				result = float64(num) / float64(denom)
			}
		}
	}
	return result
}

func (s *apfState) compute(wl uint64) float64 {
	if wl >= uint64(s.cfg.targetAPF) {
		return s.computeSlow(wl)
	}
	return s.computeFast(wl)
}

// demand returns wl - compute(wl), the predicted number of additional
// slots worth keeping warm for a window of length wl (cfg.windowLength if
// wl is nil).
func (s *apfState) demand(wl *uint64) float64 {
	w := uint64(s.cfg.windowLength)
	if wl != nil {
		w = *wl
	}
	return float64(w) - s.compute(w)
}

// demandAll returns demand(1..=windowLength), used when allWindowsMode is
// enabled.
func (s *apfState) demandAll() []float64 {
	out := make([]float64, s.cfg.windowLength)
	for i := 1; i <= s.cfg.windowLength; i++ {
		wl := uint64(i)
		out[i-1] = s.demand(&wl)
	}
	return out
}

// updateAPF recomputes current_apf = max(target_apf,
// target_apf*(num_fetches+1) - current_time), exactly as spec.md §4.9.
func (s *apfState) updateAPF() {
	target := uint64(s.cfg.targetAPF)
	ceil := target * (s.numFetches + 1)

	projected := target
	if ceil > s.currentTime {
		projected = ceil - s.currentTime
	}
	s.currentAPF = maxU64(target, projected)
}

// shouldUpdateSlots decides whether the thread cache should shed blocks
// back to the process heap: when available >= 2*demand+1 it returns
// demand+1, the number of blocks to shed, and true. It returns false
// when no cut is due or when demand*2 overflows; the caller then makes
// no change.
func (s *apfState) shouldUpdateSlots(available uint32) (int, bool) {
	s.updateAPF()
	apf := s.currentAPF
	d := s.demand(&apf)
	if d < 0 {
		d = 0
	}
	demand := uint64(d)

	hi, lo := bits.Mul64(demand, 2)
	if hi != 0 {
		return 0, false
	}
	if uint64(available) >= lo+1 {
		return int(demand) + 1, true
	}
	return 0, false
}
