// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

import "sync/atomic"

// Process-wide counters, the Go analogue of cznic/memory.Allocator's
// allocs/bytes/mmaps fields, generalized to the whole process since the
// descriptor pool, process heaps and page map are shared by every
// Thread.
var (
	statAllocs int64
	statMmaps  int64
	statBytes  int64
)

// Stats is a snapshot of the process-wide counters.
type Stats struct {
	Allocs int64 // live allocations across every Thread
	Mmaps  int64 // live mmap regions held by the page provider
	Bytes  int64 // bytes currently mapped
}

// GlobalStats reports the current process-wide counters.
func GlobalStats() Stats {
	return Stats{
		Allocs: atomic.LoadInt64(&statAllocs),
		Mmaps:  atomic.LoadInt64(&statMmaps),
		Bytes:  atomic.LoadInt64(&statBytes),
	}
}

// APFStats is a snapshot of one size class's APF predictor state.
type APFStats struct {
	NumFetches    uint64
	CurrentAPF    uint64
	CurrentTime   uint64
	Demand        float64
	DemandVector  []float64 // non-nil only when WithAllWindowsMode is set
	CacheCount    uint32
}

// APFStats reports the predictor state for the size class that serves
// requests of the given size.
func (t *Thread) APFStats(size int) APFStats {
	scIdx, small := classForSize(size)
	if !small {
		return APFStats{}
	}
	s := &t.apfs[scIdx]
	stats := APFStats{
		NumFetches:  s.numFetches,
		CurrentAPF:  s.currentAPF,
		CurrentTime: s.currentTime,
		CacheCount:  t.caches[scIdx].count,
	}
	if s.cfg.allWindowsMode {
		stats.DemandVector = s.demandAll()
	} else {
		wl := uint64(s.cfg.windowLength)
		stats.Demand = s.demand(&wl)
	}
	return stats
}
