// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

// Size-class schedule, ported from original_source/src/size_classes.rs.
// Index 0 is reserved for large (direct mmap) allocations; indices
// 1..maxSizeClasses-1 hold the small-object schedule.
//
// The schedule is built from 10 octaves (16, 32, 64, ..., 8192), each split
// into 4 linearly spaced classes, which is exactly how the source's own
// MAX_SZ = (1<<13) + (1<<11)*3 falls out of the final octave (8192, 10240,
// 12288, 14336). That gives 40 classes total, matching MAX_SZ_IDX.
const (
	numOctaves      = 10
	classesPerOctave = 4
	maxSizeClasses  = 1 + numOctaves*classesPerOctave // index 0 + 40 small classes
)

type sizeClass struct {
	blockSize     uint32
	sbSize        uint32
	blockNum      uint32
	cacheBlockNum uint32
}

var (
	sizeClasses     [maxSizeClasses]sizeClass
	sizeClassLookup []uint16 // indexed by byte size, 0..=maxSmallSize
	maxSmallSize    int
)

func octaveStarts() [numOctaves]uint32 {
	return [numOctaves]uint32{16, 32, 64, 128, 256, 512, 1024, 2048, 4096, 8192}
}

func rawBlockSizes() [maxSizeClasses - 1]uint32 {
	var out [maxSizeClasses - 1]uint32
	idx := 0
	for _, s := range octaveStarts() {
		step := s / classesPerOctave
		for i := 0; i < classesPerOctave; i++ {
			out[idx] = s + uint32(i)*step
			idx++
		}
	}
	return out
}

// initSizeClasses fills sizeClasses and sizeClassLookup. It corrects the
// superblock-size persistence bug present in
// original_source/src/size_classes.rs: that source computes a corrected
// sb_size in a local variable but writes the stale, pre-correction value
// back into the table. Here the corrected value is the one that is stored.
func initSizeClasses() {
	for i, blockSize := range rawBlockSizes() {
		scIdx := i + 1

		// sbSize must be a multiple of both blockSize (so the
		// superblock divides into whole blocks) and pageSize (so it
		// can be mmap'd directly), and at least 16 pages.
		step := lcm(uint64(blockSize), uint64(pageSize))
		sb := step
		for sb < 16*uint64(pageSize) {
			sb += step
		}

		blockNum := sb / uint64(blockSize)
		assert(blockNum > 0, "size class has zero blocks per superblock")
		assert(blockNum < (1<<31), "size class superblock has too many blocks")

		sizeClasses[scIdx] = sizeClass{
			blockSize:     blockSize,
			sbSize:        uint32(sb),
			blockNum:      uint32(blockNum),
			cacheBlockNum: uint32(blockNum),
		}
		if int(blockSize) > maxSmallSize {
			maxSmallSize = int(blockSize)
		}
	}

	sizeClassLookup = make([]uint16, maxSmallSize+1)
	lookupIdx := 0
	for scIdx := 1; scIdx < maxSizeClasses; scIdx++ {
		sc := sizeClasses[scIdx]
		for lookupIdx <= int(sc.blockSize) {
			sizeClassLookup[lookupIdx] = uint16(scIdx)
			lookupIdx++
		}
	}
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b uint64) uint64 {
	return a / gcd(a, b) * b
}

// classForSize returns the size class a request of the given size routes
// to, and whether it is a small (cached) class at all. Size 0 routes to
// the smallest class rather than short-circuiting to a null allocation,
// per spec.md's boundary-case resolution.
func classForSize(size int) (scIdx int, small bool) {
	initProcess()
	if size < 0 {
		panic("r3malloc: negative allocation size")
	}
	if size > maxSmallSize {
		return 0, false
	}
	if size == 0 {
		return 1, true
	}
	return int(sizeClassLookup[size]), true
}
