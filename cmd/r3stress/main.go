// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command r3stress drives r3malloc under concurrent, mixed-size churn and
// reports the resulting process-wide counters (live allocations, mmap
// regions, mapped bytes); per-class APF statistics are not printed. It
// exercises every allocation path: small, large, aligned, and
// cross-goroutine free.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/dcompiler/r3malloc"
)

func main() {
	workers := flag.Int("workers", runtime.NumCPU(), "number of concurrent worker goroutines")
	iterations := flag.Int("iterations", 200000, "allocate/free iterations per worker")
	maxSize := flag.Int("max-size", 16384, "largest request size, bytes")
	logging := flag.Bool("log", false, "enable r3malloc's own trace logging")
	flag.Parse()

	free := make(chan []byte, *workers*64)
	var wg sync.WaitGroup
	start := time.Now()

	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			th := r3malloc.NewThread(r3malloc.WithLogging(*logging))
			defer th.Finalize()

			rnd := rand.New(rand.NewSource(seed))
			for i := 0; i < *iterations; i++ {
				switch rnd.Intn(4) {
				case 0, 1:
					size := rnd.Intn(*maxSize)
					b, err := th.Allocate(size)
					if err != nil {
						continue
					}
					select {
					case free <- b:
					default:
						th.Free(b)
					}
				case 2:
					b, err := th.AlignedAllocate(64, rnd.Intn(*maxSize))
					if err == nil {
						th.Free(b)
					}
				case 3:
					select {
					case b := <-free:
						th.Free(b)
					default:
					}
				}
			}
		}(int64(w) + 1)
	}

	wg.Wait()
	close(free)
	cleanup := r3malloc.NewThread()
	for b := range free {
		cleanup.Free(b)
	}
	cleanup.Finalize()

	elapsed := time.Since(start)
	stats := r3malloc.GlobalStats()
	fmt.Printf("r3stress: %d workers, %d iterations each, %s\n", *workers, *iterations, elapsed)
	fmt.Printf("live allocs=%d mmaps=%d bytes=%d\n", stats.Allocs, stats.Mmaps, stats.Bytes)
}
