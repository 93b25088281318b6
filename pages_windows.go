// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

import (
	"golang.org/x/sys/windows"
)

type windowsPages struct{}

var globalPages pageProvider = windowsPages{}

// VirtualAlloc has no MAP_NORESERVE equivalent worth the complexity of a
// reserve-then-commit split here; acquireOvercommit behaves identically
// to acquire on this platform. The page map is still sized the same way
// as on unix, it simply costs real commit charge up front on Windows.
func (windowsPages) virtualAlloc(size int) (uintptr, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return 0, err
	}
	if addr&pageMask != 0 {
		panic("r3malloc: VirtualAlloc returned a non-page-aligned address")
	}
	return addr, nil
}

func (p windowsPages) acquire(size int) (uintptr, error) {
	return p.virtualAlloc(size)
}

func (p windowsPages) acquireOvercommit(size int) (uintptr, error) {
	return p.virtualAlloc(size)
}

func (windowsPages) release(addr uintptr, size int) {
	if err := windows.VirtualFree(addr, 0, windows.MEM_RELEASE); err != nil {
		panic("r3malloc: VirtualFree failed: " + err.Error())
	}
}
