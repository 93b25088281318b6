// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package r3malloc

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

type unixPages struct{}

var globalPages pageProvider = unixPages{}

func (unixPages) mmap(size int, overcommit bool) (uintptr, error) {
	flags := unix.MAP_PRIVATE | unix.MAP_ANON
	if overcommit {
		flags |= unix.MAP_NORESERVE
	}
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil {
		return 0, err
	}
	addr := uintptr(unsafe.Pointer(&b[0]))
	if addr&pageMask != 0 {
		panic("r3malloc: mmap returned a non-page-aligned address")
	}
	return addr, nil
}

func (p unixPages) acquire(size int) (uintptr, error) {
	return p.mmap(size, false)
}

func (p unixPages) acquireOvercommit(size int) (uintptr, error) {
	return p.mmap(size, true)
}

func (unixPages) release(addr uintptr, size int) {
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	if err := unix.Munmap(b); err != nil {
		panic("r3malloc: munmap failed: " + err.Error())
	}
}
