// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package modimage resolves a named module image two ways: as the bytes of
// the module's file on disk (the static image), or as the region of the
// current process's address space that the loader mapped it into (the dynamic
// image). The two generally differ, since the loader applies relocations and
// other fixups to the dynamic image.
package modimage

import (
	"fmt"
	"unsafe"
)

// Image describes a module mapped into the current process. It does not own
// the memory it describes: the region belongs to the loader and remains valid
// only until the module is unloaded by any code in the process.
type Image struct {
	Base uintptr
	Size uintptr

	// Readable is the length of the leading run of the image that is mapped
	// readable. Bytes beyond it are never touched.
	Readable uintptr
}

// IsZero reports whether img describes no region at all.
func (img Image) IsZero() bool {
	return img.Base == 0 || img.Size == 0
}

// Limit returns the first address past the end of img.
func (img Image) Limit() uintptr {
	return img.Base + img.Size
}

// Contains reports whether addr lies within img.
func (img Image) Contains(addr uintptr) bool {
	return addr >= img.Base && addr < img.Limit()
}

// readable returns how many leading bytes of img may be touched.
func (img Image) readable() uintptr {
	return min(img.Readable, img.Size)
}

// Bytes returns a view of the readable prefix of img's memory. The slice
// aliases loader-owned memory; it must not be written to, and it must not be
// used after the module has been unloaded. Use Copy if the contents need to
// outlive the module.
//
// On Linux an image can span inaccessible pages between segments, so the view
// may be shorter than Size.
func (img Image) Bytes() []byte {
	if img.IsZero() {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(img.Base)), img.readable())
}

// Copy returns a copy of the first n bytes of img. If n is negative or exceeds
// the readable prefix, the whole prefix is copied.
func (img Image) Copy(n int) []byte {
	view := img.Bytes()
	if n >= 0 && n < len(view) {
		view = view[:n]
	}
	return append([]byte(nil), view...)
}

func (img Image) String() string {
	return fmt.Sprintf("0x%X-0x%X (%d bytes)", img.Base, img.Limit(), img.Size)
}

// Module is an entry in the current process's module table.
type Module struct {
	Name string // base name as reported by the host loader
	Path string // full path of the backing file, when known
	Image
}
