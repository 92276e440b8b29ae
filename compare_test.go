// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package modimage

import (
	"bytes"
	"runtime"
	"testing"
	"unsafe"
)

type compareTestCase struct {
	static  string
	dynamic string
	n       int
	want    Diff
}

var compareTestCases = []compareTestCase{
	compareTestCase{"MZ\x90\x00", "MZ\x90\x00", -1, Diff{Compared: 4, FirstDiff: -1, StaticLen: 4, DynamicLen: 4}},
	compareTestCase{"MZ\x90\x00", "MZ\x91\x01", -1, Diff{Compared: 4, Differing: 2, FirstDiff: 2, StaticLen: 4, DynamicLen: 4}},
	compareTestCase{"MZ\x90\x00", "MZ\x91\x01", 2, Diff{Compared: 2, FirstDiff: -1, StaticLen: 4, DynamicLen: 4}},
	compareTestCase{"MZ", "MZ\x00\x00\x00\x00", -1, Diff{Compared: 2, FirstDiff: -1, StaticLen: 2, DynamicLen: 6}},
	compareTestCase{"AZ\x00\x00", "MZ", 100, Diff{Compared: 2, Differing: 1, FirstDiff: 0, StaticLen: 4, DynamicLen: 2}},
	compareTestCase{"", "MZ", -1, Diff{FirstDiff: -1, DynamicLen: 2}},
	compareTestCase{"MZ", "MZ", 0, Diff{FirstDiff: -1, StaticLen: 2, DynamicLen: 2}},
}

func TestCompareBytes(t *testing.T) {
	for _, tc := range compareTestCases {
		got := compareBytes([]byte(tc.static), []byte(tc.dynamic), tc.n)
		if got != tc.want {
			t.Errorf("compareBytes(%q, %q, %d) got %+v, want %+v", tc.static, tc.dynamic, tc.n, got, tc.want)
		}
		if got.Equal() != (tc.want.Differing == 0) {
			t.Errorf("compareBytes(%q, %q, %d).Equal() got %v", tc.static, tc.dynamic, tc.n, got.Equal())
		}
	}
}

func TestImageView(t *testing.T) {
	buf := []byte("MZ\x90\x00\x03\x00\x00\x00")
	img := Image{Base: uintptr(unsafe.Pointer(&buf[0])), Size: uintptr(len(buf)), Readable: uintptr(len(buf))}

	if !bytes.Equal(img.Bytes(), buf) {
		t.Errorf("Bytes() got %q, want %q", img.Bytes(), buf)
	}
	if !img.Contains(img.Base) || img.Contains(img.Limit()) {
		t.Errorf("Contains is wrong at the bounds of %v", img)
	}

	head := img.Copy(2)
	if string(head) != "MZ" {
		t.Errorf("Copy(2) got %q, want %q", head, "MZ")
	}
	// Copies must not alias the image.
	all := img.Copy(-1)
	all[0] = 'X'
	if buf[0] != 'M' {
		t.Errorf("Copy(-1) aliases the image")
	}
	if len(img.Copy(len(buf)+10)) != len(buf) {
		t.Errorf("Copy beyond Size was not clamped")
	}

	d := Compare([]byte("MZ\x90\x00"), img, 4)
	if !d.Equal() || d.Compared != 4 {
		t.Errorf("Compare got %+v, want 4 identical bytes", d)
	}

	runtime.KeepAlive(buf)

	var zero Image
	if !zero.IsZero() || zero.Bytes() != nil {
		t.Errorf("zero Image is not empty")
	}
}

func TestImageReadablePrefix(t *testing.T) {
	buf := []byte("\x7fELF\x02\x01\x01\x00")
	// Everything past the first four bytes stands in for an inaccessible gap.
	img := Image{Base: uintptr(unsafe.Pointer(&buf[0])), Size: 0x200000, Readable: 4}

	if got := img.Bytes(); len(got) != 4 || string(got) != "\x7fELF" {
		t.Errorf("Bytes() got %q, want the 4 readable bytes", got)
	}
	if got := img.Copy(-1); len(got) != 4 {
		t.Errorf("Copy(-1) got %d bytes, want 4", len(got))
	}
	if got := img.Copy(0x100000); len(got) != 4 {
		t.Errorf("Copy(0x100000) got %d bytes, want 4", len(got))
	}

	static := make([]byte, 0x100000)
	copy(static, buf)
	d := Compare(static, img, 2000000)
	if d.Compared != 4 || d.DynamicLen != 4 || !d.Equal() {
		t.Errorf("Compare got %+v, want 4 identical bytes", d)
	}

	runtime.KeepAlive(buf)

	// Readable never reaches past Size.
	img.Size, img.Readable = 2, 8
	if got := img.Bytes(); len(got) != 2 {
		t.Errorf("Bytes() with Readable > Size got %d bytes, want 2", len(got))
	}
	runtime.KeepAlive(buf)
}
