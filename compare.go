// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package modimage

// Diff summarizes a byte-wise comparison between a static and a dynamic image.
type Diff struct {
	Compared   int // number of bytes compared
	Differing  int // number of compared bytes that differ
	FirstDiff  int // offset of the first differing byte, or -1
	StaticLen  int
	DynamicLen int
}

// Equal reports whether every compared byte matched.
func (d Diff) Equal() bool {
	return d.Differing == 0
}

// Compare compares the first n bytes of static against the same range of
// dynamic. The window is clamped to the shorter of static and the readable
// prefix of dynamic; a negative n compares as much as both have in common.
//
// No attempt is made to understand either image. File offsets and virtual
// addresses only coincide in the leading headers of a module, so differences
// beyond them reflect layout as much as loader fixups.
func Compare(static []byte, dynamic Image, n int) Diff {
	return compareBytes(static, dynamic.Bytes(), n)
}

func compareBytes(static, dynamic []byte, n int) Diff {
	d := Diff{FirstDiff: -1, StaticLen: len(static), DynamicLen: len(dynamic)}

	d.Compared = min(len(static), len(dynamic))
	if n >= 0 && n < d.Compared {
		d.Compared = n
	}

	for i := 0; i < d.Compared; i++ {
		if static[i] == dynamic[i] {
			continue
		}
		if d.FirstDiff < 0 {
			d.FirstDiff = i
		}
		d.Differing++
	}
	return d
}
