// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !windows

package modimage

const (
	systemDir = "/usr/lib"
	osRootDir = "/lib"
)
