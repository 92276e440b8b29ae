// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package modimage

const (
	systemDir = `C:\Windows\system32`
	osRootDir = `C:\Windows`
)
