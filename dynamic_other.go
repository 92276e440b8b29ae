// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !windows && !linux

package modimage

func lookupDynamic(name string, loadIfNecessary bool) (Image, error) {
	return Image{}, ErrUnsupported
}

func loadedModules() ([]Module, error) {
	return nil, ErrUnsupported
}
