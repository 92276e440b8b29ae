// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package modimage

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// moduleHandle looks up an already-loaded module without touching its load
// reference count, like GetModuleHandle.
func moduleHandle(name16 *uint16) (windows.Handle, error) {
	var hmod windows.Handle
	if err := windows.GetModuleHandleEx(
		windows.GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT,
		name16,
		&hmod,
	); err != nil {
		return 0, err
	}
	return hmod, nil
}

func moduleImage(hmod windows.Handle) (Image, error) {
	var modInfo windows.ModuleInfo
	if err := windows.GetModuleInformation(
		windows.CurrentProcess(),
		hmod,
		&modInfo,
		uint32(unsafe.Sizeof(modInfo)),
	); err != nil {
		return Image{}, fmt.Errorf("%w: %w", ErrQuery, err)
	}

	// The loader maps every page of a PE image readable.
	size := uintptr(modInfo.SizeOfImage)
	return Image{Base: modInfo.BaseOfDll, Size: size, Readable: size}, nil
}

func lookupDynamic(name string, loadIfNecessary bool) (Image, error) {
	name16, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	hmod, err := moduleHandle(name16)
	if err != nil {
		if !loadIfNecessary {
			return Image{}, fmt.Errorf("%w %q: %w", ErrNotLoaded, name, err)
		}
		// The reference taken here is intentionally never released.
		if hmod, err = windows.LoadLibrary(name); err != nil {
			return Image{}, fmt.Errorf("%w %q: %w", ErrLoad, name, err)
		}
	}

	return moduleImage(hmod)
}

func enumModuleHandles(proc windows.Handle) ([]windows.Handle, error) {
	const szHandle = uint32(unsafe.Sizeof(windows.Handle(0)))

	hmods := make([]windows.Handle, 256)
	for {
		cb := uint32(len(hmods)) * szHandle
		var needed uint32
		if err := windows.EnumProcessModules(proc, &hmods[0], cb, &needed); err != nil {
			return nil, err
		}
		if needed <= cb {
			return hmods[:needed/szHandle], nil
		}
		// The table grew between calls; retry with room to spare.
		hmods = make([]windows.Handle, needed/szHandle+16)
	}
}

func loadedModules() ([]Module, error) {
	proc := windows.CurrentProcess()
	hmods, err := enumModuleHandles(proc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}

	result := make([]Module, 0, len(hmods))
	var buf [windows.MAX_PATH]uint16
	for _, hmod := range hmods {
		img, err := moduleImage(hmod)
		if err != nil {
			// Unloaded since enumeration.
			continue
		}

		mod := Module{Image: img}
		if err := windows.GetModuleBaseName(proc, hmod, &buf[0], uint32(len(buf))); err == nil {
			mod.Name = windows.UTF16ToString(buf[:])
		}
		if err := windows.GetModuleFileNameEx(proc, hmod, &buf[0], uint32(len(buf))); err == nil {
			mod.Path = windows.UTF16ToString(buf[:])
		}
		result = append(result, mod)
	}

	return result, nil
}
