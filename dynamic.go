// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package modimage

import (
	"errors"
	"fmt"
	"strings"
)

func validateName(name string) error {
	if strings.IndexByte(name, 0) >= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// LookupDynamic locates the module called name in the current process's
// module table and returns the region the loader mapped it into. Name matching
// follows the host loader's own rules.
//
// If the module is not loaded and loadIfNecessary is true, LookupDynamic asks
// the loader to load it first. Loading a module runs its initialization code
// inside the current process, so loadIfNecessary must be treated as a request
// to execute that code and not as a passive query. A successful load is never
// undone.
//
// Errors wrap one of ErrInvalidName, ErrNotLoaded, ErrLoad, ErrQuery or
// ErrUnsupported.
func LookupDynamic(name string, loadIfNecessary bool) (Image, error) {
	if err := validateName(name); err != nil {
		return Image{}, err
	}
	return lookupDynamic(name, loadIfNecessary)
}

// GetDynamic is LookupDynamic with every failure collapsed to false, except for
// names containing an embedded NUL, which are a programming error and cause
// GetDynamic to panic.
func GetDynamic(name string, loadIfNecessary bool) (Image, bool) {
	img, err := LookupDynamic(name, loadIfNecessary)
	if err != nil {
		if errors.Is(err, ErrInvalidName) {
			panic(err)
		}
		return Image{}, false
	}
	return img, true
}

// LoadedModules returns a snapshot of the current process's module table.
// Modules may be loaded or unloaded by other code at any time, so the result
// can be stale as soon as it is returned.
func LoadedModules() ([]Module, error) {
	return loadedModules()
}
