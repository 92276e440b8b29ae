// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package modimage

import (
	"errors"
)

var (
	ErrNotFound    = errors.New("image not present in any search directory")
	ErrRead        = errors.New("reading image file")
	ErrNotLoaded   = errors.New("module not loaded in the current process")
	ErrLoad        = errors.New("loading module")
	ErrQuery       = errors.New("querying module information")
	ErrInvalidName = errors.New("module name contains an embedded NUL")
	ErrUnsupported = errors.New("operation unsupported on this platform")
)
