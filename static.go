// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package modimage

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/exp/slices"
)

const (
	// OutDirEnv names the environment variable holding the build output
	// directory consulted first by the default search path.
	OutDirEnv = "OUT_DIR"

	gameSubdir = "game"
)

// SearchRule produces one candidate directory of a SearchPath. Dir is
// evaluated each time the path is searched, so rules that depend on the
// environment observe its value at call time.
type SearchRule struct {
	Name string
	Dir  func() string
}

// SearchPath is an ordered list of candidate directories. The first directory
// containing the requested file wins.
type SearchPath []SearchRule

var defaultSearchPath = SearchPath{
	{Name: "outdir", Dir: outDirGame},
	{Name: "cwd", Dir: func() string { return "" }},
	{Name: "system", Dir: func() string { return systemDir }},
	{Name: "osroot", Dir: func() string { return osRootDir }},
	{Name: "game", Dir: func() string { return gameSubdir }},
}

// DefaultSearchPath returns the search order used by GetStatic:
// $OUT_DIR/game, the current working directory, the system directory, the OS
// root directory, and finally the local game directory.
func DefaultSearchPath() SearchPath {
	return slices.Clone(defaultSearchPath)
}

// outDirGame appends the game subdirectory to $OUT_DIR without cleaning, so
// with OUT_DIR unset it names the game directory at the filesystem root and
// not the one in the working directory.
func outDirGame() string {
	return os.Getenv(OutDirEnv) + string(filepath.Separator) + gameSubdir
}

// candidate is the single place where search directories and image names are
// combined. An empty dir yields name itself, which resolves against the
// current working directory.
func candidate(dir, name string) string {
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// Dirs evaluates every rule in sp and returns the resulting directories in
// search order.
func (sp SearchPath) Dirs() []string {
	dirs := make([]string, 0, len(sp))
	for _, rule := range sp {
		dirs = append(dirs, rule.Dir())
	}
	return dirs
}

// Locate returns the path of name within the first directory of sp that
// contains it as a regular file. It returns an error wrapping ErrNotFound when
// no directory does.
func (sp SearchPath) Locate(name string) (string, error) {
	for _, rule := range sp {
		if path := candidate(rule.Dir(), name); isFile(path) {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Resolve locates name within sp and returns both the path it was found at
// and the full contents of that file. The search stops at the first match; if
// that file cannot be read, later directories are not consulted and the
// returned error wraps ErrRead.
func (sp SearchPath) Resolve(name string) (path string, data []byte, err error) {
	path, err = sp.Locate(name)
	if err != nil {
		return "", nil, err
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return path, nil, fmt.Errorf("%w %q: %w", ErrRead, path, err)
	}
	return path, data, nil
}

// Read is Resolve without the path.
func (sp SearchPath) Read(name string) ([]byte, error) {
	_, data, err := sp.Resolve(name)
	return data, err
}

// LocateStatic returns the path at which GetStatic would read name.
func LocateStatic(name string) (string, error) {
	return defaultSearchPath.Locate(name)
}

// ResolveStatic returns both the path at which name was found and its
// contents. See SearchPath.Resolve.
func ResolveStatic(name string) (string, []byte, error) {
	return defaultSearchPath.Resolve(name)
}

// ReadStatic is GetStatic with diagnostics: failures are reported as errors
// wrapping ErrNotFound or ErrRead.
func ReadStatic(name string) ([]byte, error) {
	return defaultSearchPath.Read(name)
}

// GetStatic returns the on-disk contents of the image called name, searching
// the directories of DefaultSearchPath in order. It returns false if no
// directory contains the image or if the file that was found cannot be read.
func GetStatic(name string) ([]byte, bool) {
	data, err := ReadStatic(name)
	if err != nil {
		return nil, false
	}
	return data, true
}
