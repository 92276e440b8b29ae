// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build linux

package modimage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ebitengine/purego"
	"github.com/prometheus/procfs"
)

const deletedSuffix = " (deleted)"

func selfMaps() ([]*procfs.ProcMap, error) {
	proc, err := procfs.Self()
	if err != nil {
		return nil, err
	}
	return proc.ProcMaps()
}

// modulesFromMaps groups the file-backed mappings in maps by their backing
// file. Only files with at least one executable mapping are treated as
// modules; data files mapped into the process are skipped. Each module's image
// spans from its lowest mapping to its highest, which on Linux can include
// inaccessible gaps between segments. Readable covers the run of contiguous
// readable mappings that starts at the lowest one.
//
// maps must be in ascending address order, as the kernel reports them.
func modulesFromMaps(maps []*procfs.ProcMap) []Module {
	type group struct {
		exec    bool
		readEnd uintptr // end of the readable run from Base
		broken  bool    // the readable run has ended
	}

	var mods []Module
	var groups []group
	index := make(map[string]int)

	for _, m := range maps {
		if !strings.HasPrefix(m.Pathname, "/") {
			// anonymous, [heap], [stack], [vdso] and friends
			continue
		}
		path := strings.TrimSuffix(m.Pathname, deletedSuffix)
		exec := m.Perms != nil && m.Perms.Execute
		read := m.Perms != nil && m.Perms.Read

		i, ok := index[path]
		if !ok {
			index[path] = len(mods)
			mods = append(mods, Module{
				Name:  filepath.Base(path),
				Path:  path,
				Image: Image{Base: m.StartAddr, Size: m.EndAddr - m.StartAddr},
			})
			g := group{exec: exec, readEnd: m.StartAddr, broken: !read}
			if read {
				g.readEnd = m.EndAddr
			}
			groups = append(groups, g)
			continue
		}

		mod, g := &mods[i], &groups[i]
		end := max(mod.Limit(), m.EndAddr)
		mod.Size = end - mod.Base
		g.exec = g.exec || exec
		if !g.broken && read && m.StartAddr == g.readEnd {
			g.readEnd = m.EndAddr
		} else {
			g.broken = true
		}
	}

	result := mods[:0]
	for i, mod := range mods {
		if !groups[i].exec {
			continue
		}
		mod.Readable = groups[i].readEnd - mod.Base
		result = append(result, mod)
	}
	return result
}

// matchModule reports whether mod answers to name. Names containing a path
// separator must match the full path of the backing file; bare names match
// its base name, as with dlopen. The kernel reports the path that symlinks
// resolved to, so a name also matches when it resolves to the backing file:
// either directly or, for a bare name such as a soname, as a link beside it.
func matchModule(mod Module, name string) bool {
	if strings.ContainsRune(name, '/') {
		name = filepath.Clean(name)
		return mod.Path == name || resolvesTo(name, mod.Path)
	}
	if mod.Name == name {
		return true
	}
	return resolvesTo(filepath.Join(filepath.Dir(mod.Path), name), mod.Path)
}

func resolvesTo(link, path string) bool {
	target, err := filepath.EvalSymlinks(link)
	return err == nil && target == path
}

// findModule prefers an exact match over one made through a symlink.
func findModule(mods []Module, name string) (Module, bool) {
	for _, mod := range mods {
		if mod.Name == name || mod.Path == name {
			return mod, true
		}
	}
	for _, mod := range mods {
		if matchModule(mod, name) {
			return mod, true
		}
	}
	return Module{}, false
}

func findLoaded(name string) (Module, bool, error) {
	maps, err := selfMaps()
	if err != nil {
		return Module{}, false, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	mod, ok := findModule(modulesFromMaps(maps), name)
	return mod, ok, nil
}

func lookupDynamic(name string, loadIfNecessary bool) (Image, error) {
	mod, ok, err := findLoaded(name)
	if err != nil {
		return Image{}, err
	}
	if ok {
		return mod.Image, nil
	}
	if !loadIfNecessary {
		return Image{}, fmt.Errorf("%w: %q", ErrNotLoaded, name)
	}

	// The handle is never closed, so the module stays mapped for the life of
	// the process. Concurrent callers share the loader's single copy.
	if _, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL); err != nil {
		return Image{}, fmt.Errorf("%w %q: %w", ErrLoad, name, err)
	}

	mod, ok, err = findLoaded(name)
	if err != nil {
		return Image{}, err
	}
	if !ok {
		return Image{}, fmt.Errorf("%w: %q is loaded but has no executable mapping", ErrQuery, name)
	}
	return mod.Image, nil
}

func loadedModules() ([]Module, error) {
	maps, err := selfMaps()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return modulesFromMaps(maps), nil
}
