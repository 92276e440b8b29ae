// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package modimage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/tc-hib/winres"
)

const fixtureResName = winres.Name("MODIMAGE")

// writeStampedExecutable writes a copy of the test executable into dir, with
// tag embedded as an RT_RCDATA resource so that otherwise identical PE images
// can be told apart.
func writeStampedExecutable(t *testing.T, dir, name, tag string) []byte {
	t.Helper()

	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable error: %v", err)
	}
	inf, err := os.Open(exe)
	if err != nil {
		t.Fatal(err)
	}
	defer inf.Close()

	var rs winres.ResourceSet
	if err := rs.Set(winres.RT_RCDATA, fixtureResName, 0, []byte(tag)); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := rs.WriteToEXE(&out, inf, winres.ForceCheckSum()); err != nil {
		t.Fatalf("stamping %q: %v", exe, err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), out.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return out.Bytes()
}

func stampOf(t *testing.T, image []byte) string {
	t.Helper()
	rs, err := winres.LoadFromEXE(bytes.NewReader(image))
	if err != nil {
		t.Fatalf("reading resources: %v", err)
	}
	return string(rs.Get(winres.RT_RCDATA, fixtureResName, 0))
}

func TestStaticPEFixtures(t *testing.T) {
	const name = "modimage-fixture.exe"

	root := t.TempDir()
	earlier := filepath.Join(root, "earlier")
	later := filepath.Join(root, "later")
	wantEarlier := writeStampedExecutable(t, earlier, name, "earlier")
	wantLater := writeStampedExecutable(t, later, name, "later")

	sp := SearchPath{staticDir(earlier), staticDir(later)}
	got, err := sp.Read(name)
	if err != nil {
		t.Fatalf("Read(%q) error: %v", name, err)
	}
	if !bytes.Equal(got, wantEarlier) {
		t.Errorf("Read(%q) did not return the earlier image verbatim", name)
	}
	if stamp := stampOf(t, got); stamp != "earlier" {
		t.Errorf("Read(%q) returned the %q image, want %q", name, stamp, "earlier")
	}

	// With the earlier copy gone, the later one is found.
	if err := os.Remove(filepath.Join(earlier, name)); err != nil {
		t.Fatal(err)
	}
	got, err = sp.Read(name)
	if err != nil {
		t.Fatalf("Read(%q) error: %v", name, err)
	}
	if !bytes.Equal(got, wantLater) || stampOf(t, got) != "later" {
		t.Errorf("Read(%q) did not return the later image", name)
	}
}
