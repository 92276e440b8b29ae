// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package batch reads the YAML files that drive batch runs of cmd/modimage.
package batch

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCompare is the comparison window used when a batch does not set one.
// It covers the leading headers of a typical module.
const DefaultCompare = 0x400

var (
	errEmptyName       = errors.New("module entry has no name")
	errNegativeCompare = errors.New("compare window must not be negative")
	errNoModules       = errors.New("batch lists no modules")
)

// Entry is one module to resolve. Load and Compare override the batch-wide
// defaults when set.
type Entry struct {
	Name    string `yaml:"name"`
	Load    *bool  `yaml:"load,omitempty"`
	Compare *int   `yaml:"compare,omitempty"`
}

// Batch models a batch file.
type Batch struct {
	Load    bool    `yaml:"load"`
	Compare int     `yaml:"compare"`
	Modules []Entry `yaml:"modules"`
}

// Job is an Entry with the batch defaults applied.
type Job struct {
	Name    string
	Load    bool
	Compare int
}

// Load reads and validates the batch file at path.
func Load(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("batch: read %s: %w", path, err)
	}

	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("batch: %s: %w", path, err)
	}
	return b, nil
}

// Parse decodes and validates a batch document. Unknown keys are rejected so
// that typos do not silently fall back to defaults.
func Parse(data []byte) (*Batch, error) {
	b := &Batch{Compare: DefaultCompare}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(b); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Batch) validate() error {
	if len(b.Modules) == 0 {
		return errNoModules
	}
	if b.Compare < 0 {
		return errNegativeCompare
	}
	for i, e := range b.Modules {
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("modules[%d]: %w", i, errEmptyName)
		}
		if e.Compare != nil && *e.Compare < 0 {
			return fmt.Errorf("modules[%d] (%s): %w", i, e.Name, errNegativeCompare)
		}
	}
	return nil
}

// Jobs returns the batch's entries in file order with defaults applied.
func (b *Batch) Jobs() []Job {
	jobs := make([]Job, 0, len(b.Modules))
	for _, e := range b.Modules {
		job := Job{Name: e.Name, Load: b.Load, Compare: b.Compare}
		if e.Load != nil {
			job.Load = *e.Load
		}
		if e.Compare != nil {
			job.Compare = *e.Compare
		}
		jobs = append(jobs, job)
	}
	return jobs
}
