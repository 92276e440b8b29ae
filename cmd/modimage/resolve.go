// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/codecat/go-libs/log"
	"github.com/dblohm7/modimage"
	"github.com/dblohm7/modimage/internal/batch"
	"golang.org/x/sync/errgroup"
)

type result struct {
	job batch.Job

	wantStatic  bool
	staticPath  string
	static      []byte
	staticErr   error
	wantDynamic bool
	dynamic     modimage.Image
	dynamicErr  error
}

func (r *result) ok() bool {
	return (!r.wantStatic || r.staticErr == nil) && (!r.wantDynamic || r.dynamicErr == nil)
}

func resolveOne(job batch.Job, wantStatic, wantDynamic bool) *result {
	r := &result{job: job, wantStatic: wantStatic, wantDynamic: wantDynamic}

	if wantStatic {
		r.staticPath, r.static, r.staticErr = modimage.ResolveStatic(job.Name)
	}

	if wantDynamic {
		r.dynamic, r.dynamicErr = modimage.LookupDynamic(job.Name, job.Load)
	}

	return r
}

// resolveAll resolves jobs with at most limit of them in flight. Results are
// returned in job order.
func resolveAll(jobs []batch.Job, limit int, wantStatic, wantDynamic bool) ([]*result, error) {
	if limit < 1 {
		limit = 1
	}

	results := make([]*result, len(jobs))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, job := range jobs {
		g.Go(func() error {
			r := resolveOne(job, wantStatic, wantDynamic)
			if errors.Is(r.dynamicErr, modimage.ErrInvalidName) {
				return r.dynamicErr
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *result) report(w io.Writer) {
	fmt.Fprintf(w, "%s:\n", r.job.Name)

	if r.wantStatic {
		if r.staticErr != nil {
			log.Warn("Static image of %s unavailable: %s", r.job.Name, r.staticErr.Error())
		} else {
			fmt.Fprintf(w, "\tstatic:  %s (%d bytes)\n", r.staticPath, len(r.static))
		}
	}

	if r.wantDynamic {
		if r.dynamicErr != nil {
			log.Warn("Dynamic image of %s unavailable: %s", r.job.Name, r.dynamicErr.Error())
		} else {
			fmt.Fprintf(w, "\tdynamic: %s\n", r.dynamic.String())
		}
	}

	if r.staticErr == nil && r.dynamicErr == nil && r.wantStatic && r.wantDynamic && r.job.Compare > 0 {
		d := modimage.Compare(r.static, r.dynamic, r.job.Compare)
		if d.Equal() {
			fmt.Fprintf(w, "\tfirst %d bytes identical\n", d.Compared)
		} else {
			fmt.Fprintf(w, "\t%d of first %d bytes differ, first at offset 0x%X\n", d.Differing, d.Compared, d.FirstDiff)
		}
	}

	fmt.Fprintln(w)
}

func (r *result) dump(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	base := filepath.Join(dir, filepath.Base(r.job.Name))
	if r.wantStatic && r.staticErr == nil {
		if err := os.WriteFile(base+".static", r.static, 0644); err != nil {
			return err
		}
	}
	if r.wantDynamic && r.dynamicErr == nil {
		if err := os.WriteFile(base+".dynamic", r.dynamic.Copy(-1), 0644); err != nil {
			return err
		}
	}
	return nil
}
