// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/codecat/go-libs/log"
	"github.com/dblohm7/modimage"
	"github.com/dblohm7/modimage/internal/batch"
)

var resolveStatic bool
var resolveDynamic bool
var loadIfNecessary bool
var listModules bool
var compareLen int
var outDir string
var batchPath string
var maxJobs int

func init() {
	flag.Usage = usage
	flag.BoolVar(&resolveStatic, "static", false, "resolve the on-disk image")
	flag.BoolVar(&resolveDynamic, "dynamic", false, "resolve the image loaded in this process")
	flag.BoolVar(&loadIfNecessary, "load", false, "load the module if it is not already loaded (runs its initialization code!)")
	flag.BoolVar(&listModules, "list", false, "list the modules loaded in this process")
	flag.IntVar(&compareLen, "compare", batch.DefaultCompare, "number of leading bytes to compare between static and dynamic images")
	flag.StringVar(&outDir, "out", "", "directory to write <name>.static and <name>.dynamic dumps into")
	flag.StringVar(&batchPath, "batch", "", "YAML batch file listing modules to resolve")
	flag.IntVar(&maxJobs, "jobs", 4, "maximum number of modules resolved concurrently")
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
	flag.PrintDefaults()
	fmt.Fprintln(flag.CommandLine.Output(), "  <name>...\n\tmodule names, e.g. user32.dll")
}

func usageln(args ...any) {
	fmt.Fprintln(flag.CommandLine.Output(), args...)
	usage()
	os.Exit(2)
}

func main() {
	flag.Parse()

	if listModules {
		if err := runList(); err != nil {
			log.Error("Unable to list modules: %s", err.Error())
			os.Exit(1)
		}
		if flag.NArg() == 0 && batchPath == "" {
			return
		}
	}

	if !resolveStatic && !resolveDynamic {
		resolveStatic, resolveDynamic = true, true
	}
	if compareLen < 0 {
		usageln("-compare must not be negative")
	}

	jobs, err := collectJobs()
	if err != nil {
		log.Error("%s", err.Error())
		os.Exit(1)
	}
	if len(jobs) == 0 {
		usageln("No module names provided")
	}

	results, err := resolveAll(jobs, maxJobs, resolveStatic, resolveDynamic)
	if err != nil {
		log.Error("%s", err.Error())
		os.Exit(1)
	}

	failed := false
	for _, r := range results {
		r.report(os.Stdout)
		if outDir != "" {
			if err := r.dump(outDir); err != nil {
				log.Error("Unable to dump %s: %s", r.job.Name, err.Error())
				failed = true
			}
		}
		failed = failed || !r.ok()
	}
	if failed {
		os.Exit(1)
	}
}

func collectJobs() ([]batch.Job, error) {
	var jobs []batch.Job
	if batchPath != "" {
		b, err := batch.Load(batchPath)
		if err != nil {
			return nil, err
		}
		jobs = b.Jobs()
	}

	for _, name := range flag.Args() {
		jobs = append(jobs, batch.Job{Name: name, Load: loadIfNecessary, Compare: compareLen})
	}
	return jobs, nil
}

func runList() error {
	mods, err := modimage.LoadedModules()
	if err != nil {
		return err
	}

	fmt.Printf("%d modules:\n\n", len(mods))
	for i, mod := range mods {
		fmt.Printf("Index %3d: %-24s %s\n\t%s\n", i, mod.Name, mod.Image.String(), mod.Path)
	}
	fmt.Println()
	return nil
}
