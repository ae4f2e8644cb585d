// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Sortfigs plots precomputed sort statistics, such as hardware counter
// summaries, on the same log-log axes sortbench uses.
//
// Usage:
//
//	sortfigs [flags] inputs...
//
// Each input is a CSV file with Method, Size, Mean and SD columns:
//
//	// L1 data cache misses
//	Method, Size, Mean, SD
//	Classical, 1000, 5230.5, 140.2
//	Block partition, 1000, 3120.0, 98.7
//
// and produces one figure of mean per element against size, with a
// shaded band of one standard deviation. An input may be given a
// title with the "title=file" syntax; otherwise the title is the file
// name without its extension. The figure is written to "<title>.pdf"
// in the -o directory.
//
//	sortfigs -unit "cache misses" "L1 misses=l1.csv" branches.csv
//
// Records that cannot be parsed are reported on stderr and left out
// of the figure. A file without the required columns is an error, but
// the remaining inputs are still plotted.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/zchee/sortperf/plot"
	"github.com/zchee/sortperf/series"
	"github.com/zchee/sortperf/statcsv"
)

func usage(flags *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(flags.Output(), `Usage: sortfigs [flags] inputs...

Each input is a CSV summary with Method, Size, Mean and SD columns,
given as "file" or "title=file". sortfigs draws one figure per input.

`)
		flags.PrintDefaults()
	}
}

func main() {
	if err := sortfigs(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "sortfigs: %v\n", err)
		os.Exit(1)
	}
}

func sortfigs(w, wErr io.Writer, args []string) error {
	flags := flag.NewFlagSet("sortfigs", flag.ContinueOnError)
	flags.SetOutput(wErr)
	flags.Usage = usage(flags)
	flagTitle := flags.String("title", "", "use `title` for the figure of a single input")
	flagUnit := flags.String("unit", "", "label the y axis with `unit` per element")
	flagOut := flags.String("o", ".", "write figures to `dir`")
	flagFormat := flags.String("format", "pdf", "figure file `format`: pdf, svg, eps or png")
	flagWidth := flags.Float64("width", 10, "figure width in inches")
	flagHeight := flags.Float64("height", 6, "figure height in inches")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return errors.New("no inputs")
	}
	if *flagTitle != "" && flags.NArg() > 1 {
		return errors.New("-title applies to a single input; use title=file for several")
	}
	switch *flagFormat {
	case "pdf", "svg", "eps", "png":
	default:
		return errors.Errorf("unsupported -format %q", *flagFormat)
	}

	r := plot.NewGonum(*flagWidth, *flagHeight)
	var failed int
	for _, arg := range flags.Args() {
		title, path := parseInput(arg)
		if *flagTitle != "" {
			title = *flagTitle
		}
		out := filepath.Join(*flagOut, title+"."+*flagFormat)
		if err := figure(r, wErr, title, *flagUnit, path, out); err != nil {
			fmt.Fprintf(wErr, "%v\n", err)
			failed++
			continue
		}
		fmt.Fprintln(w, "Plot saved to", out)
	}
	if failed > 0 {
		return errors.Errorf("%d of %d inputs failed", failed, flags.NArg())
	}
	return nil
}

// parseInput splits a "title=file" argument.
func parseInput(arg string) (title, path string) {
	if t, p, ok := strings.Cut(arg, "="); ok && t != "" {
		return t, p
	}
	return strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg)), arg
}

func figure(r plot.Renderer, wErr io.Writer, title, unit, path, out string) error {
	f, err := statcsv.ReadFile(path)
	if err != nil {
		return err
	}
	for _, w := range f.Warnings {
		fmt.Fprintln(wErr, w)
	}
	names, ss := series.FromRecords(f)
	if len(names) == 0 {
		return errors.Errorf("%s: no records", path)
	}

	var sizes []int
	for _, s := range ss {
		for _, size := range s.Sizes() {
			if !slices.Contains(sizes, size) {
				sizes = append(sizes, size)
			}
		}
	}
	slices.Sort(sizes)

	fig := plot.Figure{
		Title:  title,
		Sizes:  sizes,
		Names:  names,
		Series: ss,
		Metric: series.PerElement,
		Bands:  true,
	}
	if unit != "" {
		fig.YLabel = unit + " per element"
	}
	return r.Render(fig, out)
}
