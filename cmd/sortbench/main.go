// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Sortbench times sort implementations over increasing input sizes
// and plots their cost per element on log-log axes.
//
// Usage:
//
//	sortbench [flags]
//
// For every size, sortbench generates one workload of uniform float32
// values in [0, 1) and times each registered sort on its own copy of
// it. Sorts come from the Go standard library (-builtin) and from
// C-ABI symbols in a shared library (-lib and -entry, or the library
// section of a -config file). A library symbol is either timed by
// sortbench:
//
//	void f32_quicksort(float *buf, size_t n);
//
// or reports its own elapsed nanoseconds:
//
//	uint64_t f32_pdqsort_timed(float *buf, size_t n);
//
// Select the second form with a ":self-reported" suffix:
//
//	sortbench -lib ./librust_sorts.so \
//		-entry Quicksort=f32_quicksort \
//		-entry PDQSort=f32_pdqsort_timed:self-reported \
//		-sizes 100,1k,10k,100k,1M -trials 5
//
// While running, sortbench prints the mean cost of each cell:
//
//	n=1,000
//	Std sort μs per call: 21.3 μs
//	Quicksort μs per call: 18.9 μs
//	PDQSort skipped: PDQSort at n=1000, trial 0: reported negative duration -1ns
//
// and then a summary table with one row per size and one column per
// sort, where cells without a measurement show as "skipped" with a
// footnote giving the reason. Finally it writes the plot (-plot, by
// default sorts.png): mean cost per element against size, with a
// shaded band of one standard deviation when there is more than one
// trial.
//
// The raw trials can be saved in the Go benchmark format with -o,
// which benchstat also reads, and rendered again later with -replay.
// With -db, the run is also archived in a SQLite or MySQL database
// and can be rendered again with -from-store.
//
// A failure to load the library or to write the plot is fatal. A sort
// that fails, panics, or reports an impossible time only loses the
// affected cell.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/term"

	"github.com/zchee/sortperf/bench"
	"github.com/zchee/sortperf/benchfmt"
	"github.com/zchee/sortperf/benchunit"
	"github.com/zchee/sortperf/cmd/sortbench/internal/benchtab"
	"github.com/zchee/sortperf/config"
	"github.com/zchee/sortperf/entry"
	"github.com/zchee/sortperf/entry/dl"
	"github.com/zchee/sortperf/plot"
	"github.com/zchee/sortperf/series"
	"github.com/zchee/sortperf/store"
	"github.com/zchee/sortperf/timing"
	"github.com/zchee/sortperf/workload"
)

func usage(flags *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(flags.Output(), `Usage: sortbench [flags]

sortbench times sort implementations over increasing input sizes,
prints a summary table, and plots the cost per element on log-log
axes.

`)
		flags.PrintDefaults()
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := sortbench(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sortbench: %v\n", err)
		os.Exit(1)
	}
}

// entryFlags collects repeated -entry name=symbol[:convention] flags.
type entryFlags []config.Entry

func (f *entryFlags) String() string {
	var parts []string
	for _, e := range *f {
		parts = append(parts, e.Name+"="+e.Symbol)
	}
	return strings.Join(parts, ",")
}

func (f *entryFlags) Set(s string) error {
	name, sym, ok := strings.Cut(s, "=")
	if !ok || name == "" || sym == "" {
		return errors.Errorf("want name=symbol[:convention], got %q", s)
	}
	sym, conv, _ := strings.Cut(sym, ":")
	if _, err := entry.ParseConvention(conv); err != nil {
		return err
	}
	*f = append(*f, config.Entry{Name: name, Symbol: sym, Convention: conv})
	return nil
}

// A result is what gets tabulated and plotted, whether it was just
// measured, replayed, or loaded from the archive.
type result struct {
	sizes  []int
	names  []string
	series map[string]*series.Series
	skips  []bench.Skip
}

func sortbench(ctx context.Context, w, wErr io.Writer, args []string) error {
	flags := flag.NewFlagSet("sortbench", flag.ContinueOnError)
	flags.SetOutput(wErr)
	flags.Usage = usage(flags)
	flagConfig := flags.String("config", "", "read the run configuration from YAML `file`")
	flagSizes := flags.String("sizes", "", "comma-separated workload `sizes`; SI and IEC suffixes are allowed (1k, 1Mi)")
	flagTrials := flags.Int("trials", 1, "recorded calls per sort and size")
	flagWarmup := flags.Int("warmup", 0, "unrecorded calls per sort and size")
	flagSeed := flags.Uint64("seed", 0, "seed the workload generator; 0 uses fresh entropy")
	flagTrim := flags.Bool("trim", false, "drop IQR outliers before summarizing")
	flagLib := flags.String("lib", "", "load sort entry points from shared library `path`")
	var flagEntries entryFlags
	flags.Var(&flagEntries, "entry", "register library symbol as `name=symbol[:self-reported]` (repeatable)")
	flagBuiltin := flags.String("builtin", strings.Join(entry.BuiltinNames(), ","), "comma-separated Go `sorts` to include, or \"none\"")
	flagPlot := flags.String("plot", "sorts.png", "write the plot to `file`; the extension selects the format; \"\" disables")
	flagMetric := flags.String("metric", "per-element", "plot `metric`: per-element, per-call or throughput")
	flagBands := flags.Bool("bands", true, "shade one standard deviation around each curve")
	flagFormat := flags.String("format", "text", "print the summary in `format`:\n  text - plain text\n  csv  - comma-separated values (warnings will be written to stderr)\n")
	flagOut := flags.String("o", "", "write raw trials in the Go benchmark format to `file`")
	flagReplay := flags.String("replay", "", "summarize trials from a Go benchmark format `file` instead of running")
	flagDB := flags.String("db", "", "archive the run in `driver:dsn` (sqlite3 or mysql)")
	flagFromStore := flags.String("from-store", "", "summarize archived run `id` from -db instead of running")
	flagTrace := flags.String("trace", "", "write OpenTelemetry spans to `file`")
	flagVerbose := flags.Bool("v", false, "log every trial")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() > 0 {
		flags.Usage()
		return errors.Errorf("unexpected arguments %q", flags.Args())
	}

	// Load the configuration, then let explicitly set flags win.
	cfg := config.Default()
	if *flagConfig != "" {
		var err error
		if cfg, err = config.Load(*flagConfig); err != nil {
			return err
		}
	}
	var flagErr error
	flags.Visit(func(f *flag.Flag) {
		if flagErr != nil {
			return
		}
		switch f.Name {
		case "sizes":
			sizes, err := benchunit.ParseSizes(*flagSizes)
			if err != nil {
				flagErr = errors.Wrap(err, "-sizes")
				return
			}
			cfg.Sizes = cfg.Sizes[:0]
			for _, n := range sizes {
				cfg.Sizes = append(cfg.Sizes, config.Size(n))
			}
		case "trials":
			cfg.Trials = *flagTrials
		case "warmup":
			cfg.Warmup = *flagWarmup
		case "seed":
			cfg.Seed = *flagSeed
		case "trim":
			cfg.TrimOutliers = *flagTrim
		case "builtin":
			cfg.Builtin = nil
			if *flagBuiltin != "none" {
				for _, key := range strings.Split(*flagBuiltin, ",") {
					if key = strings.TrimSpace(key); key != "" {
						cfg.Builtin = append(cfg.Builtin, key)
					}
				}
			}
		case "lib":
			if cfg.Library == nil {
				cfg.Library = new(config.Library)
			}
			cfg.Library.Path = *flagLib
		case "plot":
			cfg.Plot.Path = *flagPlot
		case "metric":
			cfg.Plot.Metric = *flagMetric
		case "bands":
			cfg.Plot.Bands = *flagBands
		case "o":
			cfg.BenchOutput = *flagOut
		case "db":
			driver, dsn, err := store.ParseTarget(*flagDB)
			if err != nil {
				flagErr = err
				return
			}
			cfg.Store = &config.Store{Driver: driver, DSN: dsn}
		}
	})
	if flagErr != nil {
		return flagErr
	}
	if len(flagEntries) > 0 {
		if cfg.Library == nil {
			return errors.New("-entry requires -lib")
		}
		cfg.Library.Entries = append(cfg.Library.Entries, flagEntries...)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	metric, err := series.ParseMetric(cfg.Plot.Metric)
	if err != nil {
		return err
	}

	var format func(t *benchtab.Table) error
	switch *flagFormat {
	default:
		return errors.New("-format must be text or csv")
	case "text":
		format = func(t *benchtab.Table) error { return t.ToText(w) }
	case "csv":
		format = func(t *benchtab.Table) error {
			t.ToCSV(csv.NewWriter(w), 1, wErr)
			return nil
		}
	}

	level := slog.LevelInfo
	if *flagVerbose {
		level = slog.LevelDebug
	}
	logger := newLogger(wErr, level)

	var tracer trace.Tracer
	if *flagTrace != "" {
		f, err := os.Create(*flagTrace)
		if err != nil {
			return errors.Wrap(err, "trace")
		}
		defer f.Close()
		exp, err := stdouttrace.New(stdouttrace.WithWriter(f), stdouttrace.WithPrettyPrint())
		if err != nil {
			return errors.Wrap(err, "trace")
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
		defer tp.Shutdown(context.Background())
		tracer = tp.Tracer("github.com/zchee/sortperf/cmd/sortbench")
	}

	var res *result
	switch {
	case *flagFromStore != "":
		if cfg.Store == nil {
			return errors.New("-from-store requires -db")
		}
		res, err = loadStored(ctx, cfg.Store, *flagFromStore)
	case *flagReplay != "":
		res, err = replay(*flagReplay, cfg, wErr)
	default:
		res, err = run(ctx, cfg, w, logger, tracer)
	}
	if err != nil {
		return err
	}

	t := benchtab.NewTable(res.sizes, res.names, res.series)
	for _, s := range res.skips {
		t.Skip(s.Algorithm, s.Size, s.Err)
	}
	if err := format(t); err != nil {
		return err
	}

	if cfg.Plot.Path != "" {
		fig := plot.Figure{
			Title:  cfg.Title,
			Sizes:  res.sizes,
			Names:  res.names,
			Series: res.series,
			Metric: metric,
			Bands:  cfg.Plot.Bands,
		}
		for _, s := range res.skips {
			fig.Skipped = append(fig.Skipped, plot.Skip{Algorithm: s.Algorithm, Size: s.Size})
		}
		if err := plot.NewGonum(cfg.Plot.Width, cfg.Plot.Height).Render(fig, cfg.Plot.Path); err != nil {
			return err
		}
		fmt.Fprintln(w, "Plot saved to", cfg.Plot.Path)
	}
	return nil
}

// newLogger logs text to terminals and JSON otherwise.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// run times every configured sort.
func run(ctx context.Context, cfg *config.Config, w io.Writer, logger *slog.Logger, tracer trace.Tracer) (*result, error) {
	reg := new(entry.Registry)
	for _, key := range cfg.Builtin {
		e, err := entry.Builtin(key)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(e); err != nil {
			return nil, err
		}
	}

	var gen workload.Generator = workload.NewUniform(cfg.Seed)
	source := "uniform"
	if lib := cfg.Library; lib != nil {
		l, err := dl.Open(lib.Path)
		if err != nil {
			return nil, err
		}
		defer l.Close()
		for _, ec := range lib.Entries {
			conv, err := entry.ParseConvention(ec.Convention)
			if err != nil {
				return nil, err
			}
			e, err := l.Entry(ec.Name, ec.Symbol, conv)
			if err != nil {
				return nil, err
			}
			if err := reg.Register(e); err != nil {
				return nil, err
			}
		}
		if lib.Generator != "" {
			if gen, err = l.Generator(lib.Generator); err != nil {
				return nil, err
			}
			source = lib.Generator
		}
	}

	lastSize := -1
	r, err := bench.New(cfg.Ints(), reg, gen, bench.Options{
		Trials: cfg.Trials,
		Warmup: cfg.Warmup,
		Series: series.Options{
			TrimOutliers:     cfg.TrimOutliers,
			OutlierThreshold: cfg.OutlierThreshold,
		},
		Logger: logger,
		Tracer: tracer,
		Observer: func(c bench.Cell) {
			if c.Size != lastSize {
				fmt.Fprintf(w, "n=%s\n", benchunit.FormatSize(c.Size))
				lastSize = c.Size
			}
			if c.Skipped() {
				fmt.Fprintf(w, "%s skipped: %v\n", c.Algorithm, c.Err)
				return
			}
			fmt.Fprintf(w, "%s μs per call: %.6g μs\n", c.Algorithm, c.Mean())
		},
	})
	if err != nil {
		return nil, err
	}
	started := time.Now()
	if err := r.Execute(ctx); err != nil {
		return nil, err
	}
	fmt.Fprintln(w)

	if cfg.BenchOutput != "" {
		var skips []benchfmt.CellSkip
		for _, s := range r.Skips() {
			skips = append(skips, benchfmt.CellSkip{Algorithm: s.Algorithm, Size: s.Size, Reason: s.Err.Error()})
		}
		if err := writeBench(cfg.BenchOutput, benchfmt.RunConfig{
			Names:    r.Names(),
			Workload: source,
			Trials:   cfg.Trials,
			Seed:     cfg.Seed,
		}, r.Measurements(), skips); err != nil {
			return nil, err
		}
	}

	res := &result{sizes: r.Sizes(), names: r.Names(), series: r.Series(), skips: r.Skips()}
	if cfg.Store != nil {
		id, err := archive(ctx, cfg, started, r, res)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(w, "run id: %s\n", id)
	}
	return res, nil
}

func writeBench(path string, rc benchfmt.RunConfig, ms []timing.Measurement, skips []benchfmt.CellSkip) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "benchfmt")
	}
	if err := benchfmt.WriteMeasurements(f, rc, ms, skips); err != nil {
		f.Close()
		return errors.Wrapf(err, "benchfmt: writing %s", path)
	}
	return errors.Wrapf(f.Close(), "benchfmt: writing %s", path)
}

func archive(ctx context.Context, cfg *config.Config, started time.Time, r *bench.Run, res *result) (string, error) {
	db, err := store.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return "", err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return "", err
	}
	rec := store.RunRecord{
		Title:        cfg.Title,
		Started:      started,
		Trials:       cfg.Trials,
		Warmup:       cfg.Warmup,
		Seed:         cfg.Seed,
		Sizes:        res.sizes,
		Names:        res.names,
		Measurements: r.Measurements(),
		Series:       res.series,
	}
	for _, s := range res.skips {
		rec.Skips = append(rec.Skips, store.SkipRecord{Algorithm: s.Algorithm, Size: s.Size, Reason: s.Err.Error()})
	}
	return db.SaveRun(ctx, rec)
}

// replay summarizes trials and skips read back from the Go benchmark
// format.
func replay(path string, cfg *config.Config, wErr io.Writer) (*result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "replay")
	}
	defer f.Close()
	log, err := benchfmt.ReadLog(f, path)
	if err != nil {
		return nil, errors.Wrap(err, "replay")
	}
	for _, w := range log.Warnings {
		fmt.Fprintln(wErr, w)
	}
	if len(log.Measurements) == 0 && len(log.Skips) == 0 {
		return nil, errors.Errorf("replay: no sort results in %s", path)
	}

	b := series.NewBuilder()
	for _, m := range log.Measurements {
		b.Add(m)
	}
	ss := b.Series(series.Options{
		TrimOutliers:     cfg.TrimOutliers,
		OutlierThreshold: cfg.OutlierThreshold,
	})
	for _, name := range log.Names {
		if ss[name] == nil {
			ss[name] = &series.Series{Name: name}
		}
	}
	res := &result{sizes: log.Sizes, names: log.Names, series: ss}
	for _, sk := range log.Skips {
		res.skips = append(res.skips, bench.Skip{Algorithm: sk.Algorithm, Size: sk.Size, Err: errors.New(sk.Reason)})
	}
	return res, nil
}

// loadStored summarizes an archived run.
func loadStored(ctx context.Context, sc *config.Store, id string) (*result, error) {
	db, err := store.Open(sc.Driver, sc.DSN)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rec, err := db.LoadRun(ctx, id)
	if err != nil {
		return nil, err
	}
	res := &result{sizes: rec.Sizes, names: rec.Names, series: rec.Series}
	for _, s := range rec.Skips {
		res.skips = append(res.skips, bench.Skip{Algorithm: s.Algorithm, Size: s.Size, Err: errors.New(s.Reason)})
	}
	return res, nil
}
