// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bench runs every registered sort entry over a sequence of
// workload sizes and collects the results into series.
//
// A Run is created for one invocation and holds all of its state.
// Sizes are visited in increasing order; at each size one canonical
// workload is generated and every entry is timed against clones of
// it, in registration order. A cell that produces no measurement is
// recorded as a Skip and the run moves on.
package bench

import (
	"context"
	"log/slog"
	"slices"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zchee/sortperf/entry"
	"github.com/zchee/sortperf/series"
	"github.com/zchee/sortperf/timing"
	"github.com/zchee/sortperf/workload"
)

const tracerName = "github.com/zchee/sortperf/bench"

// Options configures a Run.
type Options struct {
	// Trials is the number of recorded calls per cell. Values
	// below 1 mean 1.
	Trials int

	// Warmup is the number of unrecorded calls per cell.
	Warmup int

	// Series controls how cells are summarized.
	Series series.Options

	// Logger receives progress and skip reports. If nil,
	// slog.Default() is used.
	Logger *slog.Logger

	// Tracer is used for run and cell spans. If nil, the global
	// tracer provider is used.
	Tracer trace.Tracer

	// Observer, if non-nil, is called after every cell.
	Observer func(Cell)
}

// A Cell is the outcome of timing one entry at one size.
type Cell struct {
	Algorithm    string
	Size         int
	Measurements []timing.Measurement
	// Err is non-nil if any trial failed or the workload could not
	// be generated.
	Err error
}

// Skipped reports whether the cell has no measurements.
func (c Cell) Skipped() bool {
	return len(c.Measurements) == 0
}

// Mean returns the mean cost of the cell's measurements in
// microseconds per call.
func (c Cell) Mean() float64 {
	xs := make([]float64, len(c.Measurements))
	for i, m := range c.Measurements {
		xs[i] = m.Micros
	}
	mean, _ := series.Summarize(xs)
	return mean
}

// A Skip records a cell without any successful measurement.
type Skip struct {
	Algorithm string
	Size      int
	Err       error
}

// A Run is one benchmark invocation.
type Run struct {
	sizes  []int
	reg    *entry.Registry
	gen    workload.Generator
	opts   Options
	engine *timing.Engine
	logger *slog.Logger
	tracer trace.Tracer

	executed     bool
	measurements []timing.Measurement
	skips        []Skip
	series       map[string]*series.Series
}

// New returns a Run over sizes, which are sorted into increasing
// order. sizes must be non-empty and free of duplicates. Sizes that
// gen rejects are reported as skips when the run executes.
func New(sizes []int, reg *entry.Registry, gen workload.Generator, opts Options) (*Run, error) {
	if len(sizes) == 0 {
		return nil, errors.New("bench: no sizes")
	}
	if reg == nil || reg.Len() == 0 {
		return nil, errors.New("bench: no entries registered")
	}
	if gen == nil {
		return nil, errors.New("bench: nil workload generator")
	}
	sorted := slices.Clone(sizes)
	slices.Sort(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return nil, errors.Errorf("bench: duplicate size %d", sorted[i])
		}
	}

	r := &Run{
		sizes:  sorted,
		reg:    reg,
		gen:    gen,
		opts:   opts,
		logger: opts.Logger,
		tracer: opts.Tracer,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracerName)
	}
	r.engine = timing.New(
		timing.WithTrials(opts.Trials),
		timing.WithWarmup(opts.Warmup),
		timing.WithLogger(r.logger),
		timing.WithTracer(r.tracer),
	)
	return r, nil
}

// Execute times every entry at every size. It may be called once.
//
// Cell failures are recorded and never stop the run; Execute returns
// an error only if ctx is canceled or the run was already executed.
func (r *Run) Execute(ctx context.Context) error {
	if r.executed {
		return errors.New("bench: run already executed")
	}
	r.executed = true

	ctx, span := r.tracer.Start(ctx, "bench.Run.Execute",
		trace.WithAttributes(
			attribute.IntSlice("sort.sizes", r.sizes),
			attribute.StringSlice("sort.algorithms", r.reg.Names()),
			attribute.Int("sort.trials", r.engine.Trials()),
		),
	)
	defer span.End()

	entries := r.reg.Entries()
	for _, size := range r.sizes {
		w, err := r.gen.Generate(size)
		if err != nil {
			if errors.Is(err, workload.ErrInvalidSize) {
				r.logger.Warn("skipping size", "size", size, "err", err)
			} else {
				r.logger.Error("generating workload", "size", size, "err", err)
			}
			for _, e := range entries {
				r.finish(Cell{Algorithm: e.Name(), Size: size, Err: err})
			}
			continue
		}

		for _, e := range entries {
			ms, err := r.engine.Time(ctx, e, w)
			if ctxErr := ctx.Err(); ctxErr != nil {
				span.RecordError(ctxErr)
				span.SetStatus(codes.Error, "canceled")
				r.measurements = append(r.measurements, ms...)
				return ctxErr
			}
			r.finish(Cell{Algorithm: e.Name(), Size: size, Measurements: ms, Err: err})
		}
	}

	span.SetAttributes(attribute.Int("sort.skips", len(r.skips)))
	span.SetStatus(codes.Ok, "")
	return nil
}

func (r *Run) finish(c Cell) {
	r.measurements = append(r.measurements, c.Measurements...)
	switch {
	case c.Skipped():
		err := c.Err
		if err == nil {
			err = errors.New("no measurements")
		}
		r.skips = append(r.skips, Skip{Algorithm: c.Algorithm, Size: c.Size, Err: err})
		r.logger.Warn("cell skipped", "algorithm", c.Algorithm, "size", c.Size, "err", err)
	case c.Err != nil:
		r.logger.Warn("some trials failed", "algorithm", c.Algorithm, "size", c.Size,
			"ok", len(c.Measurements), "err", c.Err)
	default:
		r.logger.Debug("cell", "algorithm", c.Algorithm, "size", c.Size, "us", c.Mean())
	}
	if r.opts.Observer != nil {
		r.opts.Observer(c)
	}
}

// Sizes returns the run's sizes in increasing order.
func (r *Run) Sizes() []int {
	return slices.Clone(r.sizes)
}

// Names returns the entry names in registration order.
func (r *Run) Names() []string {
	return r.reg.Names()
}

// Measurements returns every successful trial in the order it was
// recorded.
func (r *Run) Measurements() []timing.Measurement {
	return slices.Clone(r.measurements)
}

// Skips returns the cells without measurements, in run order.
func (r *Run) Skips() []Skip {
	return slices.Clone(r.skips)
}

// Series returns one Series per registered entry. Entries with no
// measurements at all have a Series with no points.
func (r *Run) Series() map[string]*series.Series {
	if r.series == nil && r.executed {
		b := series.NewBuilder()
		for _, m := range r.measurements {
			b.Add(m)
		}
		r.series = b.Series(r.opts.Series)
		for _, name := range r.reg.Names() {
			if _, ok := r.series[name]; !ok {
				r.series[name] = &series.Series{Name: name}
			}
		}
	}
	return r.series
}
