// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package timing measures sort entries against a workload.
//
// An Engine times one entry at one workload size for a fixed number
// of trials. Every trial sorts its own clone of the workload, so the
// canonical workload is never modified and the cost of copying is
// never part of a measurement. Entries are called on the calling
// goroutine, one trial at a time.
package timing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zchee/sortperf/entry"
	"github.com/zchee/sortperf/workload"
)

const tracerName = "github.com/zchee/sortperf/timing"

// A Measurement is the cost of one trial of one entry at one size.
type Measurement struct {
	Algorithm string
	Size      int
	// Trial is the 0-based trial index within the cell.
	Trial int
	// Micros is the elapsed time of the call in microseconds. It is
	// not normalized by Size.
	Micros float64
}

// Duration returns m's cost as a time.Duration.
func (m Measurement) Duration() time.Duration {
	return time.Duration(math.Round(m.Micros * 1e3))
}

// Micros converts d to fractional microseconds.
func Micros(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

// ErrEntryInvocation is matched by every *EntryInvocationError.
var ErrEntryInvocation = errors.New("entry invocation failed")

// An EntryInvocationError reports a failed trial: the entry returned
// an error, panicked, or reported an impossible duration.
type EntryInvocationError struct {
	Algorithm string
	Size      int
	Trial     int
	Err       error
}

func (e *EntryInvocationError) Error() string {
	return fmt.Sprintf("%s at n=%d, trial %d: %v", e.Algorithm, e.Size, e.Trial, e.Err)
}

func (e *EntryInvocationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrEntryInvocation) true for e.
func (e *EntryInvocationError) Is(target error) bool {
	return target == ErrEntryInvocation
}

// TrialErrors collects the failed trials of one cell.
type TrialErrors []*EntryInvocationError

func (es TrialErrors) Error() string {
	if len(es) == 1 {
		return es[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d trials failed", len(es))
	for _, e := range es {
		b.WriteString("\n\t")
		b.WriteString(e.Error())
	}
	return b.String()
}

func (es TrialErrors) Unwrap() []error {
	errs := make([]error, len(es))
	for i, e := range es {
		errs[i] = e
	}
	return errs
}

// An Option configures an Engine.
type Option func(*Engine)

// WithTrials sets the number of recorded trials per cell. Values
// below 1 are ignored.
func WithTrials(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.trials = n
		}
	}
}

// WithWarmup sets the number of unrecorded calls made before the
// first trial. Negative values are ignored.
func WithWarmup(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.warmup = n
		}
	}
}

// WithLogger sets the Engine's logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTracer sets the tracer used for cell spans. A nil tracer is
// ignored.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// An Engine times entries. The zero Engine is not usable; use New.
type Engine struct {
	trials int
	warmup int
	logger *slog.Logger
	tracer trace.Tracer

	// now and since are replaced in tests.
	now   func() time.Time
	since func(time.Time) time.Duration
}

// New returns an Engine that records one trial per cell with no
// warmup, then applies opts.
func New(opts ...Option) *Engine {
	e := &Engine{
		trials: 1,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
		since:  time.Since,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Trials returns the number of recorded trials per cell.
func (e *Engine) Trials() int { return e.trials }

// Warmup returns the number of unrecorded calls per cell.
func (e *Engine) Warmup() int { return e.warmup }

// Time runs the entry against clones of w and returns one Measurement
// per successful trial, in trial order.
//
// A failed trial does not stop the remaining trials. If any trial
// failed, Time returns the successful measurements together with a
// TrialErrors. Time returns early with ctx.Err() if ctx is canceled
// between trials.
func (e *Engine) Time(ctx context.Context, ent entry.Entry, w *workload.Workload) ([]Measurement, error) {
	name, size := ent.Name(), w.Len()
	ctx, span := e.tracer.Start(ctx, "timing.Engine.Time",
		trace.WithAttributes(
			attribute.String("sort.algorithm", name),
			attribute.Int("sort.size", size),
			attribute.Int("sort.trials", e.trials),
			attribute.String("sort.convention", ent.Convention().String()),
		),
	)
	defer span.End()

	for i := 0; i < e.warmup; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := e.invoke(ent, w.Clone()); err != nil {
			e.logger.Debug("warmup call failed", "algorithm", name, "size", size, "err", err)
		}
	}

	ms := make([]Measurement, 0, e.trials)
	var failed TrialErrors
	for trial := 0; trial < e.trials; trial++ {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "canceled")
			return ms, err
		}
		d, err := e.invoke(ent, w.Clone())
		if err != nil {
			ierr := &EntryInvocationError{Algorithm: name, Size: size, Trial: trial, Err: err}
			failed = append(failed, ierr)
			e.logger.Debug("trial failed", "algorithm", name, "size", size, "trial", trial, "err", err)
			continue
		}
		m := Measurement{Algorithm: name, Size: size, Trial: trial, Micros: Micros(d)}
		e.logger.Debug("trial", "algorithm", name, "size", size, "trial", trial, "us", m.Micros)
		ms = append(ms, m)
	}

	span.SetAttributes(attribute.Int("sort.successes", len(ms)))
	if len(failed) > 0 {
		span.RecordError(failed)
		span.SetStatus(codes.Error, fmt.Sprintf("%d of %d trials failed", len(failed), e.trials))
		return ms, failed
	}
	span.SetStatus(codes.Ok, "")
	return ms, nil
}

// invoke makes one call of ent on buf, which it owns, and returns the
// call's cost.
func (e *Engine) invoke(ent entry.Entry, buf []float32) (d time.Duration, err error) {
	defer func() {
		if r := recover(); r != nil {
			d, err = 0, errors.Errorf("panic: %v", r)
		}
	}()
	switch ent.Convention() {
	case entry.SelfReported:
		d, err = ent.Sort(buf)
		if err != nil {
			return 0, err
		}
		if d < 0 {
			return 0, errors.Errorf("reported negative duration %v", d)
		}
		return d, nil
	default:
		start := e.now()
		_, err = ent.Sort(buf)
		d = e.since(start)
		if err != nil {
			return 0, err
		}
		return d, nil
	}
}
