// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package timing

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zchee/sortperf/entry"
	"github.com/zchee/sortperf/workload"
)

func testWorkload(t *testing.T, n int) *workload.Workload {
	t.Helper()
	w, err := workload.NewUniform(1).Generate(n)
	require.NoError(t, err)
	return w
}

// fixedClock makes every timed call take d.
func fixedClock(e *Engine, d time.Duration) {
	base := time.Unix(0, 0)
	e.now = func() time.Time { return base }
	e.since = func(time.Time) time.Duration { return d }
}

func TestSelfReported(t *testing.T) {
	w := testWorkload(t, 100)
	ent := entry.ReportingFunc("Reporting", func(buf []float32) time.Duration {
		slices.Sort(buf)
		return 1500 * time.Microsecond
	})
	ms, err := New(WithTrials(3)).Time(context.Background(), ent, w)
	require.NoError(t, err)
	require.Len(t, ms, 3)
	for i, m := range ms {
		assert.Equal(t, Measurement{Algorithm: "Reporting", Size: 100, Trial: i, Micros: 1500}, m)
		assert.Equal(t, 1500*time.Microsecond, m.Duration())
	}
}

func TestTimedUsesClock(t *testing.T) {
	e := New(WithTrials(2))
	fixedClock(e, 250*time.Nanosecond)
	ms, err := e.Time(context.Background(), entry.Func("Std sort", slices.Sort[[]float32]), testWorkload(t, 10))
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, 0.25, ms[0].Micros)
}

func TestCanonicalUnchanged(t *testing.T) {
	w := testWorkload(t, 1000)
	orig := w.Clone()
	var seen [][]float32
	ent := entry.Func("Recorder", func(buf []float32) {
		// Every trial must start from the unsorted workload.
		assert.Equal(t, orig, buf)
		seen = append(seen, buf)
		slices.Sort(buf)
	})
	_, err := New(WithTrials(3), WithWarmup(1)).Time(context.Background(), ent, w)
	require.NoError(t, err)
	assert.True(t, w.Equal(orig), "canonical workload was modified")
	require.Len(t, seen, 4)
	for i := 1; i < len(seen); i++ {
		assert.NotSame(t, &seen[0][0], &seen[i][0], "trials %d shares a buffer", i)
	}
}

func TestWarmupNotRecorded(t *testing.T) {
	calls := 0
	ent := entry.ReportingFunc("Counter", func([]float32) time.Duration {
		calls++
		return time.Duration(calls) * time.Microsecond
	})
	ms, err := New(WithTrials(2), WithWarmup(3)).Time(context.Background(), ent, testWorkload(t, 5))
	require.NoError(t, err)
	assert.Equal(t, 5, calls)
	require.Len(t, ms, 2)
	assert.Equal(t, []float64{4, 5}, []float64{ms[0].Micros, ms[1].Micros})
}

func TestFailedTrials(t *testing.T) {
	calls := 0
	ent := entry.New("Flaky", entry.SelfReported, func([]float32) (time.Duration, error) {
		calls++
		switch calls {
		case 2:
			panic("boom")
		case 3:
			return -time.Second, nil
		case 4:
			return 0, errors.New("library error")
		}
		return time.Millisecond, nil
	})
	ms, err := New(WithTrials(5)).Time(context.Background(), ent, testWorkload(t, 10))
	require.Error(t, err)
	assert.Equal(t, 5, calls)

	require.Len(t, ms, 2)
	assert.Equal(t, 0, ms[0].Trial)
	assert.Equal(t, 4, ms[1].Trial)

	assert.True(t, errors.Is(err, ErrEntryInvocation))
	var terrs TrialErrors
	require.True(t, errors.As(err, &terrs))
	require.Len(t, terrs, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{terrs[0].Trial, terrs[1].Trial, terrs[2].Trial})
	assert.Contains(t, terrs[0].Error(), "panic: boom")
	assert.Contains(t, terrs[1].Error(), "negative duration")
	assert.Equal(t, "Flaky", terrs[2].Algorithm)
	assert.Equal(t, 10, terrs[2].Size)
	assert.Contains(t, err.Error(), "3 trials failed")
}

func TestAllTrialsFail(t *testing.T) {
	ent := entry.Func("Panics", func([]float32) { panic("always") })
	ms, err := New(WithTrials(2)).Time(context.Background(), ent, testWorkload(t, 3))
	assert.Empty(t, ms)
	var ierr *EntryInvocationError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, "Panics", ierr.Algorithm)
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	ent := entry.Func("Cancel", func([]float32) {
		calls++
		cancel()
	})
	ms, err := New(WithTrials(3)).Time(ctx, ent, testWorkload(t, 3))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, ms, 1)
	assert.Equal(t, 1, calls)
}

func TestOptionsIgnoreInvalid(t *testing.T) {
	e := New(WithTrials(0), WithWarmup(-1), WithLogger(nil), WithTracer(nil))
	assert.Equal(t, 1, e.Trials())
	assert.Equal(t, 0, e.Warmup())
	assert.NotNil(t, e.logger)
	assert.NotNil(t, e.tracer)
}

func TestSpan(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	defer tp.Shutdown(context.Background())

	e := New(WithTrials(2), WithTracer(tp.Tracer("test")))
	_, err := e.Time(context.Background(), entry.Func("Std sort", slices.Sort[[]float32]), testWorkload(t, 8))
	require.NoError(t, err)

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "timing.Engine.Time", spans[0].Name)
	attrs := make(map[string]any)
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "Std sort", attrs["sort.algorithm"])
	assert.Equal(t, int64(8), attrs["sort.size"])
	assert.Equal(t, int64(2), attrs["sort.successes"])
}
