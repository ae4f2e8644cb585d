// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package series

import (
	"math"
	"sort"

	"github.com/aclements/go-moremath/stats"

	"github.com/zchee/sortperf/statcsv"
	"github.com/zchee/sortperf/timing"
)

// DefaultOutlierThreshold is the IQR multiplier used when
// Options.OutlierThreshold is not positive.
const DefaultOutlierThreshold = 1.5

// Options controls how a Builder reduces cells.
type Options struct {
	// TrimOutliers removes values outside
	// [Q1 - k*IQR, Q3 + k*IQR] before summarizing a cell.
	TrimOutliers bool

	// OutlierThreshold is k. If not positive,
	// DefaultOutlierThreshold is used.
	OutlierThreshold float64
}

type cellKey struct {
	name string
	size int
}

// A Builder collects measurements into Series.
type Builder struct {
	names []string
	sizes map[string][]int
	cells map[cellKey][]float64
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		sizes: make(map[string][]int),
		cells: make(map[cellKey][]float64),
	}
}

// Add adds m to its (algorithm, size) cell.
func (b *Builder) Add(m timing.Measurement) {
	if _, ok := b.sizes[m.Algorithm]; !ok {
		b.names = append(b.names, m.Algorithm)
		b.sizes[m.Algorithm] = nil
	}
	k := cellKey{m.Algorithm, m.Size}
	if _, ok := b.cells[k]; !ok {
		b.sizes[m.Algorithm] = append(b.sizes[m.Algorithm], m.Size)
	}
	b.cells[k] = append(b.cells[k], m.Micros)
}

// Names returns the algorithms in the order they were first added.
func (b *Builder) Names() []string {
	return append([]string(nil), b.names...)
}

// Series summarizes every cell and returns one Series per algorithm.
func (b *Builder) Series(opts Options) map[string]*Series {
	out := make(map[string]*Series, len(b.names))
	for _, name := range b.names {
		sizes := append([]int(nil), b.sizes[name]...)
		sort.Ints(sizes)
		s := &Series{Name: name, Points: make([]Point, 0, len(sizes))}
		for _, size := range sizes {
			xs := b.cells[cellKey{name, size}]
			if opts.TrimOutliers {
				xs = RemoveOutliers(xs, opts.OutlierThreshold)
			}
			mean, sd := Summarize(xs)
			s.Points = append(s.Points, Point{Size: size, Mean: mean, StdDev: sd, N: len(xs)})
		}
		out[name] = s
	}
	return out
}

// Aggregate builds Series from ms.
func Aggregate(ms []timing.Measurement, opts Options) map[string]*Series {
	b := NewBuilder()
	for _, m := range ms {
		b.Add(m)
	}
	return b.Series(opts)
}

// Summarize returns the arithmetic mean and population standard
// deviation of xs. The deviation of a single value is 0.
func Summarize(xs []float64) (mean, stddev float64) {
	switch len(xs) {
	case 0:
		return math.NaN(), math.NaN()
	case 1:
		return xs[0], 0
	}
	mean = stats.Mean(xs)
	// stats.Variance is the sample variance.
	n := float64(len(xs))
	v := stats.Variance(xs) * (n - 1) / n
	return mean, math.Sqrt(v)
}

// RemoveOutliers returns the values of xs within
// [Q1 - k*IQR, Q3 + k*IQR]. If that would discard more than half of
// xs, or xs has fewer than 4 values, xs is returned unchanged.
// xs itself is not modified.
func RemoveOutliers(xs []float64, k float64) []float64 {
	if len(xs) < 4 {
		return xs
	}
	if k <= 0 {
		k = DefaultOutlierThreshold
	}
	sample := stats.Sample{Xs: append([]float64(nil), xs...)}
	sample.Sort()
	q1, q3 := sample.Quantile(0.25), sample.Quantile(0.75)
	iqr := q3 - q1
	lo, hi := q1-k*iqr, q3+k*iqr

	kept := make([]float64, 0, len(xs))
	for _, x := range xs {
		if x >= lo && x <= hi {
			kept = append(kept, x)
		}
	}
	if len(kept) < (len(xs)+1)/2 {
		return xs
	}
	return kept
}

// FromRecords converts a precomputed summary file into Series, one
// per method, in file order. Points are sorted by size.
func FromRecords(f *statcsv.File) (names []string, series map[string]*Series) {
	series = make(map[string]*Series, len(f.Methods))
	for _, method := range f.Methods {
		recs := f.Records[method]
		s := &Series{Name: method, Points: make([]Point, len(recs))}
		for i, r := range recs {
			s.Points[i] = Point{Size: r.Size, Mean: r.Mean, StdDev: r.SD}
		}
		sort.SliceStable(s.Points, func(i, j int) bool { return s.Points[i].Size < s.Points[j].Size })
		series[method] = s
	}
	return append([]string(nil), f.Methods...), series
}
