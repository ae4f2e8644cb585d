// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package series reduces raw measurements to per-algorithm curves.
//
// A Series holds one Point per workload size, ordered by increasing
// size. Each Point summarizes every trial of one (algorithm, size)
// cell by its mean and population standard deviation. Cells with no
// measurements have no Point; they are never filled with zeros.
package series

import (
	"fmt"

	"github.com/pkg/errors"
)

// A Point summarizes one cell. Mean and StdDev are in microseconds
// per call.
type Point struct {
	Size   int
	Mean   float64
	StdDev float64
	// N is the number of trials the point summarizes. It is 0 for
	// points read from precomputed summaries.
	N int
}

// PerElement returns the mean cost per element.
func (p Point) PerElement() float64 {
	return p.Mean / float64(p.Size)
}

// Band returns the per-element interval (Mean±StdDev)/Size.
func (p Point) Band() (lo, hi float64) {
	n := float64(p.Size)
	return (p.Mean - p.StdDev) / n, (p.Mean + p.StdDev) / n
}

// Throughput returns elements sorted per second.
func (p Point) Throughput() float64 {
	if p.Mean == 0 {
		return 0
	}
	return float64(p.Size) / (p.Mean / 1e6)
}

// A Series is the curve of one algorithm.
type Series struct {
	Name   string
	Points []Point
}

// Point returns the point at size.
func (s *Series) Point(size int) (Point, bool) {
	for _, p := range s.Points {
		if p.Size == size {
			return p, true
		}
	}
	return Point{}, false
}

// Sizes returns the sizes of s's points.
func (s *Series) Sizes() []int {
	sizes := make([]int, len(s.Points))
	for i, p := range s.Points {
		sizes[i] = p.Size
	}
	return sizes
}

// A Metric selects how a Point is shown on a plot's y axis.
type Metric int

const (
	// PerElement is the mean cost per element in microseconds.
	PerElement Metric = iota
	// PerCall is the mean cost of one call in microseconds.
	PerCall
	// Throughput is elements sorted per second.
	Throughput
)

var metricNames = []string{"per-element", "per-call", "throughput"}

func (m Metric) String() string {
	if int(m) >= 0 && int(m) < len(metricNames) {
		return metricNames[m]
	}
	return fmt.Sprintf("Metric(%d)", int(m))
}

// ParseMetric parses the String form of a Metric.
func ParseMetric(s string) (Metric, error) {
	for i, n := range metricNames {
		if s == n {
			return Metric(i), nil
		}
	}
	return 0, errors.Errorf("unknown metric %q (want per-element, per-call or throughput)", s)
}

// Label returns a y axis label for m.
func (m Metric) Label() string {
	switch m {
	case PerCall:
		return "Time (μs) per call"
	case Throughput:
		return "Elements per second"
	}
	return "Time (μs) per element"
}

// Value returns p's value under m.
func (m Metric) Value(p Point) float64 {
	switch m {
	case PerCall:
		return p.Mean
	case Throughput:
		return p.Throughput()
	}
	return p.PerElement()
}

// Band returns the interval of one standard deviation around p's
// value under m. For Throughput the interval is derived from the
// time interval; if Mean-StdDev is not positive the upper bound is
// unknown and hi equals lo.
func (m Metric) Band(p Point) (lo, hi float64) {
	switch m {
	case PerCall:
		return p.Mean - p.StdDev, p.Mean + p.StdDev
	case Throughput:
		n := float64(p.Size) * 1e6
		lo = n / (p.Mean + p.StdDev)
		if t := p.Mean - p.StdDev; t > 0 {
			hi = n / t
		} else {
			hi = lo
		}
		return lo, hi
	}
	return p.Band()
}
