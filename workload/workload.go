// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package workload generates the input datasets that sort
// implementations are timed against.
//
// A Workload is the canonical input for one size. It is generated
// once and shared read-only by every algorithm timed at that size;
// each invocation receives its own copy from Clone, so no algorithm
// ever observes data left behind by another.
package workload

import (
	"fmt"

	"github.com/pkg/errors"
)

// A Workload is an owned sequence of float32 values.
type Workload struct {
	values []float32
}

// New returns a Workload that takes ownership of values.
func New(values []float32) *Workload {
	return &Workload{values: values}
}

// Len returns the number of values in w.
func (w *Workload) Len() int {
	return len(w.values)
}

// At returns the i'th value of w.
func (w *Workload) At(i int) float32 {
	return w.values[i]
}

// Clone returns a deep copy of the values in w. The returned slice
// shares no storage with w or with any other clone, so callers may
// sort it in place.
func (w *Workload) Clone() []float32 {
	return append([]float32(nil), w.values...)
}

// Equal reports whether w holds exactly the values in vs.
func (w *Workload) Equal(vs []float32) bool {
	if len(vs) != len(w.values) {
		return false
	}
	for i, v := range vs {
		if w.values[i] != v {
			return false
		}
	}
	return true
}

// ErrInvalidSize is matched by every *InvalidSizeError.
var ErrInvalidSize = errors.New("invalid workload size")

// An InvalidSizeError reports a request for a non-positive workload
// size.
type InvalidSizeError struct {
	Size int
}

func (e *InvalidSizeError) Error() string {
	return fmt.Sprintf("invalid workload size %d: must be positive", e.Size)
}

// Is makes errors.Is(err, ErrInvalidSize) true for e.
func (e *InvalidSizeError) Is(target error) bool {
	return target == ErrInvalidSize
}

func checkSize(size int) error {
	if size <= 0 {
		return &InvalidSizeError{Size: size}
	}
	return nil
}
