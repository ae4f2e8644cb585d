// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package workload

import (
	"math/rand/v2"

	"github.com/pkg/errors"
)

// A Generator produces one Workload per requested size.
type Generator interface {
	Generate(size int) (*Workload, error)
}

// Uniform generates values drawn uniformly from [0, 1).
//
// The zero Uniform draws from fresh entropy on every call. A Uniform
// with a non-zero Seed starts every call from the same state, so two
// calls with the same size return identical workloads. No state is
// carried from one call to the next in either mode.
type Uniform struct {
	Seed uint64
}

// NewUniform returns a Uniform generator. A seed of 0 disables
// seeding.
func NewUniform(seed uint64) *Uniform {
	return &Uniform{Seed: seed}
}

// Generate returns size uniform samples in [0, 1).
func (u *Uniform) Generate(size int) (*Workload, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	var rng *rand.Rand
	if u.Seed != 0 {
		rng = rand.New(rand.NewPCG(u.Seed, u.Seed^0x9e3779b97f4a7c15))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	vs := make([]float32, size)
	for i := range vs {
		vs[i] = rng.Float32()
	}
	return New(vs), nil
}

// Func adapts a fill function, typically a generator exported by a
// foreign library, to the Generator interface. The function must
// fill its whole buffer with values in [0, 1); Generate rejects any
// value outside that range so that workloads from different sources
// keep the same shape.
type Func func(buf []float32) error

// Generate allocates a buffer of the requested size and fills it
// with f.
func (f Func) Generate(size int) (*Workload, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	vs := make([]float32, size)
	if err := f(vs); err != nil {
		return nil, errors.Wrap(err, "generating workload")
	}
	for i, v := range vs {
		if !(v >= 0 && v < 1) {
			return nil, errors.Errorf("generated value %v at index %d is outside [0, 1)", v, i)
		}
	}
	return New(vs), nil
}
