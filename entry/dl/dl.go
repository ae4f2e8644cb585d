// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dl loads sort entry points and workload generators from a
// shared library.
//
// Symbols are resolved with dlsym and called through one of three C
// signatures:
//
//	void     sort(float *buf, size_t n)  // entry.Timed
//	uint64_t sort(float *buf, size_t n)  // entry.SelfReported, elapsed ns
//	void     fill(float *buf, size_t n)  // workload generator
//
// The library handle is opened once and stays loaded until Close.
// Loading requires cgo; without it Open returns ErrUnsupported.
package dl

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/zchee/sortperf/entry"
	"github.com/zchee/sortperf/workload"
)

// ErrUnsupported is returned by Open in binaries built without cgo.
var ErrUnsupported = errors.New("dl: shared libraries require cgo")

// A Library is an open shared library.
type Library struct {
	path string

	mu     sync.Mutex
	h      handle
	closed bool
}

// Open loads the shared library at path.
func Open(path string) (*Library, error) {
	h, err := dlopen(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dl: opening %s", path)
	}
	return &Library{path: path, h: h}, nil
}

// Path returns the path the library was opened from.
func (l *Library) Path() string { return l.path }

// Lookup reports whether the library exports symbol.
func (l *Library) Lookup(symbol string) error {
	_, err := l.sym(symbol)
	return err
}

func (l *Library) sym(symbol string) (symbolPtr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, errors.Errorf("dl: %s is closed", l.path)
	}
	p, err := dlsym(l.h, symbol)
	if err != nil {
		return nil, errors.Wrapf(err, "dl: resolving %s in %s", symbol, l.path)
	}
	return p, nil
}

// Entry returns an entry named name that calls symbol with the given
// calling convention.
func (l *Library) Entry(name, symbol string, conv entry.Convention) (entry.Entry, error) {
	p, err := l.sym(symbol)
	if err != nil {
		return nil, err
	}
	switch conv {
	case entry.Timed:
		return entry.New(name, conv, func(buf []float32) (time.Duration, error) {
			callVoid(p, buf)
			return 0, nil
		}), nil
	case entry.SelfReported:
		return entry.New(name, conv, func(buf []float32) (time.Duration, error) {
			return reportedDuration(symbol, callReport(p, buf))
		}), nil
	}
	return nil, errors.Errorf("dl: unsupported calling convention %v", conv)
}

// reportedDuration converts the nanoseconds returned by a
// self-reporting symbol.
func reportedDuration(symbol string, ns uint64) (time.Duration, error) {
	if ns > math.MaxInt64 {
		return 0, errors.Errorf("%s reported an out of range duration %d ns", symbol, ns)
	}
	return time.Duration(ns), nil
}

// Generator returns a workload generator that fills buffers by
// calling symbol.
func (l *Library) Generator(symbol string) (workload.Generator, error) {
	p, err := l.sym(symbol)
	if err != nil {
		return nil, err
	}
	return workload.Func(func(buf []float32) error {
		callVoid(p, buf)
		return nil
	}), nil
}

// Close unloads the library. Entries obtained from l must not be
// called after Close.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return errors.Wrapf(dlclose(l.h), "dl: closing %s", l.path)
}
