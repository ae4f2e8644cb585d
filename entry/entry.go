// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package entry defines the uniform calling convention that sort
// implementations are benchmarked through.
//
// An Entry is a named capability that sorts a buffer of float32
// values in place. Entries come in two conventions, fixed when the
// entry is constructed: Timed entries are measured by the caller's
// wall clock, and SelfReported entries return their own elapsed
// time. Native Go sorts are provided by Builtin; entries exported by
// a shared library are provided by package entry/dl.
package entry

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// A Convention says how an Entry's cost is measured.
type Convention int

const (
	// Timed entries are timed by the harness around the call.
	Timed Convention = iota
	// SelfReported entries return the elapsed time of the sort.
	SelfReported
)

func (c Convention) String() string {
	switch c {
	case Timed:
		return "timed"
	case SelfReported:
		return "self-reported"
	}
	return fmt.Sprintf("Convention(%d)", int(c))
}

// ParseConvention parses the String form of a Convention. The empty
// string means Timed.
func ParseConvention(s string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "timed":
		return Timed, nil
	case "self-reported", "self", "reported":
		return SelfReported, nil
	}
	return 0, errors.Errorf("unknown calling convention %q", s)
}

// An Entry is a named sort implementation.
type Entry interface {
	// Name is the display name. It labels the entry's series
	// and must be unique within a Registry.
	Name() string

	// Convention reports how the cost of Sort is measured.
	Convention() Convention

	// Sort sorts buf in place. SelfReported entries return the
	// elapsed time; Timed entries return 0.
	Sort(buf []float32) (time.Duration, error)
}

// A SortFunc is the most general form of an entry point.
type SortFunc func(buf []float32) (time.Duration, error)

type funcEntry struct {
	name string
	conv Convention
	fn   SortFunc
}

func (e *funcEntry) Name() string                             { return e.name }
func (e *funcEntry) Convention() Convention                   { return e.conv }
func (e *funcEntry) Sort(buf []float32) (time.Duration, error) { return e.fn(buf) }

func (e *funcEntry) String() string {
	return fmt.Sprintf("%s (%s)", e.name, e.conv)
}

// New returns an Entry with the given convention that calls fn.
func New(name string, conv Convention, fn SortFunc) Entry {
	return &funcEntry{name: name, conv: conv, fn: fn}
}

// Func returns a Timed Entry for a sort function that cannot fail.
func Func(name string, sort func(buf []float32)) Entry {
	return New(name, Timed, func(buf []float32) (time.Duration, error) {
		sort(buf)
		return 0, nil
	})
}

// ReportingFunc returns a SelfReported Entry for a sort function that
// measures itself.
func ReportingFunc(name string, sort func(buf []float32) time.Duration) Entry {
	return New(name, SelfReported, func(buf []float32) (time.Duration, error) {
		return sort(buf), nil
	})
}
