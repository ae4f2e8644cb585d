// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchfmt records sort measurements in the Go benchmark
// format, so that raw trials can be archived, replayed, and compared
// with tools such as benchstat.
//
// Each trial is one line:
//
//	BenchmarkSort/algo=Std%20sort/n=100000 1 5234100 ns/op
//
// The algorithm's display name is path-escaped because benchmark
// names cannot contain spaces. File-level configuration lines such
// as "goos: linux" or "trials: 5" precede the results they describe;
// "algorithms" lists every timed algorithm, escaped the same way, so
// that one without any result is not lost.
//
// A cell without any measurement is reported the way go test reports
// a skipped benchmark, with the reason indented below it:
//
//	--- SKIP: BenchmarkSort/algo=Broken/n=1000
//	    Broken at n=1000, trial 0: panic: boom
//
// This implements the format documented at
// https://golang.org/design/14313-benchmark-format.
package benchfmt

import (
	"bytes"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/zchee/sortperf/timing"
)

// BaseName is the benchmark name every sort result shares.
const BaseName = "Sort"

// A Result is a single benchmark line and the file configuration in
// effect for it.
type Result struct {
	// FileConfig is the set of file-level key/value pairs in
	// effect for this result, in the order they were set. Use
	// SetFileConfig to change it once the Result has been read.
	FileConfig []Config

	// Name is the full benchmark name, without the "Benchmark"
	// prefix.
	Name Name

	// Iters is the iteration count. Sort results are single
	// calls, so it is always 1 for lines written by Writer.
	Iters int

	// Values is this result's measurements and their units.
	Values []Value

	// configPos maps from Config.Key to index in FileConfig.
	configPos map[string]int
}

// A Config is a single key/value configuration pair.
type Config struct {
	Key   string
	Value []byte
}

// A Value is a single measurement. Reader tidies values to base
// units such as "sec/op"; OrigValue and OrigUnit keep the value as
// written.
type Value struct {
	Value float64
	Unit  string

	OrigValue float64
	OrigUnit  string
}

// NewResult returns the Result recording m under cfg, an alternating
// sequence of file configuration keys and values.
func NewResult(m timing.Measurement, cfg ...string) *Result {
	if len(cfg)%2 != 0 {
		panic("len(cfg) must be a multiple of 2")
	}
	r := &Result{Name: SortName(m.Algorithm, m.Size), Iters: 1}
	for i := 0; i < len(cfg); i += 2 {
		r.SetFileConfig(cfg[i], cfg[i+1])
	}
	ns := m.Micros * 1e3
	r.Values = []Value{{Value: ns * 1e-9, Unit: "sec/op", OrigValue: ns, OrigUnit: "ns/op"}}
	return r
}

// SortName returns the benchmark name of the (algorithm, size) cell.
func SortName(algorithm string, size int) Name {
	return Name(BaseName + "/algo=" + url.PathEscape(algorithm) + "/n=" + strconv.Itoa(size))
}

// Measurement converts r back to a measurement. The trial index is
// left 0; ReadLog numbers trials by their order in a file.
func (r *Result) Measurement() (timing.Measurement, error) {
	algo, size, err := r.Name.Cell()
	if err != nil {
		return timing.Measurement{}, err
	}
	sec, ok := r.Value("sec/op")
	if !ok {
		return timing.Measurement{}, errors.Errorf("benchmark %s has no time measurement", r.Name)
	}
	if r.Iters > 1 {
		sec /= float64(r.Iters)
	}
	return timing.Measurement{
		Algorithm: algo,
		Size:      size,
		Micros:    sec * float64(time.Second/time.Microsecond),
	}, nil
}

// Clone makes a copy of Result that shares no state with r.
func (r *Result) Clone() *Result {
	r2 := &Result{
		FileConfig: make([]Config, len(r.FileConfig)),
		Name:       append([]byte(nil), r.Name...),
		Iters:      r.Iters,
		Values:     append([]Value(nil), r.Values...),
	}
	for i, cfg := range r.FileConfig {
		r2.FileConfig[i].Key = cfg.Key
		r2.FileConfig[i].Value = append([]byte(nil), cfg.Value...)
	}
	return r2
}

// SetFileConfig sets file configuration key to value. If value is "",
// SetFileConfig deletes key.
func (r *Result) SetFileConfig(key, value string) {
	if value == "" {
		r.deleteFileConfig(key)
	} else {
		cfg := r.ensureFileConfig(key)
		cfg.Value = append(cfg.Value[:0], value...)
	}
}

func (r *Result) ensureFileConfig(key string) *Config {
	pos, ok := r.FileConfigIndex(key)
	if ok {
		return &r.FileConfig[pos]
	}
	r.configPos[key] = len(r.FileConfig)
	r.FileConfig = append(r.FileConfig, Config{key, nil})
	return &r.FileConfig[len(r.FileConfig)-1]
}

func (r *Result) deleteFileConfig(key string) {
	pos, ok := r.FileConfigIndex(key)
	if !ok {
		return
	}
	// Swap with the last key so the order stays deterministic.
	cfg := &r.FileConfig[pos]
	cfg2 := &r.FileConfig[len(r.FileConfig)-1]
	*cfg, *cfg2 = *cfg2, *cfg
	r.configPos[cfg.Key] = pos
	r.FileConfig = r.FileConfig[:len(r.FileConfig)-1]
	delete(r.configPos, key)
}

// GetFileConfig returns the value of a file configuration key, or ""
// if not present.
func (r *Result) GetFileConfig(key string) string {
	pos, ok := r.FileConfigIndex(key)
	if !ok {
		return ""
	}
	return string(r.FileConfig[pos].Value)
}

// FileConfigIndex returns the index in r.FileConfig of key.
func (r *Result) FileConfigIndex(key string) (pos int, ok bool) {
	if r.configPos == nil {
		r.configPos = make(map[string]int)
		for i, cfg := range r.FileConfig {
			r.configPos[cfg.Key] = i
		}
	}
	pos, ok = r.configPos[key]
	return
}

// Value returns the measurement for the given unit.
func (r *Result) Value(unit string) (float64, bool) {
	for _, v := range r.Values {
		if v.Unit == unit {
			return v.Value, true
		}
	}
	return 0, false
}

// A Name is a full benchmark name, including all sub-benchmark
// configuration.
type Name []byte

// String returns the full benchmark name as a string.
func (n Name) String() string {
	return string(n)
}

// Base returns the base part of n, before any "/" configuration.
func (n Name) Base() []byte {
	if slash := bytes.IndexByte(n, '/'); slash >= 0 {
		return n[:slash]
	}
	return n
}

// Cell returns the algorithm and size of a sort result name, as
// built by SortName.
func (n Name) Cell() (algorithm string, size int, err error) {
	if string(n.Base()) != BaseName {
		return "", 0, errors.Errorf("benchmark %s is not a sort result", n)
	}
	esc, ok := n.Key("algo")
	if !ok {
		return "", 0, errors.Errorf("benchmark %s has no algo key", n)
	}
	if algorithm, err = url.PathUnescape(esc); err != nil {
		return "", 0, errors.Wrapf(err, "benchmark %s", n)
	}
	sz, ok := n.Key("n")
	if !ok {
		return "", 0, errors.Errorf("benchmark %s has no n key", n)
	}
	if size, err = strconv.Atoi(sz); err != nil {
		return "", 0, errors.Wrapf(err, "benchmark %s: parsing size", n)
	}
	return algorithm, size, nil
}

// Key returns the value of the "/key=value" part of n.
func (n Name) Key(key string) (string, bool) {
	rest := n
	for {
		slash := bytes.IndexByte(rest, '/')
		if slash < 0 {
			return "", false
		}
		rest = rest[slash+1:]
		part := rest
		if next := bytes.IndexByte(part, '/'); next >= 0 {
			part = part[:next]
		}
		if k, v, ok := bytes.Cut(part, []byte("=")); ok && string(k) == key {
			return string(v), true
		}
	}
}
