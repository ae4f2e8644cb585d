// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads sortbench run configurations from YAML.
//
// A configuration looks like:
//
//	title: Sorts
//	sizes: [100, 1k, 10k, 100k, 1M, 10M]
//	trials: 1
//	builtin: [std]
//	library:
//	  path: ./librust_sorts.so
//	  entries:
//	    - {name: Quicksort, symbol: f32_quicksort}
//	    - {name: PDQSort, symbol: f32_pdqsort_timed, convention: self-reported}
//	plot: {path: sorts.png, metric: per-element, bands: true}
//
// Any field left out keeps its value from Default.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/zchee/sortperf/benchunit"
	"github.com/zchee/sortperf/entry"
	"github.com/zchee/sortperf/series"
)

// A Size is a workload size that may be written with an SI or IEC
// suffix, such as 10k or 1Mi.
type Size int

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Size) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: size must be a scalar", value.Line)
	}
	n, err := benchunit.ParseSize(value.Value)
	if err != nil {
		return errors.Wrapf(err, "line %d", value.Line)
	}
	*s = Size(n)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Size) MarshalYAML() (any, error) {
	return int(s), nil
}

// Config is a complete run configuration.
type Config struct {
	Title string `yaml:"title"`
	Sizes []Size `yaml:"sizes"`

	Trials int    `yaml:"trials"`
	Warmup int    `yaml:"warmup"`
	Seed   uint64 `yaml:"seed"`

	TrimOutliers     bool    `yaml:"trim_outliers"`
	OutlierThreshold float64 `yaml:"outlier_threshold"`

	// Builtin lists the Go sorts to include, by entry.Builtin key.
	Builtin []string `yaml:"builtin"`

	Library *Library `yaml:"library,omitempty"`

	Plot Plot `yaml:"plot"`

	// BenchOutput, if set, receives the raw trials in the Go
	// benchmark format.
	BenchOutput string `yaml:"bench_output,omitempty"`

	Store *Store `yaml:"store,omitempty"`
}

// Library configures a shared library of sort entry points.
type Library struct {
	Path string `yaml:"path"`
	// Generator optionally names a fill function used instead of
	// the built-in uniform generator.
	Generator string  `yaml:"generator,omitempty"`
	Entries   []Entry `yaml:"entries"`
}

// Entry binds a library symbol to a display name.
type Entry struct {
	Name       string `yaml:"name"`
	Symbol     string `yaml:"symbol"`
	Convention string `yaml:"convention,omitempty"`
}

// Plot configures the rendered figure.
type Plot struct {
	// Path is the output file. Its extension selects the format.
	// An empty path disables plotting.
	Path   string  `yaml:"path"`
	Metric string  `yaml:"metric"`
	Bands  bool    `yaml:"bands"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Store configures the result archive.
type Store struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Default returns the default configuration: the sizes 100 through
// 10M by powers of ten, one cold trial per cell, every builtin sort,
// and a per-element plot in sorts.png.
func Default() *Config {
	return &Config{
		Title:            "Sorts",
		Sizes:            []Size{100, 1000, 10000, 100000, 1000000, 10000000},
		Trials:           1,
		OutlierThreshold: series.DefaultOutlierThreshold,
		Builtin:          entry.BuiltinNames(),
		Plot: Plot{
			Path:   "sorts.png",
			Metric: series.PerElement.String(),
			Bands:  true,
			Width:  10,
			Height: 6,
		},
	}
}

// Parse parses a YAML configuration over Default and validates it.
func Parse(data []byte) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "config: parsing")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config")
	}
	c, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return c, nil
}

// Ints returns c.Sizes as ints.
func (c *Config) Ints() []int {
	out := make([]int, len(c.Sizes))
	for i, s := range c.Sizes {
		out[i] = int(s)
	}
	return out
}

// Validate reports the first problem with c. Non-positive sizes are
// accepted; a run reports them as skipped sizes.
func (c *Config) Validate() error {
	if len(c.Sizes) == 0 {
		return errors.New("config: no sizes")
	}
	seen := make(map[Size]bool)
	for _, s := range c.Sizes {
		if seen[s] {
			return errors.Errorf("config: duplicate size %d", s)
		}
		seen[s] = true
	}
	if c.Trials < 1 {
		return errors.Errorf("config: trials must be at least 1, got %d", c.Trials)
	}
	if c.Warmup < 0 {
		return errors.Errorf("config: warmup must not be negative, got %d", c.Warmup)
	}
	if c.TrimOutliers && c.OutlierThreshold <= 0 {
		return errors.Errorf("config: outlier_threshold must be positive, got %v", c.OutlierThreshold)
	}
	if _, err := series.ParseMetric(c.Plot.Metric); err != nil {
		return errors.Wrap(err, "config: plot")
	}

	names := make(map[string]bool)
	addName := func(name string) error {
		if names[name] {
			return errors.Errorf("config: duplicate entry name %q", name)
		}
		names[name] = true
		return nil
	}
	for _, key := range c.Builtin {
		e, err := entry.Builtin(key)
		if err != nil {
			return errors.Wrap(err, "config")
		}
		if err := addName(e.Name()); err != nil {
			return err
		}
	}
	if lib := c.Library; lib != nil {
		if lib.Path == "" {
			return errors.New("config: library path is empty")
		}
		for i, e := range lib.Entries {
			if e.Name == "" || e.Symbol == "" {
				return errors.Errorf("config: library entry %d needs a name and a symbol", i)
			}
			if _, err := entry.ParseConvention(e.Convention); err != nil {
				return errors.Wrapf(err, "config: library entry %q", e.Name)
			}
			if err := addName(e.Name); err != nil {
				return err
			}
		}
	}
	if len(names) == 0 {
		return errors.New("config: no sort entries")
	}
	if c.Store != nil && (c.Store.Driver == "" || c.Store.DSN == "") {
		return errors.New("config: store needs a driver and a dsn")
	}
	return nil
}
