// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchfmt

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/zchee/sortperf/timing"
)

func parseAll(t *testing.T, data string) []*Result {
	r := NewReader(strings.NewReader(data), "test")
	var out []*Result
	for r.Scan() {
		res, err := r.Result()
		if err == nil {
			out = append(out, res.Clone())
		} else {
			out = append(out, errResult(err.Error()))
		}
	}
	if err := r.Err(); err != nil {
		t.Fatal("parsing failed: ", err)
	}
	return out
}

func printResult(w io.Writer, r *Result) {
	for _, fc := range r.FileConfig {
		fmt.Fprintf(w, "{%s: %s} ", fc.Key, fc.Value)
	}
	fmt.Fprintf(w, "%s %d", r.Name, r.Iters)
	for _, val := range r.Values {
		fmt.Fprintf(w, " %v %s", val.Value, val.Unit)
	}
	fmt.Fprintf(w, "\n")
}

// errResult returns a result that captures an error message.
func errResult(msg string) *Result {
	return &Result{Name: Name("error: " + msg)}
}

type resultBuilder struct {
	res *Result
}

func r(fullName string, iters int) *resultBuilder {
	return &resultBuilder{
		&Result{
			FileConfig: []Config{},
			Name:       Name(fullName),
			Iters:      iters,
		},
	}
}

func (b *resultBuilder) config(keyVals ...string) *resultBuilder {
	for i := 0; i < len(keyVals); i += 2 {
		b.res.FileConfig = append(b.res.FileConfig, Config{keyVals[i], []byte(keyVals[i+1])})
	}
	return b
}

func (b *resultBuilder) v(value float64, unit string) *resultBuilder {
	var v Value
	if unit == "ns/op" {
		v = Value{Value: value * 1e-9, Unit: "sec/op", OrigValue: value, OrigUnit: unit}
	} else {
		v = Value{Value: value, Unit: unit}
	}
	b.res.Values = append(b.res.Values, v)
	return b
}

func TestReader(t *testing.T) {
	type testCase struct {
		name, input string
		want        []*Result
	}
	for _, test := range []testCase{
		{
			"basic",
			`workload: uniform
BenchmarkSort/algo=A/n=100 1 1500 ns/op
BenchmarkSort/algo=B/n=100 1 4.5 ns/op
`,
			[]*Result{
				r("Sort/algo=A/n=100", 1).
					config("workload", "uniform").
					v(1500, "ns/op").res,
				r("Sort/algo=B/n=100", 1).
					config("workload", "uniform").
					v(4.5, "ns/op").res,
			},
		},
		{
			"weird",
			`
BenchmarkSpaces    1   1   ns/op
BenchmarkEmSpace  1  1  ns/op
`,
			[]*Result{
				r("Spaces", 1).v(1, "ns/op").res,
				r("EmSpace", 1).v(1, "ns/op").res,
			},
		},
		{
			"file keys",
			`key1:    	 value
: not a key
ab:not a key
a b: also not a key
key2: value

BenchmarkOne 100 1 ns/op
`,
			[]*Result{
				r("One", 100).
					config("key1", "value", "key2", "value").
					v(1, "ns/op").res,
			},
		},
		{
			"bad lines",
			`not a benchmark
BenchmarkMissingIter
BenchmarkBadIter abc
BenchmarkHugeIter 9999999999999999999999999999999
BenchmarkMissingVal 100
BenchmarkBadVal 100 abc
BenchmarkMissingUnit 100 1
BenchmarkMissingUnit2 100 1 ns/op 2
Unit ns/op a=1
`,
			[]*Result{
				errResult("test:2: missing iteration count"),
				errResult("test:3: parsing iteration count: invalid syntax"),
				errResult("test:4: parsing iteration count: value out of range"),
				errResult("test:5: missing measurements"),
				errResult("test:6: parsing measurement: invalid syntax"),
				errResult("test:7: missing units"),
				errResult("test:8: missing units"),
			},
		},
		{
			"remove existing label",
			`key: value
key:
BenchmarkOne 100 1 ns/op
`,
			[]*Result{
				r("One", 100).v(1, "ns/op").res,
			},
		},
		{
			"overwrite existing label",
			`key1: first
key2: second
key1: third
BenchmarkOne 100 1 ns/op
`,
			[]*Result{
				r("One", 100).
					config("key1", "third", "key2", "second").
					v(1, "ns/op").res,
			},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			got := parseAll(t, test.input)
			want := test.want
			var diff bytes.Buffer
			for i := 0; i < len(got) || i < len(want); i++ {
				if i >= len(got) {
					fmt.Fprintf(&diff, "[%d] got: none, want:\n", i)
					printResult(&diff, want[i])
				} else if i >= len(want) {
					fmt.Fprintf(&diff, "[%d] want: none, got:\n", i)
					printResult(&diff, got[i])
				} else if !reflect.DeepEqual(got[i], want[i]) {
					fmt.Fprintf(&diff, "[%d] got:\n", i)
					printResult(&diff, got[i])
					fmt.Fprintf(&diff, "[%d] want:\n", i)
					printResult(&diff, want[i])
				}
			}
			if diff.Len() != 0 {
				t.Error(diff.String())
			}
		})
	}
}

func TestNameKey(t *testing.T) {
	n := SortName("Std sort", 1000)
	if got, want := n.String(), "Sort/algo=Std%20sort/n=1000"; got != want {
		t.Errorf("SortName = %q, want %q", got, want)
	}
	if got := string(n.Base()); got != "Sort" {
		t.Errorf("Base = %q, want Sort", got)
	}
	for key, want := range map[string]string{"algo": "Std%20sort", "n": "1000"} {
		if got, ok := n.Key(key); !ok || got != want {
			t.Errorf("Key(%q) = %q, %v; want %q, true", key, got, ok, want)
		}
	}
	if _, ok := n.Key("missing"); ok {
		t.Errorf("Key(missing) found a value")
	}
}

func TestRoundTrip(t *testing.T) {
	ms := []timing.Measurement{
		{Algorithm: "Std sort", Size: 100, Trial: 0, Micros: 12.5},
		{Algorithm: "Std sort", Size: 100, Trial: 1, Micros: 13},
		{Algorithm: "Block/partition quicksort", Size: 100, Trial: 0, Micros: 9.25},
		{Algorithm: "Std sort", Size: 1000, Trial: 0, Micros: 150},
	}
	var buf bytes.Buffer
	cfg := RunConfig{Workload: "uniform", Trials: 2, Seed: 42}
	if err := WriteMeasurements(&buf, cfg, ms, nil); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{
		"goos: " + runtime.GOOS + "\n",
		"trials: 2\n",
		"seed: 42\n",
		"BenchmarkSort/algo=Std%20sort/n=100 1 12500 ns/op\n",
		"BenchmarkSort/algo=Block%2Fpartition%20quicksort/n=100 1 9250 ns/op\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "goos:") != 1 {
		t.Errorf("file configuration repeated:\n%s", out)
	}

	log, err := ReadLog(strings.NewReader(out+"BenchmarkOther 1 5 ns/op\n"), "rt")
	if err != nil {
		t.Fatal(err)
	}
	got, warnings := log.Measurements, log.Warnings
	if len(warnings) != 1 || !strings.Contains(warnings[0].Error(), "not a sort result") {
		t.Errorf("warnings = %v, want one non-sort warning", warnings)
	}
	if len(got) != len(ms) {
		t.Fatalf("read %d measurements, want %d", len(got), len(ms))
	}
	for i := range ms {
		if got[i].Algorithm != ms[i].Algorithm || got[i].Size != ms[i].Size || got[i].Trial != ms[i].Trial {
			t.Errorf("[%d] got %+v, want %+v", i, got[i], ms[i])
		}
		if d := got[i].Micros - ms[i].Micros; d > 1e-9 || d < -1e-9 {
			t.Errorf("[%d] Micros = %v, want %v", i, got[i].Micros, ms[i].Micros)
		}
	}
}

func TestConfigChange(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	m := timing.Measurement{Algorithm: "A", Size: 10, Micros: 1}
	for _, cfg := range [][]string{{"trials", "1"}, {"trials", "1"}, {"trials", "2"}, {}} {
		if err := w.Write(NewResult(m, cfg...)); err != nil {
			t.Fatal(err)
		}
	}
	want := `trials: 1

BenchmarkSort/algo=A/n=10 1 1000 ns/op
BenchmarkSort/algo=A/n=10 1 1000 ns/op

trials: 2

BenchmarkSort/algo=A/n=10 1 1000 ns/op

trials:

BenchmarkSort/algo=A/n=10 1 1000 ns/op
`
	if got := buf.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestSkipRoundTrip(t *testing.T) {
	ms := []timing.Measurement{
		{Algorithm: "Std sort", Size: 100, Micros: 12.5},
		{Algorithm: "Half broken", Size: 1000, Micros: 90},
		{Algorithm: "Std sort", Size: 1000, Micros: 150},
	}
	skips := []CellSkip{
		{Algorithm: "Half broken", Size: 100, Reason: "Half broken at n=100, trial 0: panic: boom"},
		{Algorithm: "Broken", Size: 100, Reason: "first line\nsecond line"},
		{Algorithm: "Broken", Size: 1000, Reason: "no symbol"},
		{Algorithm: "Std sort", Size: 0, Reason: "invalid workload size 0: must be positive"},
	}
	var buf bytes.Buffer
	cfg := RunConfig{Names: []string{"Std sort", "Broken", "Half broken"}, Trials: 1}
	if err := WriteMeasurements(&buf, cfg, ms, skips); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"algorithms: Std%20sort Broken Half%20broken\n",
		"--- SKIP: BenchmarkSort/algo=Broken/n=100\n    first line\n    second line\n",
		"--- SKIP: BenchmarkSort/algo=Std%20sort/n=0\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	log, err := ReadLog(strings.NewReader(out), "skips")
	if err != nil {
		t.Fatal(err)
	}
	if len(log.Warnings) != 0 {
		t.Errorf("warnings = %v", log.Warnings)
	}
	if want := []string{"Std sort", "Broken", "Half broken"}; !reflect.DeepEqual(log.Names, want) {
		t.Errorf("Names = %q, want %q", log.Names, want)
	}
	if want := []int{0, 100, 1000}; !reflect.DeepEqual(log.Sizes, want) {
		t.Errorf("Sizes = %v, want %v", log.Sizes, want)
	}
	if len(log.Measurements) != len(ms) {
		t.Errorf("read %d measurements, want %d", len(log.Measurements), len(ms))
	}
	if !reflect.DeepEqual(log.Skips, skips) {
		t.Errorf("Skips = %+v, want %+v", log.Skips, skips)
	}
}

func TestSkipWithoutAlgorithms(t *testing.T) {
	// Files without an "algorithms" line order names by appearance.
	in := `BenchmarkSort/algo=B/n=10 1 100 ns/op
--- SKIP: BenchmarkSort/algo=A/n=10
    failed
BenchmarkSort/algo=B/n=20 1 200 ns/op
--- SKIP: BenchmarkOther
`
	log, err := ReadLog(strings.NewReader(in), "skips")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"B", "A"}; !reflect.DeepEqual(log.Names, want) {
		t.Errorf("Names = %q, want %q", log.Names, want)
	}
	if want := []CellSkip{{Algorithm: "A", Size: 10, Reason: "failed"}}; !reflect.DeepEqual(log.Skips, want) {
		t.Errorf("Skips = %+v, want %+v", log.Skips, want)
	}
	if len(log.Warnings) != 1 || !strings.Contains(log.Warnings[0].Error(), "not a sort result") {
		t.Errorf("warnings = %v, want one non-sort warning", log.Warnings)
	}
}
