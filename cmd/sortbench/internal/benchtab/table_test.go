// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchtab

import (
	"bytes"
	"encoding/csv"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/zchee/sortperf/series"
)

func testTable() *Table {
	ss := map[string]*series.Series{
		"Std sort": {Name: "Std sort", Points: []series.Point{
			{Size: 1000, Mean: 20, StdDev: 2, N: 3},
			{Size: 10000, Mean: 250, StdDev: 0, N: 1},
		}},
		"Quicksort": {Name: "Quicksort", Points: []series.Point{
			{Size: 1000, Mean: 10, StdDev: 1, N: 3},
		}},
	}
	t := NewTable([]int{1000, 10000}, []string{"Std sort", "Quicksort"}, ss)
	t.Skip("Quicksort", 10000, errors.New("Quicksort at n=10000, trial 0: panic: stack overflow"))
	return t
}

func TestToText(t *testing.T) {
	var buf bytes.Buffer
	if err := testTable().ToText(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Std sort",
		"Quicksort",
		"20μs ± 10%",
		"250μs ± ∞¹",
		"skipped²",
		"geomean/elem",
		"¹ need >= 2 trials for a spread estimate\n",
		"² Quicksort at n=10000, trial 0: panic: stack overflow\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestToCSV(t *testing.T) {
	var buf, warnings bytes.Buffer
	o := csv.NewWriter(&buf)
	n := testTable().ToCSV(o, 1, &warnings)
	if n != 4 {
		t.Errorf("rowCount = %d, want 4", n)
	}
	want := `size,Std sort (μs),Std sort ± (μs),Quicksort (μs),Quicksort ± (μs)
1000,20,2,10,1
10000,250,0,skipped,
`
	got := buf.String()
	if !strings.HasPrefix(got, want) {
		t.Errorf("got:\n%s\nwant prefix:\n%s", got, want)
	}
	rows, err := csv.NewReader(strings.NewReader(got)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	last := rows[len(rows)-1]
	if last[0] != "geomean/elem" {
		t.Fatalf("summary row = %q", last)
	}
	for i, want := range map[int]float64{1: 0.0223606797749979, 3: 0.01} {
		v, err := strconv.ParseFloat(last[i], 64)
		if err != nil || math.Abs(v-want) > 1e-12 {
			t.Errorf("summary[%d] = %q, want %v", i, last[i], want)
		}
	}
	wantWarn := "B3: need >= 2 trials for a spread estimate\nD3: Quicksort at n=10000, trial 0: panic: stack overflow\n"
	if got := warnings.String(); got != wantWarn {
		t.Errorf("warnings:\n%s\nwant:\n%s", got, wantWarn)
	}
}

func TestColName(t *testing.T) {
	for x, want := range map[int]string{0: "A", 1: "B", 25: "Z", 26: "AA", 27: "AB", 701: "ZZ", 702: "AAA"} {
		if got := colName(x); got != want {
			t.Errorf("colName(%d) = %q, want %q", x, got, want)
		}
	}
}
