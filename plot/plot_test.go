// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package plot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zchee/sortperf/series"
)

func testFigure() Figure {
	return Figure{
		Title: "Sorts",
		Sizes: []int{100, 1000, 10000},
		Names: []string{"Std sort", "Quicksort", "Never ran"},
		Series: map[string]*series.Series{
			"Std sort": {Name: "Std sort", Points: []series.Point{
				{Size: 100, Mean: 5, StdDev: 1, N: 3},
				{Size: 1000, Mean: 60, StdDev: 70, N: 3},
				{Size: 10000, Mean: 700, StdDev: 20, N: 3},
			}},
			// Shorter than the others.
			"Quicksort": {Name: "Quicksort", Points: []series.Point{
				{Size: 100, Mean: 4, StdDev: 0, N: 1},
			}},
			"Never ran": {Name: "Never ran"},
		},
		Metric: series.PerElement,
		Bands:  true,
		Skipped: []Skip{
			{Algorithm: "Quicksort", Size: 1000},
			{Algorithm: "Quicksort", Size: 10000},
			{Algorithm: "Never ran", Size: 100},
		},
	}
}

func TestBuild(t *testing.T) {
	p, err := Build(testFigure())
	require.NoError(t, err)
	assert.Equal(t, "Sorts", p.Title.Text)
	assert.Equal(t, "Size", p.X.Label.Text)
	assert.Equal(t, series.PerElement.Label(), p.Y.Label.Text)
	assert.Equal(t, 100.0, p.X.Min)
	assert.Equal(t, 10000.0, p.X.Max)
	// The lowest band bound is clamped to a tenth of its point.
	assert.InDelta(t, 0.006, p.Y.Min, 1e-12)
	assert.Greater(t, p.Y.Max, 0.0)
}

func TestBuildEmpty(t *testing.T) {
	p, err := Build(Figure{Title: "Nothing"})
	require.NoError(t, err)
	assert.Greater(t, p.X.Min, 0.0)
	assert.Greater(t, p.Y.Min, 0.0)
}

func TestBuildSinglePoint(t *testing.T) {
	fig := Figure{
		Sizes:  []int{1000},
		Names:  []string{"A"},
		Series: map[string]*series.Series{"A": {Name: "A", Points: []series.Point{{Size: 1000, Mean: 10}}}},
		Metric: series.PerCall,
	}
	p, err := Build(fig)
	require.NoError(t, err)
	assert.Less(t, p.X.Min, p.X.Max)
	assert.Less(t, p.Y.Min, p.Y.Max)
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	r := NewGonum(0, 0)
	for _, name := range []string{"sorts.png", "sorts.svg", "sorts.pdf"} {
		path := filepath.Join(dir, name)
		require.NoError(t, r.Render(testFigure(), path), name)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0), name)
	}
}

func TestRenderErrors(t *testing.T) {
	r := NewGonum(4, 3)
	err := r.Render(testFigure(), filepath.Join(t.TempDir(), "missing", "dir", "sorts.png"))
	assert.ErrorContains(t, err, "plot: writing")

	err = r.Render(testFigure(), filepath.Join(t.TempDir(), "sorts"))
	assert.ErrorContains(t, err, "missing file extension")
}

func TestRenderGap(t *testing.T) {
	// A cell failed in the middle of an otherwise complete series.
	fig := Figure{
		Title: "Gap",
		Sizes: []int{1000, 10000, 100000},
		Names: []string{"Flaky"},
		Series: map[string]*series.Series{
			"Flaky": {Name: "Flaky", Points: []series.Point{
				{Size: 1000, Mean: 5000, StdDev: 100, N: 3},
				{Size: 100000, Mean: 700000, StdDev: 9000, N: 3},
			}},
		},
		Metric:  series.PerElement,
		Bands:   true,
		Skipped: []Skip{{Algorithm: "Flaky", Size: 10000}},
	}
	p, err := Build(fig)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, p.X.Min)
	assert.Equal(t, 100000.0, p.X.Max)
	assert.InDelta(t, 4.9, p.Y.Min, 1e-9)
	assert.InDelta(t, 7.09, p.Y.Max, 1e-9)

	r := NewGonum(4, 3)
	for _, name := range []string{"gap.png", "gap.svg"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, r.Render(fig, path), name)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}
