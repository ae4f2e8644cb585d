// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package plot draws series as log-log performance curves.
package plot

import (
	"image/color"
	"math"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/zchee/sortperf/series"
)

// A Skip marks a cell that has no measurement.
type Skip struct {
	Algorithm string
	Size      int
}

// A Figure is everything needed to draw one plot.
type Figure struct {
	Title string
	// XLabel defaults to "Size" and YLabel to Metric.Label().
	XLabel, YLabel string

	// Sizes are the workload sizes of the run, in increasing order.
	Sizes []int
	// Names orders the series; it is also the legend order.
	Names  []string
	Series map[string]*series.Series

	Metric series.Metric
	// Bands shades one standard deviation around each curve.
	Bands bool

	Skipped []Skip
}

// A Renderer writes a Figure to a file.
type Renderer interface {
	Render(fig Figure, path string) error
}

// Gonum renders figures with gonum.org/v1/plot. The output format is
// chosen by the file extension: eps, jpg, jpeg, pdf, png, svg, tex,
// tif or tiff.
type Gonum struct {
	Width, Height vg.Length
}

// NewGonum returns a Gonum renderer producing figures of the given
// size in inches. Non-positive dimensions default to 10x6.
func NewGonum(width, height float64) *Gonum {
	if width <= 0 {
		width = 10
	}
	if height <= 0 {
		height = 6
	}
	return &Gonum{Width: vg.Length(width) * vg.Inch, Height: vg.Length(height) * vg.Inch}
}

// Render draws fig and saves it to path.
func (g *Gonum) Render(fig Figure, path string) error {
	p, err := Build(fig)
	if err != nil {
		return errors.Wrap(err, "plot: building figure")
	}
	if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext == "" {
		return errors.Errorf("plot: writing %s: missing file extension", path)
	}
	if err := p.Save(g.Width, g.Height, path); err != nil {
		return errors.Wrapf(err, "plot: writing %s", path)
	}
	return nil
}

// bounds tracks the positive data range of one axis.
type bounds struct {
	min, max float64
}

func newBounds() bounds { return bounds{math.Inf(1), math.Inf(-1)} }

func (b *bounds) add(v float64) {
	if v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v) {
		b.min = math.Min(b.min, v)
		b.max = math.Max(b.max, v)
	}
}

func (b bounds) empty() bool { return b.min > b.max }

// apply sets a log axis to b, widening a degenerate range.
func (b bounds) apply(ax *gplot.Axis, fallbackMin, fallbackMax float64) {
	lo, hi := b.min, b.max
	if b.empty() {
		lo, hi = fallbackMin, fallbackMax
	}
	if lo == hi {
		lo, hi = lo/2, hi*2
	}
	ax.Min, ax.Max = lo, hi
}

// Build returns the plot of fig without saving it.
func Build(fig Figure) (*gplot.Plot, error) {
	p := gplot.New()
	p.Title.Text = fig.Title
	p.X.Label.Text = fig.XLabel
	if p.X.Label.Text == "" {
		p.X.Label.Text = "Size"
	}
	p.Y.Label.Text = fig.YLabel
	if p.Y.Label.Text == "" {
		p.Y.Label.Text = fig.Metric.Label()
	}
	p.X.Scale = gplot.LogScale{}
	p.Y.Scale = gplot.LogScale{}
	p.X.Tick.Marker = gplot.LogTicks{Prec: -1}
	p.Y.Tick.Marker = gplot.LogTicks{Prec: -1}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	xb, yb := newBounds(), newBounds()
	for _, size := range fig.Sizes {
		xb.add(float64(size))
	}
	for _, sk := range fig.Skipped {
		xb.add(float64(sk.Size))
	}

	for i, name := range fig.Names {
		s := fig.Series[name]
		if s == nil || len(s.Points) == 0 {
			continue
		}
		c := plotutil.Color(i)

		var xys plotter.XYs
		var los, his plotter.XYs
		for _, pt := range s.Points {
			x, y := float64(pt.Size), fig.Metric.Value(pt)
			if !(x > 0 && y > 0) || math.IsInf(y, 0) {
				continue
			}
			xb.add(x)
			yb.add(y)
			xys = append(xys, plotter.XY{X: x, Y: y})
			if fig.Bands {
				lo, hi := fig.Metric.Band(pt)
				lo, hi = math.Min(lo, hi), math.Max(lo, hi)
				if !(lo > 0) {
					// Keep the band on the log axis.
					lo = y / 10
				}
				yb.add(lo)
				yb.add(hi)
				los = append(los, plotter.XY{X: x, Y: lo})
				his = append(his, plotter.XY{X: x, Y: hi})
			}
		}
		if len(xys) == 0 {
			continue
		}

		if len(los) > 1 {
			ring := append(plotter.XYs(nil), los...)
			for j := len(his) - 1; j >= 0; j-- {
				ring = append(ring, his[j])
			}
			band, err := plotter.NewPolygon(ring)
			if err != nil {
				return nil, errors.Wrapf(err, "band of %s", name)
			}
			band.Color = translucent(c, 0x33)
			band.LineStyle.Width = 0
			p.Add(band)
		}

		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return nil, errors.Wrapf(err, "series %s", name)
		}
		line.Color = c
		line.Width = vg.Points(1)
		points.Color = c
		points.Shape = plotutil.Shape(i)
		p.Add(line, points)
		p.Legend.Add(name, line, points)
	}

	xb.apply(&p.X, 1, 10)
	yb.apply(&p.Y, 1, 10)

	if len(fig.Skipped) > 0 {
		var xys plotter.XYs
		for _, sk := range fig.Skipped {
			if sk.Size > 0 {
				xys = append(xys, plotter.XY{X: float64(sk.Size), Y: p.Y.Min})
			}
		}
		if len(xys) > 0 {
			sc, err := plotter.NewScatter(xys)
			if err != nil {
				return nil, errors.Wrap(err, "skipped cells")
			}
			sc.Shape = draw.CrossGlyph{}
			sc.Color = color.Gray{Y: 0x60}
			sc.Radius = vg.Points(4)
			p.Add(sc)
			p.Legend.Add("skipped", sc)
			// p.Add widens the axes to the scatter; restore them.
			xb.apply(&p.X, 1, 10)
			yb.apply(&p.Y, 1, 10)
		}
	}
	return p, nil
}

func translucent(c color.Color, alpha uint8) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: alpha}
}
