// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchtab presents sort series as console and CSV tables.
package benchtab

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/aclements/go-moremath/stats"
	"github.com/cheynewallace/tabby"
	"github.com/pkg/errors"

	"github.com/zchee/sortperf/benchunit"
	"github.com/zchee/sortperf/series"
)

// A Table is a grid of series points with one row per workload size
// and one column per algorithm. The final row summarizes each column
// by the geometric mean of its per-element cost.
type Table struct {
	// Sizes and Names give the rows and columns, in order.
	Sizes []int
	Names []string

	// Cells is keyed by (size, name). Missing keys are cells with
	// no data at all.
	Cells map[TableKey]*TableCell

	// Summary is keyed by Names.
	Summary map[string]*TableSummary

	// SummaryLabel is the label for the summary row.
	SummaryLabel string
}

// TableKey indexes a single cell in a Table.
type TableKey struct {
	Size int
	Name string
}

// TableCell is one (size, algorithm) cell.
type TableCell struct {
	// Point is valid if Skipped is false.
	Point series.Point

	// Skipped is set for cells that produced no measurement.
	Skipped bool

	// Warnings explains skipped cells and weak estimates.
	Warnings []error
}

// TableSummary summarizes a column of a Table.
type TableSummary struct {
	// HasSummary indicates that Summary is valid.
	HasSummary bool
	// Summary is the geometric mean per-element cost in
	// microseconds.
	Summary float64
}

// NewTable returns a table of ss over sizes, in the column order of
// names.
func NewTable(sizes []int, names []string, ss map[string]*series.Series) *Table {
	t := &Table{
		Sizes:        sizes,
		Names:        names,
		Cells:        make(map[TableKey]*TableCell),
		Summary:      make(map[string]*TableSummary),
		SummaryLabel: "geomean/elem",
	}
	for _, name := range names {
		s := ss[name]
		if s == nil {
			continue
		}
		var perElem []float64
		for _, p := range s.Points {
			c := &TableCell{Point: p}
			if p.N == 1 {
				c.Warnings = append(c.Warnings, errors.New("need >= 2 trials for a spread estimate"))
			}
			t.Cells[TableKey{p.Size, name}] = c
			if v := p.PerElement(); v > 0 {
				perElem = append(perElem, v)
			}
		}
		if len(perElem) > 0 {
			t.Summary[name] = &TableSummary{HasSummary: true, Summary: stats.GeoMean(perElem)}
		}
	}
	return t
}

// Skip marks the (size, name) cell as skipped because of err.
func (t *Table) Skip(name string, size int, err error) {
	t.Cells[TableKey{size, name}] = &TableCell{Skipped: true, Warnings: []error{err}}
}

// spread formats c's standard deviation relative to its mean.
func (c *TableCell) spread() string {
	p := c.Point
	switch {
	case p.N == 1:
		return "∞"
	case p.Mean == 0:
		return "?"
	}
	return fmt.Sprintf("%.0f%%", 100*p.StdDev/p.Mean)
}

// ToText renders t as aligned columns through tabby.
func (t *Table) ToText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	tab := tabby.NewCustom(tw)

	var warningList []string
	warningSet := make(map[string]int)
	footnotes := func(errs []error) string {
		var marks []string
		for _, err := range errs {
			s := err.Error()
			i, ok := warningSet[s]
			if !ok {
				i = len(warningList)
				warningSet[s] = i
				warningList = append(warningList, s)
			}
			marks = append(marks, superscript(i+1))
		}
		return strings.Join(marks, " ")
	}

	hdr := []any{"n"}
	for _, name := range t.Names {
		hdr = append(hdr, name)
	}
	tab.AddHeader(hdr...)

	for _, size := range t.Sizes {
		line := []any{benchunit.FormatSize(size)}
		for _, name := range t.Names {
			c, ok := t.Cells[TableKey{size, name}]
			switch {
			case !ok:
				line = append(line, "")
			case c.Skipped:
				line = append(line, "skipped"+footnotes(c.Warnings))
			default:
				line = append(line, benchunit.FormatMicros(c.Point.Mean)+" ± "+c.spread()+footnotes(c.Warnings))
			}
		}
		tab.AddLine(line...)
	}

	if len(t.Sizes) > 1 {
		line := []any{t.SummaryLabel}
		for _, name := range t.Names {
			if sum, ok := t.Summary[name]; ok && sum.HasSummary {
				line = append(line, benchunit.FormatMicros(sum.Summary))
			} else {
				line = append(line, "")
			}
		}
		tab.AddLine(line...)
	}
	tab.Print()

	for i, msg := range warningList {
		if _, err := fmt.Fprintf(w, "%s %s\n", superscript(i+1), msg); err != nil {
			return err
		}
	}
	return nil
}

var superDigits = []rune("⁰¹²³⁴⁵⁶⁷⁸⁹")

func superscript(i int) string {
	if i == 0 {
		return string(superDigits[0])
	}

	var buf [20]rune
	pos := len(buf)
	for i > 0 && pos > 0 {
		pos--
		buf[pos] = superDigits[i%10]
		i /= 10
	}
	return string(buf[pos:])
}

// ToCSV renders t to CSV format with a mean and a standard deviation
// column per algorithm, both in microseconds per call. Warnings are
// written in text format to the "warnings" Writer, prefixed with
// spreadsheet-style cell references that assume the table begins on
// row "startRow".
func (t *Table) ToCSV(o *csv.Writer, startRow int, warnings io.Writer) (rowCount int) {
	var row []string
	emit := func() {
		o.Write(row)
		row = row[:0]
		rowCount++
	}
	warn := func(msgs []error) {
		for _, msg := range msgs {
			fmt.Fprintf(warnings, "%s%d: %s\n", colName(len(row)), startRow+rowCount, msg)
		}
	}

	row = append(row, "size")
	for _, name := range t.Names {
		row = append(row, name+" (μs)", name+" ± (μs)")
	}
	emit()

	for _, size := range t.Sizes {
		row = append(row, strconv.Itoa(size))
		for _, name := range t.Names {
			c, ok := t.Cells[TableKey{size, name}]
			switch {
			case !ok:
				row = append(row, "", "")
			case c.Skipped:
				warn(c.Warnings)
				row = append(row, "skipped", "")
			default:
				warn(c.Warnings)
				row = append(row, fmtFloat(c.Point.Mean), fmtFloat(c.Point.StdDev))
			}
		}
		emit()
	}

	row = append(row, t.SummaryLabel)
	for _, name := range t.Names {
		if sum, ok := t.Summary[name]; ok && sum.HasSummary {
			row = append(row, fmtFloat(sum.Summary), "")
		} else {
			row = append(row, "", "")
		}
	}
	emit()
	o.Flush()
	return
}

func fmtFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// colName returns the spreadsheet name of 0-based column x.
func colName(x int) string {
	var buf [10]byte
	pos := len(buf)
	for x++; x > 0; x = (x - 1) / 26 {
		pos--
		buf[pos] = 'A' + byte((x-1)%26)
	}
	return string(buf[pos:])
}
