// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package statcsv reads precomputed per-method statistics from CSV
// summaries, such as those exported by hardware counter tools.
//
// A file looks like:
//
//	// cache misses, 20 runs
//	Method, Size, Mean, SD
//	Classical, 1000, 5230.5, 140.2
//	Block partition, 1000, 3120.0, 98.7
//
// Lines beginning with "//" are ignored. The first remaining line is
// the header, which must name the Method, Size, Mean and SD columns
// in any order. Whitespace after each comma is ignored.
package statcsv

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/zchee/sortperf/benchunit"
)

// A Record is the summary of one method at one size.
type Record struct {
	Size int
	Mean float64
	SD   float64
}

// A File is the parsed contents of one CSV summary.
type File struct {
	// Name identifies the file in warnings.
	Name string

	// Methods lists the methods in the order they first appear.
	Methods []string

	// Records maps each method to its records in file order.
	Records map[string][]Record

	// Warnings holds a *MalformedRecordError for every record
	// that was skipped.
	Warnings []error
}

// ErrMalformedRecord is matched by every *MalformedRecordError.
var ErrMalformedRecord = errors.New("malformed record")

// A MalformedRecordError describes a record that could not be used.
type MalformedRecordError struct {
	File string
	Line int
	Msg  string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// Is makes errors.Is(err, ErrMalformedRecord) true for e.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

var columns = []string{"Method", "Size", "Mean", "SD"}

// ReadFile reads the CSV summary at path.
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, path)
}

// Read reads a CSV summary from r. name is used in errors and
// warnings.
//
// Records that are missing a field or fail to parse are skipped and
// reported in File.Warnings. Read fails only if r cannot be read or
// the header lacks a required column.
func Read(r io.Reader, name string) (*File, error) {
	f := &File{Name: name, Records: make(map[string][]Record)}

	var idx []int // column index of each of columns
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.HasPrefix(text, "//") || strings.TrimSpace(text) == "" {
			continue
		}
		fields, err := splitLine(text)
		if err != nil {
			if idx == nil {
				return nil, errors.Wrapf(err, "%s:%d: parsing header", name, line)
			}
			f.warn(line, err.Error())
			continue
		}

		if idx == nil {
			idx, err = headerIndex(fields)
			if err != nil {
				return nil, errors.Wrapf(err, "%s:%d", name, line)
			}
			continue
		}

		method, rec, msg := parseRecord(fields, idx)
		if msg != "" {
			f.warn(line, msg)
			continue
		}
		if _, ok := f.Records[method]; !ok {
			f.Methods = append(f.Methods, method)
		}
		f.Records[method] = append(f.Records[method], rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	if idx == nil {
		return nil, errors.Errorf("%s: missing header", name)
	}
	return f, nil
}

func (f *File) warn(line int, msg string) {
	f.Warnings = append(f.Warnings, &MalformedRecordError{File: f.Name, Line: line, Msg: msg})
}

func splitLine(text string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	fields, err := cr.Read()
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func headerIndex(header []string) ([]int, error) {
	idx := make([]int, len(columns))
	for i, col := range columns {
		idx[i] = -1
		for j, h := range header {
			if strings.TrimSpace(h) == col {
				idx[i] = j
				break
			}
		}
		if idx[i] < 0 {
			return nil, errors.Errorf("header is missing column %q", col)
		}
	}
	return idx, nil
}

// parseRecord returns a non-empty msg if fields is unusable.
func parseRecord(fields []string, idx []int) (method string, rec Record, msg string) {
	get := func(col int) (string, bool) {
		i := idx[col]
		if i >= len(fields) {
			return "", false
		}
		return strings.TrimSpace(fields[i]), true
	}
	vals := make([]string, len(columns))
	for col := range columns {
		v, ok := get(col)
		if !ok || v == "" {
			return "", Record{}, fmt.Sprintf("missing %s", columns[col])
		}
		vals[col] = v
	}

	size, err := benchunit.ParseSize(vals[1])
	if err != nil {
		return "", Record{}, fmt.Sprintf("bad Size %q", vals[1])
	}
	if size <= 0 {
		return "", Record{}, fmt.Sprintf("Size %d is not positive", size)
	}
	mean, err := parseFloat(vals[2])
	if err != nil {
		return "", Record{}, fmt.Sprintf("bad Mean %q", vals[2])
	}
	sd, err := parseFloat(vals[3])
	if err != nil || sd < 0 {
		return "", Record{}, fmt.Sprintf("bad SD %q", vals[3])
	}
	return vals[0], Record{Size: size, Mean: mean, SD: sd}, ""
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not finite")
	}
	return v, nil
}
