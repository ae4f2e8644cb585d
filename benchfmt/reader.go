// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchfmt

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/zchee/sortperf/benchunit"
	"github.com/zchee/sortperf/timing"
)

// A Reader reads the Go benchmark format.
//
// Its API is modeled on bufio.Scanner. A Reader retains ownership of
// the Result it returns; a caller should Clone anything it needs to
// keep across calls to Scan.
type Reader struct {
	s        *bufio.Scanner
	fileName string
	lineNum  int
	err      error // current I/O error

	result    Result
	resultErr error

	skips  []Skip
	inSkip bool // the previous line was a skip or its reason
}

// A Skip is a benchmark reported as skipped.
type Skip struct {
	Name   Name
	Reason string
}

// A SyntaxError represents a syntax error on a particular line of a
// benchmark results file.
type SyntaxError struct {
	FileName string
	Line     int
	Msg      string
}

func (s *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", s.FileName, s.Line, s.Msg)
}

var noResult = errors.New("Reader.Scan has not been called")

// NewReader constructs a reader to parse the Go benchmark format from r.
// fileName is used in error messages; it is purely diagnostic.
func NewReader(r io.Reader, fileName string) *Reader {
	if fileName == "" {
		fileName = "<unknown>"
	}
	return &Reader{
		s:         bufio.NewScanner(r),
		fileName:  fileName,
		resultErr: noResult,
	}
}

var (
	benchmarkPrefix = []byte("Benchmark")
	skipPrefix      = []byte("--- SKIP: Benchmark")
)

const skipIndent = "    "

// Scan advances the reader to the next result and reports whether a
// result was read. The caller should use the Result method to get the
// result. If Scan reaches EOF or an I/O error occurs, it returns
// false, in which case the caller should use the Err method to check
// for errors.
func (r *Reader) Scan() bool {
	if r.err != nil {
		return false
	}

	for r.s.Scan() {
		r.lineNum++
		line := r.s.Bytes()
		if bytes.HasPrefix(line, skipPrefix) {
			name := bytes.TrimSpace(line[len(skipPrefix):])
			r.skips = append(r.skips, Skip{Name: append(Name(nil), name...)})
			r.inSkip = true
			continue
		}
		if r.inSkip && bytes.HasPrefix(line, []byte(skipIndent)) {
			sk := &r.skips[len(r.skips)-1]
			reason := string(line[len(skipIndent):])
			if sk.Reason == "" {
				sk.Reason = reason
			} else {
				sk.Reason += "\n" + reason
			}
			continue
		}
		r.inSkip = false
		if bytes.HasPrefix(line, benchmarkPrefix) {
			// A malformed benchmark line is reported, not skipped.
			r.resultErr = r.parseBenchmarkLine(line)
			return true
		}
		if key, val, ok := parseKeyValueLine(line); ok {
			if len(val) == 0 {
				r.result.deleteFileConfig(string(key))
			} else {
				cfg := r.result.ensureFileConfig(string(key))
				cfg.Value = append(cfg.Value[:0], val...)
			}
			continue
		}
		// Ignore the line.
	}

	if err := r.s.Err(); err != nil {
		r.err = errors.Wrapf(err, "%s:%d", r.fileName, r.lineNum)
	}
	return false
}

// parseKeyValueLine attempts to parse line as a "key: val" pair,
// with ok reporting whether the line could be parsed.
func parseKeyValueLine(line []byte) (key, val []byte, ok bool) {
	for i := 0; i < len(line); {
		r, n := utf8.DecodeRune(line[i:])
		// key begins with a lower case character and contains
		// no space or upper case characters.
		if i == 0 && !unicode.IsLower(r) {
			return
		}
		if unicode.IsSpace(r) || unicode.IsUpper(r) {
			return
		}
		if i > 0 && r == ':' {
			key, val = line[:i], line[i+1:]
			break
		}
		i += n
	}
	if len(key) == 0 {
		return
	}
	// "key:" with no value deletes key.
	if len(val) == 0 {
		ok = true
		return
	}
	for len(val) > 0 && (val[0] == ' ' || val[0] == '\t') {
		val = val[1:]
		ok = true
	}
	return
}

// parseBenchmarkLine parses line into r.result. The caller must have
// already checked that line begins with "Benchmark".
func (r *Reader) parseBenchmarkLine(line []byte) error {
	var f []byte
	var err error

	line = line[len(benchmarkPrefix):]
	f, line = splitField(line)
	r.result.Name = append(r.result.Name[:0], f...)

	f, line = splitField(line)
	if len(f) == 0 {
		return &SyntaxError{r.fileName, r.lineNum, "missing iteration count"}
	}
	r.result.Iters, err = strconv.Atoi(string(f))
	if err != nil {
		return &SyntaxError{r.fileName, r.lineNum, "parsing iteration count: " + numErr(err)}
	}

	r.result.Values = r.result.Values[:0]
	for {
		f, line = splitField(line)
		if len(f) == 0 {
			if len(r.result.Values) > 0 {
				break
			}
			return &SyntaxError{r.fileName, r.lineNum, "missing measurements"}
		}
		val, err := strconv.ParseFloat(string(f), 64)
		if err != nil {
			return &SyntaxError{r.fileName, r.lineNum, "parsing measurement: " + numErr(err)}
		}
		f, line = splitField(line)
		if len(f) == 0 {
			return &SyntaxError{r.fileName, r.lineNum, "missing units"}
		}
		unit := string(f)

		tidyUnit, factor := benchunit.Tidy(unit)
		v := Value{Value: val, Unit: unit}
		if factor != 1 || tidyUnit != unit {
			v = Value{Value: val * factor, Unit: tidyUnit, OrigValue: val, OrigUnit: unit}
		}
		r.result.Values = append(r.result.Values, v)
	}
	return nil
}

func numErr(err error) string {
	var ne *strconv.NumError
	if errors.As(err, &ne) {
		return ne.Err.Error()
	}
	return err.Error()
}

// Result returns the last result read, or an error if the result was
// malformed. Parse errors are non-fatal, so the caller can continue
// to call Scan.
func (r *Reader) Result() (*Result, error) {
	if r.resultErr != nil {
		return nil, r.resultErr
	}
	return &r.result, nil
}

// Skips returns the skipped benchmarks read so far, in file order.
func (r *Reader) Skips() []Skip {
	return r.skips
}

// Err returns the first non-EOF I/O error that was encountered by the
// Reader.
func (r *Reader) Err() error {
	return r.err
}

const isSpace uint64 = 1<<'\t' | 1<<'\n' | 1<<'\v' | 1<<'\f' | 1<<'\r' | 1<<' '

// splitField consumes and returns non-whitespace in x as field,
// consumes whitespace following the field, and then returns the
// remaining bytes of x.
func splitField(x []byte) (field, rest []byte) {
	var i int
	for i = 0; i < len(x); {
		if x[i] < utf8.RuneSelf {
			if (isSpace>>x[i])&1 != 0 {
				rest = x[i+1:]
				break
			}
			i++
		} else {
			r, n := utf8.DecodeRune(x[i:])
			if unicode.IsSpace(r) {
				rest = x[i+n:]
				break
			}
			i += n
		}
	}
	field = x[:i]

	for len(rest) > 0 {
		if rest[0] < utf8.RuneSelf {
			if (isSpace>>rest[0])&1 == 0 {
				break
			}
			rest = rest[1:]
		} else {
			r, n := utf8.DecodeRune(rest)
			if !unicode.IsSpace(r) {
				break
			}
			rest = rest[n:]
		}
	}
	return
}

// A Log is the sort results of one file.
type Log struct {
	// Names orders the algorithms: the "algorithms" file
	// configuration first, then any other algorithm in order of
	// appearance.
	Names []string

	// Sizes lists every size with a result or a skip, in increasing
	// order.
	Sizes []int

	// Measurements holds one entry per result line. Trials are
	// numbered per (algorithm, size) cell in file order.
	Measurements []timing.Measurement

	Skips []CellSkip

	// Warnings holds malformed lines and results that are not sort
	// results.
	Warnings []error
}

// ReadLog reads every sort result and skip from r. Only an I/O error
// is fatal.
func ReadLog(r io.Reader, fileName string) (*Log, error) {
	type cell struct {
		name string
		size int
	}
	log := new(Log)
	trials := make(map[cell]int)
	seenName := make(map[string]bool)
	seenSize := make(map[int]bool)
	addName := func(name string) {
		if !seenName[name] {
			seenName[name] = true
			log.Names = append(log.Names, name)
		}
	}
	addSize := func(size int) {
		if !seenSize[size] {
			seenSize[size] = true
			log.Sizes = append(log.Sizes, size)
		}
	}
	var names []string // in order of appearance

	br := NewReader(r, fileName)
	for br.Scan() {
		res, err := br.Result()
		if err != nil {
			log.Warnings = append(log.Warnings, err)
			continue
		}
		m, err := res.Measurement()
		if err != nil {
			log.Warnings = append(log.Warnings, errors.Wrapf(err, "%s:%d", br.fileName, br.lineNum))
			continue
		}
		k := cell{m.Algorithm, m.Size}
		m.Trial = trials[k]
		trials[k]++
		log.Measurements = append(log.Measurements, m)
		names = append(names, m.Algorithm)
		addSize(m.Size)
	}
	if err := br.Err(); err != nil {
		return nil, err
	}

	for _, sk := range br.Skips() {
		algo, size, err := sk.Name.Cell()
		if err != nil {
			log.Warnings = append(log.Warnings, errors.Wrap(err, fileName))
			continue
		}
		log.Skips = append(log.Skips, CellSkip{Algorithm: algo, Size: size, Reason: sk.Reason})
		names = append(names, algo)
		addSize(size)
	}

	for _, esc := range strings.Fields(br.result.GetFileConfig("algorithms")) {
		name, err := url.PathUnescape(esc)
		if err != nil {
			log.Warnings = append(log.Warnings, errors.Wrapf(err, "%s: algorithms", fileName))
			continue
		}
		addName(name)
	}
	for _, name := range names {
		addName(name)
	}
	slices.Sort(log.Sizes)
	return log, nil
}
