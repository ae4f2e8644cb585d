// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchfmt

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"runtime"
	"strconv"
	"strings"

	"github.com/zchee/sortperf/timing"
)

// A Writer writes the Go benchmark format.
type Writer struct {
	w   io.Writer
	buf bytes.Buffer

	first      bool
	fileConfig map[string][]byte
	order      []string
}

// NewWriter returns a writer that writes Go benchmark results to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, first: true, fileConfig: make(map[string][]byte)}
}

// Write writes benchmark result res to w. If res's file configuration
// differs from the current file configuration in w, it first emits
// the appropriate file configuration lines. Values with an OrigUnit
// are written in their original unit.
func (w *Writer) Write(res *Result) error {
	w.syncFileConfig(res)

	fmt.Fprintf(&w.buf, "Benchmark%s %d", res.Name, res.Iters)
	for _, val := range res.Values {
		if val.OrigUnit == "" {
			fmt.Fprintf(&w.buf, " %v %s", val.Value, val.Unit)
		} else {
			fmt.Fprintf(&w.buf, " %v %s", val.OrigValue, val.OrigUnit)
		}
	}
	w.buf.WriteByte('\n')
	w.first = false

	// Writes to buf can't fail.
	_, err := w.w.Write(w.buf.Bytes())
	w.buf.Reset()
	return err
}

// WriteSkip writes a "--- SKIP" line for the benchmark named
// res.Name, followed by each line of reason indented by four spaces.
// res's file configuration is emitted first if it changed; its Values
// are ignored.
func (w *Writer) WriteSkip(res *Result, reason string) error {
	w.syncFileConfig(res)

	fmt.Fprintf(&w.buf, "--- SKIP: Benchmark%s\n", res.Name)
	for _, line := range strings.Split(reason, "\n") {
		fmt.Fprintf(&w.buf, "%s%s\n", skipIndent, line)
	}
	w.first = false

	_, err := w.w.Write(w.buf.Bytes())
	w.buf.Reset()
	return err
}

func (w *Writer) syncFileConfig(res *Result) {
	if len(w.fileConfig) != len(res.FileConfig) {
		w.writeFileConfig(res)
		return
	}
	for _, cfg := range res.FileConfig {
		if val, ok := w.fileConfig[cfg.Key]; !ok || !bytes.Equal(cfg.Value, val) {
			w.writeFileConfig(res)
			return
		}
	}
}

func (w *Writer) writeFileConfig(res *Result) {
	if !w.first {
		// Configuration blocks after results get an extra blank.
		w.buf.WriteByte('\n')
		w.first = true
	}

	// Walk keys we know to find changes and deletions.
	for i := 0; i < len(w.order); i++ {
		key := w.order[i]
		have := w.fileConfig[key]
		idx, ok := res.FileConfigIndex(key)
		if !ok {
			fmt.Fprintf(&w.buf, "%s:\n", key)
			delete(w.fileConfig, key)
			copy(w.order[i:], w.order[i+1:])
			w.order = w.order[:len(w.order)-1]
			i--
			continue
		}
		if bytes.Equal(have, res.FileConfig[idx].Value) {
			continue
		}
		cfg := &res.FileConfig[idx]
		fmt.Fprintf(&w.buf, "%s: %s\n", key, cfg.Value)
		w.fileConfig[key] = append(w.fileConfig[key][:0], cfg.Value...)
	}

	// Find new keys.
	if len(w.fileConfig) != len(res.FileConfig) {
		for _, cfg := range res.FileConfig {
			if _, ok := w.fileConfig[cfg.Key]; ok {
				continue
			}
			fmt.Fprintf(&w.buf, "%s: %s\n", cfg.Key, cfg.Value)
			w.fileConfig[cfg.Key] = append([]byte(nil), cfg.Value...)
			w.order = append(w.order, cfg.Key)
		}
	}

	w.buf.WriteByte('\n')
}

// RunConfig describes the run that produced a set of measurements.
type RunConfig struct {
	// Names lists the algorithms in timing order.
	Names []string
	// Workload names the workload source, such as "uniform".
	Workload string
	Trials   int
	Seed     uint64
	// CPU is the processor model, if known.
	CPU string
}

// Pairs returns c as the file configuration of a run: goos, goarch,
// cpu, algorithms, workload, trials and seed. Empty and zero fields
// are omitted.
func (c RunConfig) Pairs() []string {
	kv := []string{"goos", runtime.GOOS, "goarch", runtime.GOARCH}
	if c.CPU != "" {
		kv = append(kv, "cpu", c.CPU)
	}
	if len(c.Names) > 0 {
		esc := make([]string, len(c.Names))
		for i, name := range c.Names {
			esc[i] = url.PathEscape(name)
		}
		kv = append(kv, "algorithms", strings.Join(esc, " "))
	}
	if c.Workload != "" {
		kv = append(kv, "workload", c.Workload)
	}
	if c.Trials > 0 {
		kv = append(kv, "trials", strconv.Itoa(c.Trials))
	}
	if c.Seed != 0 {
		kv = append(kv, "seed", strconv.FormatUint(c.Seed, 10))
	}
	return kv
}

// A CellSkip is an (algorithm, size) cell without any measurement.
type CellSkip struct {
	Algorithm string
	Size      int
	Reason    string
}

// WriteMeasurements writes ms to w as one result per trial under the
// file configuration of c, followed by a skip for each of skips.
func WriteMeasurements(w io.Writer, c RunConfig, ms []timing.Measurement, skips []CellSkip) error {
	bw := NewWriter(w)
	cfg := c.Pairs()
	for _, m := range ms {
		if err := bw.Write(NewResult(m, cfg...)); err != nil {
			return err
		}
	}
	for _, sk := range skips {
		res := &Result{Name: SortName(sk.Algorithm, sk.Size)}
		for i := 0; i < len(cfg); i += 2 {
			res.SetFileConfig(cfg[i], cfg[i+1])
		}
		if err := bw.WriteSkip(res, sk.Reason); err != nil {
			return err
		}
	}
	return nil
}
