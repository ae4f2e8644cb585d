// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchunit manipulates the units and magnitudes that appear
// in sort benchmark results: workload sizes written with SI or IEC
// suffixes, and per-call costs measured in microseconds.
package benchunit

import (
	"strings"
	"sync"
)

type tidyEntry struct {
	tidied string
	factor float64
}

var tidyCache sync.Map // unit string -> *tidyEntry

// Tidy normalizes common pre-scaled units like "ns" to "sec" and "MB"
// to "B". It returns the tidied version of unit and the
// multiplicative factor to convert a value in unit "unit" to a value
// in unit "tidied". For example, to convert value x in the untidied
// unit to the tidied unit, multiply x by factor.
func Tidy(unit string) (tidied string, factor float64) {
	// Fast path for units the writer emits.
	switch unit {
	case "ns/op":
		return "sec/op", 1e-9
	case "us/op", "µs/op", "μs/op":
		return "sec/op", 1e-6
	case "sec/op", "B/op", "allocs/op":
		return unit, 1
	}
	// Fast path for units with no normalization.
	if !(strings.Contains(unit, "ns") || strings.Contains(unit, "MB")) {
		return unit, 1
	}

	if tc, ok := tidyCache.Load(unit); ok {
		tc := tc.(*tidyEntry)
		return tc.tidied, tc.factor
	}

	tidied, factor = tidy(unit)
	tidyCache.Store(unit, &tidyEntry{tidied, factor})
	return
}

func tidy(unit string) (tidied string, factor float64) {
	factor = 1
	// Only the numerator is rewritten.
	num, denom := unit, ""
	if i := strings.IndexByte(unit, '/'); i >= 0 {
		num, denom = unit[:i], unit[i:]
	}

	var b strings.Builder
	for len(num) > 0 {
		n := 0
		for n < len(num) && isLetter(num[n]) {
			n++
		}
		if n == 0 {
			b.WriteByte(num[0])
			num = num[1:]
			continue
		}
		tok := num[:n]
		num = num[n:]
		switch tok {
		case "ns":
			tok = "sec"
			factor /= 1e9
		case "MB":
			tok = "B"
			factor *= 1e6
		}
		b.WriteString(tok)
	}
	return b.String() + denom, factor
}

func isLetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}
