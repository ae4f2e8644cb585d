// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchunit

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const numPrefixes = `KMGTPEZY`

var sizeRe = regexp.MustCompile(`^(-?[0-9]+(?:\.[0-9]+)?)([k` + numPrefixes + `]i?)?$`)

// ParseSize parses a workload size such as "1000", "1_000", "10k" or
// "1Mi". SI prefixes scale by powers of 1000 and IEC prefixes (with a
// trailing "i") by powers of 1024. The scaled value must be an
// integer.
//
// ParseSize does not reject zero or negative sizes; that is left to
// the workload generator, which reports them per size.
func ParseSize(x string) (int, error) {
	s := strings.ReplaceAll(strings.TrimSpace(x), "_", "")
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}

	subs := sizeRe.FindStringSubmatch(s)
	if subs == nil {
		return 0, errors.Errorf("invalid size %q", x)
	}
	v, err := strconv.ParseFloat(subs[1], 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size %q", x)
	}
	if len(subs[2]) > 0 {
		pre := subs[2][0]
		if pre == 'k' {
			pre = 'K'
		}
		exp := 1 + strings.IndexByte(numPrefixes, pre)
		base := 1000.0
		if strings.HasSuffix(subs[2], "i") {
			base = 1024
		}
		v *= math.Pow(base, float64(exp))
	}
	if v != math.Trunc(v) || math.Abs(v) >= float64(math.MaxInt64) {
		return 0, errors.Errorf("invalid size %q: not an integer", x)
	}
	return int(v), nil
}

// ParseSizes parses a comma- or space-separated list of sizes.
func ParseSizes(list string) ([]int, error) {
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	sizes := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := ParseSize(f)
		if err != nil {
			return nil, err
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}
