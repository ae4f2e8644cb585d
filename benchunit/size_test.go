// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchunit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	for _, test := range []struct {
		in   string
		want int
	}{
		{"100", 100},
		{"1_000_000", 1000000},
		{"10k", 10000},
		{"10K", 10000},
		{"1.5k", 1500},
		{"1M", 1000000},
		{"1Ki", 1024},
		{"2Mi", 2 * 1024 * 1024},
		{"0", 0},
		{"-5", -5},
		{" 42 ", 42},
	} {
		got, err := ParseSize(test.in)
		if assert.NoError(t, err, test.in) {
			assert.Equal(t, test.want, got, test.in)
		}
	}

	for _, bad := range []string{"", "1.5", "abc", "10x", "k", "1.0001k"} {
		_, err := ParseSize(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseSizes(t *testing.T) {
	got, err := ParseSizes("100, 1k,10k 1M")
	require.NoError(t, err)
	assert.Equal(t, []int{100, 1000, 10000, 1000000}, got)

	_, err = ParseSizes("100,oops")
	assert.Error(t, err)
}

func TestTidy(t *testing.T) {
	for _, test := range []struct {
		unit, tidied string
		factor       float64
	}{
		{"ns/op", "sec/op", 1e-9},
		{"us/op", "sec/op", 1e-6},
		{"B/op", "B/op", 1},
		{"ns/elem", "sec/elem", 1e-9},
		{"MB/s", "B/s", 1e6},
		{"ns*MB/op", "sec*B/op", 1e-3},
		{"elems", "elems", 1},
	} {
		tidied, factor := Tidy(test.unit)
		assert.Equal(t, test.tidied, tidied, test.unit)
		assert.InDelta(t, test.factor, factor, test.factor*1e-12, test.unit)
	}
}

func TestFormatMicros(t *testing.T) {
	assert.Equal(t, "0s", FormatMicros(0))
	assert.Equal(t, "500ns", FormatMicros(0.5))
	assert.Equal(t, "12.5μs", FormatMicros(12.5))
	assert.Equal(t, "1.5ms", FormatMicros(1500))
	assert.Equal(t, "2s", FormatMicros(2e6))
	assert.Equal(t, "1,000,000", FormatSize(1000000))
}
