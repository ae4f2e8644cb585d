// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchunit

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// FormatMicros formats a cost given in microseconds using the
// largest time unit that keeps the value at or above 1.
func FormatMicros(us float64) string {
	switch abs := math.Abs(us); {
	case math.IsNaN(us) || math.IsInf(us, 0):
		return fmt.Sprint(us)
	case abs == 0:
		return "0s"
	case abs < 1:
		return fmt.Sprintf("%.4gns", us*1e3)
	case abs < 1e3:
		return fmt.Sprintf("%.4gμs", us)
	case abs < 1e6:
		return fmt.Sprintf("%.4gms", us/1e3)
	}
	return fmt.Sprintf("%.4gs", us/1e6)
}

// FormatSize formats a workload size with thousands separators,
// e.g. "1,000,000".
func FormatSize(n int) string {
	return humanize.Comma(int64(n))
}
