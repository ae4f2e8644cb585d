// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package entry

import (
	"cmp"
	"slices"
	"sort"

	"github.com/pkg/errors"
)

// builtins maps the short names accepted by Builtin to their
// constructors, in the order BuiltinNames reports them.
var builtins = []struct {
	key  string
	make func() Entry
}{
	{"std", func() Entry { return Func("Std sort", slices.Sort[[]float32]) }},
	{"sort-interface", func() Entry {
		return Func("Sort interface", func(buf []float32) { sort.Sort(float32Slice(buf)) })
	}},
	{"stable", func() Entry {
		return Func("Stable sort", func(buf []float32) { slices.SortStableFunc(buf, cmp.Compare[float32]) })
	}},
}

// BuiltinNames returns the keys accepted by Builtin.
func BuiltinNames() []string {
	keys := make([]string, len(builtins))
	for i, b := range builtins {
		keys[i] = b.key
	}
	return keys
}

// Builtin returns a Timed entry backed by the Go standard library.
//
//	std             slices.Sort (pattern-defeating quicksort)
//	sort-interface  sort.Sort through sort.Interface
//	stable          slices.SortStableFunc (insertion sort + symmerge)
func Builtin(key string) (Entry, error) {
	for _, b := range builtins {
		if b.key == key {
			return b.make(), nil
		}
	}
	return nil, errors.Errorf("unknown builtin sort %q", key)
}

type float32Slice []float32

func (x float32Slice) Len() int           { return len(x) }
func (x float32Slice) Less(i, j int) bool { return x[i] < x[j] }
func (x float32Slice) Swap(i, j int)      { x[i], x[j] = x[j], x[i] }
