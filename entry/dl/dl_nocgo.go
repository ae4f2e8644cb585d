// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !cgo || !(linux || darwin || freebsd)

package dl

type handle struct{}

type symbolPtr *struct{}

func dlopen(string) (handle, error)            { return handle{}, ErrUnsupported }
func dlsym(handle, string) (symbolPtr, error)  { return nil, ErrUnsupported }
func dlclose(handle) error                     { return nil }
func callVoid(symbolPtr, []float32)            { panic(ErrUnsupported) }
func callReport(symbolPtr, []float32) uint64   { panic(ErrUnsupported) }
