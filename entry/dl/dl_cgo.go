// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build cgo && (linux || darwin || freebsd)

package dl

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>

typedef void (*sort_void_fn)(float*, size_t);
typedef uint64_t (*sort_report_fn)(float*, size_t);

static void call_void(void *fn, float *buf, size_t n) {
	((sort_void_fn)fn)(buf, n);
}

static uint64_t call_report(void *fn, float *buf, size_t n) {
	return ((sort_report_fn)fn)(buf, n);
}
*/
import "C"

import (
	"unsafe"

	"github.com/pkg/errors"
)

type handle unsafe.Pointer

type symbolPtr unsafe.Pointer

func dlerror() string {
	if msg := C.dlerror(); msg != nil {
		return C.GoString(msg)
	}
	return "unknown dl error"
}

func dlopen(path string) (handle, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	h := C.dlopen(cpath, C.RTLD_NOW|C.RTLD_LOCAL)
	if h == nil {
		return nil, errors.New(dlerror())
	}
	return handle(h), nil
}

func dlsym(h handle, symbol string) (symbolPtr, error) {
	csym := C.CString(symbol)
	defer C.free(unsafe.Pointer(csym))
	C.dlerror()
	p := C.dlsym(unsafe.Pointer(h), csym)
	if p == nil {
		return nil, errors.New(dlerror())
	}
	return symbolPtr(p), nil
}

func dlclose(h handle) error {
	if C.dlclose(unsafe.Pointer(h)) != 0 {
		return errors.New(dlerror())
	}
	return nil
}

func bufPtr(buf []float32) *C.float {
	if len(buf) == 0 {
		return nil
	}
	return (*C.float)(unsafe.Pointer(&buf[0]))
}

func callVoid(p symbolPtr, buf []float32) {
	C.call_void(unsafe.Pointer(p), bufPtr(buf), C.size_t(len(buf)))
}

func callReport(p symbolPtr, buf []float32) uint64 {
	return uint64(C.call_report(unsafe.Pointer(p), bufPtr(buf), C.size_t(len(buf))))
}
