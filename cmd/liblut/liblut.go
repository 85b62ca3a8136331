// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command liblut builds the engine as a C shared library:
//
//	go build -buildmode=c-shared -o liblut.so ./cmd/liblut
//
// Every function returns a status code, 0 on success. Strings are
// NUL terminated UTF-8, and every buffer comes with its length in bytes.
package main

/*
#include <stdint.h>
#include <stddef.h>
*/
import "C"

import (
	"unsafe"

	"cogentcore.org/lut/lut"
)

// statusStrings are allocated once and never freed.
var statusStrings = map[lut.Status]*C.char{}

func init() {
	for s := lut.OK; s <= lut.Internal; s++ {
		statusStrings[s] = C.CString(s.String())
	}
}

func goString(s *C.char) (string, bool) {
	if s == nil {
		return "", false
	}
	return C.GoString(s), true
}

// goBytes returns the n bytes at p without copying.
func goBytes(p *C.uint8_t, n C.size_t) ([]byte, bool) {
	if n == 0 {
		return []byte{}, true
	}
	if p == nil {
		return nil, false
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), int(n)), true
}

var invalid = C.int32_t(lut.InvalidArgument)

//export add_lut
func add_lut(name, format *C.char, data *C.uint8_t, n C.size_t) C.int32_t {
	nm, ok1 := goString(name)
	ft, ok2 := goString(format)
	b, ok3 := goBytes(data, n)
	if !ok1 || !ok2 || !ok3 {
		return invalid
	}
	return C.int32_t(addLUT(nm, ft, b))
}

//export add_lut_raw
func add_lut_raw(name *C.char, dim C.uint32_t, data *C.uint8_t, n C.size_t) C.int32_t {
	nm, ok1 := goString(name)
	b, ok2 := goBytes(data, n)
	if !ok1 || !ok2 {
		return invalid
	}
	return C.int32_t(addLUTRaw(nm, uint32(dim), b, false))
}

//export add_lut_raw_alpha
func add_lut_raw_alpha(name *C.char, dim C.uint32_t, data *C.uint8_t, n C.size_t) C.int32_t {
	nm, ok1 := goString(name)
	b, ok2 := goBytes(data, n)
	if !ok1 || !ok2 {
		return invalid
	}
	return C.int32_t(addLUTRaw(nm, uint32(dim), b, true))
}

//export del_lut
func del_lut(name *C.char) C.int32_t {
	nm, ok := goString(name)
	if !ok {
		return invalid
	}
	return C.int32_t(deleteLUT(nm))
}

//export process
func process(name, sampler, format *C.char, width, height C.uint32_t, data *C.uint8_t, n C.size_t) C.int32_t {
	nm, ok1 := goString(name)
	sm, ok2 := goString(sampler)
	ft, ok3 := goString(format)
	b, ok4 := goBytes(data, n)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return invalid
	}
	return C.int32_t(processPixels(nm, sm, ft, uint32(width), uint32(height), b))
}

//export load_lut_dir
func load_lut_dir(dir *C.char) C.int32_t {
	d, ok := goString(dir)
	if !ok {
		return invalid
	}
	return C.int32_t(loadDir(d))
}

//export lut_status_string
func lut_status_string(status C.int32_t) *C.char {
	if s, ok := statusStrings[lut.Status(status)]; ok {
		return s
	}
	return statusStrings[lut.Internal]
}

func main() {}
