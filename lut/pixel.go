// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lut

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strings"
)

// PixelFormat describes a packed pixel layout and converts it to and
// from normalized RGBA float32 values, 4 per pixel.
type PixelFormat struct {
	// Name is the format name used by [Engine.Process].
	Name string

	// BytesPerPixel is the packed size of one pixel.
	BytesPerPixel int

	// HasAlpha is false for formats that store no alpha. Unpack fills
	// in an alpha of 1 and Pack drops it.
	HasAlpha bool

	unpack func(src []byte, dst []float32)
	pack   func(src []float32, dst []byte)
}

// Unpack converts the packed pixels in src to normalized RGBA in dst,
// which must hold 4 values per pixel of src.
func (pf *PixelFormat) Unpack(src []byte, dst []float32) {
	n := len(src) / pf.BytesPerPixel
	for i := range n {
		pf.unpack(src[i*pf.BytesPerPixel:(i+1)*pf.BytesPerPixel], dst[i*4:i*4+4])
	}
}

// Pack converts normalized RGBA in src to packed pixels in dst.
// Integer formats round to nearest and clamp into range.
func (pf *PixelFormat) Pack(src []float32, dst []byte) {
	n := len(dst) / pf.BytesPerPixel
	for i := range n {
		pf.pack(src[i*4:i*4+4], dst[i*pf.BytesPerPixel:(i+1)*pf.BytesPerPixel])
	}
}

var pixelFormats = map[string]*PixelFormat{}

func addPixelFormat(pf *PixelFormat) {
	pixelFormats[pf.Name] = pf
}

// LookupPixelFormat returns the pixel format with the given name.
func LookupPixelFormat(name string) (*PixelFormat, error) {
	pf, ok := pixelFormats[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("pixel format %q: %w", name, ErrUnsupportedPixelFormat)
	}
	return pf, nil
}

// PixelFormats returns the sorted names of all pixel formats.
func PixelFormats() []string {
	names := make([]string, 0, len(pixelFormats))
	for n := range pixelFormats {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// quantize maps a normalized value to [0, top], rounding to nearest.
// NaN maps to 0.
func quantize(v float32, top uint32) uint32 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return top
	}
	return uint32(v*float32(top) + 0.5)
}

func init() {
	addPixelFormat(&PixelFormat{
		Name: "rgba8", BytesPerPixel: 4, HasAlpha: true,
		unpack: func(s []byte, d []float32) {
			d[0], d[1], d[2], d[3] = float32(s[0])/255, float32(s[1])/255, float32(s[2])/255, float32(s[3])/255
		},
		pack: func(s []float32, d []byte) {
			d[0], d[1], d[2], d[3] = byte(quantize(s[0], 255)), byte(quantize(s[1], 255)), byte(quantize(s[2], 255)), byte(quantize(s[3], 255))
		},
	})
	addPixelFormat(&PixelFormat{
		Name: "bgra8", BytesPerPixel: 4, HasAlpha: true,
		unpack: func(s []byte, d []float32) {
			d[0], d[1], d[2], d[3] = float32(s[2])/255, float32(s[1])/255, float32(s[0])/255, float32(s[3])/255
		},
		pack: func(s []float32, d []byte) {
			d[0], d[1], d[2], d[3] = byte(quantize(s[2], 255)), byte(quantize(s[1], 255)), byte(quantize(s[0], 255)), byte(quantize(s[3], 255))
		},
	})
	addPixelFormat(&PixelFormat{
		Name: "rgb8", BytesPerPixel: 3,
		unpack: func(s []byte, d []float32) {
			d[0], d[1], d[2], d[3] = float32(s[0])/255, float32(s[1])/255, float32(s[2])/255, 1
		},
		pack: func(s []float32, d []byte) {
			d[0], d[1], d[2] = byte(quantize(s[0], 255)), byte(quantize(s[1], 255)), byte(quantize(s[2], 255))
		},
	})
	// rgb10a2 is one little-endian word: red in bits 0-9, green in
	// 10-19, blue in 20-29 and alpha in 30-31.
	addPixelFormat(&PixelFormat{
		Name: "rgb10a2", BytesPerPixel: 4, HasAlpha: true,
		unpack: func(s []byte, d []float32) {
			w := binary.LittleEndian.Uint32(s)
			d[0] = float32(w&0x3ff) / 1023
			d[1] = float32((w>>10)&0x3ff) / 1023
			d[2] = float32((w>>20)&0x3ff) / 1023
			d[3] = float32(w>>30) / 3
		},
		pack: func(s []float32, d []byte) {
			w := quantize(s[0], 1023) | quantize(s[1], 1023)<<10 | quantize(s[2], 1023)<<20 | quantize(s[3], 3)<<30
			binary.LittleEndian.PutUint32(d, w)
		},
	})
	addPixelFormat(&PixelFormat{
		Name: "rgba16", BytesPerPixel: 8, HasAlpha: true,
		unpack: func(s []byte, d []float32) {
			for i := range 4 {
				d[i] = float32(binary.LittleEndian.Uint16(s[i*2:])) / 65535
			}
		},
		pack: func(s []float32, d []byte) {
			for i := range 4 {
				binary.LittleEndian.PutUint16(d[i*2:], uint16(quantize(s[i], 65535)))
			}
		},
	})
	// rgba32f keeps values outside [0,1].
	addPixelFormat(&PixelFormat{
		Name: "rgba32f", BytesPerPixel: 16, HasAlpha: true,
		unpack: func(s []byte, d []float32) {
			for i := range 4 {
				d[i] = math.Float32frombits(binary.LittleEndian.Uint32(s[i*4:]))
			}
		},
		pack: func(s []float32, d []byte) {
			for i := range 4 {
				binary.LittleEndian.PutUint32(d[i*4:], math.Float32bits(s[i]))
			}
		},
	})
}
