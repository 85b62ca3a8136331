// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lut

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// SoftwareDevice is a [Device] that runs the transform on the CPU,
// splitting the rows of each image across worker goroutines.
// It produces the same results as the GPU kernel, up to float rounding.
type SoftwareDevice struct {
	// Workers is the number of goroutines per transform.
	Workers int

	// MaxImagePixels is reported through [Limits].
	MaxImagePixels int

	released atomic.Bool
}

// NewSoftwareDevice returns a software device. A workers value of 0
// or less uses GOMAXPROCS.
func NewSoftwareDevice(workers int) *SoftwareDevice {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &SoftwareDevice{Workers: workers, MaxImagePixels: 1 << 24}
}

// SoftwareOpener returns an [Opener] for a new software device.
func SoftwareOpener(workers int) Opener {
	return func() (Device, error) {
		return NewSoftwareDevice(workers), nil
	}
}

type softVolume struct {
	volume
}

func (sv *softVolume) Release() { sv.data = nil }

type softImage struct {
	pix           []float32
	width, height int
}

func (si *softImage) Release() { si.pix = nil }

type softResult struct {
	pix []float32
}

func (sr *softResult) Release() { sr.pix = nil }

func (sd *SoftwareDevice) Name() string {
	return fmt.Sprintf("software (%d workers)", sd.Workers)
}

func (sd *SoftwareDevice) Limits() Limits {
	return Limits{MaxDimension: 1024, MaxImagePixels: sd.MaxImagePixels}
}

func (sd *SoftwareDevice) check() error {
	if sd.released.Load() {
		return fmt.Errorf("lut.SoftwareDevice: released: %w", ErrDeviceLost)
	}
	return nil
}

func (sd *SoftwareDevice) UploadVolume(tb *Table) (Volume, error) {
	if err := sd.check(); err != nil {
		return nil, err
	}
	data := tb.RGBA()
	if tb.Channels == 4 {
		data = append([]float32(nil), data...)
	}
	return &softVolume{volume{data: data, dim: tb.Dimension}}, nil
}

func (sd *SoftwareDevice) UploadImage(pix []float32, width, height int) (Image, error) {
	if err := sd.check(); err != nil {
		return nil, err
	}
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("lut.SoftwareDevice UploadImage: %d values for %dx%d: %w", len(pix), width, height, ErrBufferSizeMismatch)
	}
	return &softImage{pix: append([]float32(nil), pix...), width: width, height: height}, nil
}

func (sd *SoftwareDevice) Execute(vol Volume, img Image, params Params) (Result, error) {
	if err := sd.check(); err != nil {
		return nil, err
	}
	sv, ok := vol.(*softVolume)
	if !ok || sv.data == nil {
		return nil, fmt.Errorf("lut.SoftwareDevice Execute: volume from another device: %w", ErrInvalidArgument)
	}
	si, ok := img.(*softImage)
	if !ok || si.pix == nil {
		return nil, fmt.Errorf("lut.SoftwareDevice Execute: image from another device: %w", ErrInvalidArgument)
	}
	out := make([]float32, len(si.pix))
	rowsPer := max(1, (si.height+sd.Workers-1)/sd.Workers)
	var eg errgroup.Group
	for y0 := 0; y0 < si.height; y0 += rowsPer {
		y1 := min(y0+rowsPer, si.height)
		eg.Go(func() error {
			for i := y0 * si.width; i < y1*si.width; i++ {
				px := [4]float32(si.pix[i*4 : i*4+4])
				o := sv.transformPixel(px, &params)
				copy(out[i*4:i*4+4], o[:])
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return &softResult{pix: out}, nil
}

func (sd *SoftwareDevice) Readback(res Result, dst []float32) error {
	if err := sd.check(); err != nil {
		return err
	}
	sr, ok := res.(*softResult)
	if !ok || sr.pix == nil {
		return fmt.Errorf("lut.SoftwareDevice Readback: result from another device: %w", ErrInvalidArgument)
	}
	if len(dst) != len(sr.pix) {
		return fmt.Errorf("lut.SoftwareDevice Readback: have %d values, need %d: %w", len(dst), len(sr.pix), ErrBufferSizeMismatch)
	}
	copy(dst, sr.pix)
	return nil
}

func (sd *SoftwareDevice) Release() {
	sd.released.Store(true)
}
