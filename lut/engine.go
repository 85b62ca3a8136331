// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lut applies 3D color lookup tables to images on a compute
// device.
//
// An [Engine] combines a [Registry] of named tables with a [Context]
// that owns the device. Tables are added from .cube text or raw float32
// grids, and [Engine.Process] transforms a packed pixel buffer in place
// through a named table.
package lut

import (
	"fmt"
	"image"
	"log/slog"
	"strings"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/lut/cube"
)

// Engine is the registry and transform pipeline on one device.
// It is safe for concurrent use.
type Engine struct {
	Config   Config
	Context  *Context
	Registry *Registry
}

// NewEngine returns an engine whose device is opened by open on first use.
func NewEngine(cfg Config, open Opener) *Engine {
	cx := NewContext(open)
	return &Engine{Config: cfg, Context: cx, Registry: NewRegistry(cx, cfg.MaxDimension)}
}

// Release drops all tables and releases the device.
func (en *Engine) Release() {
	en.Registry.Release()
	en.Context.Release()
}

// AddLUT parses data in the given format and adds it under name.
// The only format is "cube".
func (en *Engine) AddLUT(name, format string, data []byte) error {
	if !strings.EqualFold(format, "cube") {
		return fmt.Errorf("lut.Engine AddLUT %q: format %q: %w", name, format, ErrUnsupportedFormat)
	}
	c, err := cube.ParseBytes(data)
	if err != nil {
		return fmt.Errorf("lut.Engine AddLUT %q: %w", name, err)
	}
	return en.Registry.Add(name, FromCube(c))
}

// AddLUTRaw adds a raw 3 channel little-endian float32 grid.
func (en *Engine) AddLUTRaw(name string, dim int, raw []byte) error {
	return en.Registry.AddRaw(name, dim, raw, false)
}

// AddLUTRawAlpha adds a raw 4 channel little-endian float32 grid.
func (en *Engine) AddLUTRawAlpha(name string, dim int, raw []byte) error {
	return en.Registry.AddRaw(name, dim, raw, true)
}

// AddTable adds tb under name.
func (en *Engine) AddTable(name string, tb *Table) error {
	return en.Registry.Add(name, tb)
}

// Table returns the host copy of the named table.
func (en *Engine) Table(name string) (*Table, error) {
	h, err := en.Registry.Acquire(name)
	if err != nil {
		return nil, err
	}
	defer h.Release()
	return h.Table(), nil
}

// DeleteLUT removes the named table.
func (en *Engine) DeleteLUT(name string) error {
	return en.Registry.Remove(name)
}

// Process transforms width*height pixels of the given format in data,
// in place, through the named table. On any error data is unchanged.
func (en *Engine) Process(lutName, sampler, pixelFormat string, width, height int, data []byte) error {
	s, err := ParseSampler(sampler)
	if err != nil {
		return fmt.Errorf("lut.Engine Process: %w", err)
	}
	pf, err := LookupPixelFormat(pixelFormat)
	if err != nil {
		return fmt.Errorf("lut.Engine Process: %w", err)
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("lut.Engine Process: size %dx%d: %w", width, height, ErrBufferSizeMismatch)
	}
	if need := width * height * pf.BytesPerPixel; len(data) != need {
		return fmt.Errorf("lut.Engine Process: %d bytes, %dx%d %s needs %d: %w", len(data), width, height, pf.Name, need, ErrBufferSizeMismatch)
	}
	h, err := en.Registry.Acquire(lutName)
	if err != nil {
		return fmt.Errorf("lut.Engine Process: %w", err)
	}
	defer h.Release()

	pix := make([]float32, width*height*4)
	pf.Unpack(data, pix)
	if err := en.transform(h, s, width, height, pix); err != nil {
		return fmt.Errorf("lut.Engine Process %q: %w", lutName, err)
	}
	pf.Pack(pix, data)
	return nil
}

// ProcessFloat transforms normalized RGBA pixels, 4 values each, in place.
// On any error pix is unchanged.
func (en *Engine) ProcessFloat(lutName, sampler string, width, height int, pix []float32) error {
	s, err := ParseSampler(sampler)
	if err != nil {
		return fmt.Errorf("lut.Engine ProcessFloat: %w", err)
	}
	if width <= 0 || height <= 0 || len(pix) != width*height*4 {
		return fmt.Errorf("lut.Engine ProcessFloat: %d values for %dx%d: %w", len(pix), width, height, ErrBufferSizeMismatch)
	}
	h, err := en.Registry.Acquire(lutName)
	if err != nil {
		return fmt.Errorf("lut.Engine ProcessFloat: %w", err)
	}
	defer h.Release()

	work := append([]float32(nil), pix...)
	if err := en.transform(h, s, width, height, work); err != nil {
		return fmt.Errorf("lut.Engine ProcessFloat %q: %w", lutName, err)
	}
	copy(pix, work)
	return nil
}

// ProcessImage transforms img in place. The color values are treated as
// straight (not premultiplied) alpha, which is exact for opaque images.
func (en *Engine) ProcessImage(lutName, sampler string, img *image.RGBA) error {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	if img.Stride == w*4 {
		off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y)
		return en.Process(lutName, sampler, "rgba8", w, h, img.Pix[off:off+w*h*4])
	}
	// sub image: gather the rows into a tight buffer
	buf := make([]byte, w*h*4)
	for y := range h {
		off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(buf[y*w*4:(y+1)*w*4], img.Pix[off:off+w*4])
	}
	if err := en.Process(lutName, sampler, "rgba8", w, h, buf); err != nil {
		return err
	}
	for y := range h {
		off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(img.Pix[off:off+w*4], buf[y*w*4:(y+1)*w*4])
	}
	return nil
}

// bandRows returns the number of image rows per device upload.
func (en *Engine) bandRows(lim Limits, width int) (int, error) {
	maxPix := lim.MaxImagePixels
	if en.Config.MaxBandPixels > 0 && (maxPix <= 0 || en.Config.MaxBandPixels < maxPix) {
		maxPix = en.Config.MaxBandPixels
	}
	if maxPix <= 0 {
		return 1 << 30, nil
	}
	if width > maxPix {
		return 0, fmt.Errorf("row of %d pixels is above the device limit of %d: %w", width, maxPix, ErrBufferSizeMismatch)
	}
	return maxPix / width, nil
}

// transform runs the table of h over pix, in place, one band of rows
// at a time. pix is left partly transformed on error, so callers pass
// a buffer of their own.
func (en *Engine) transform(h *Handle, s Sampler, width, height int, pix []float32) error {
	vol, dev, gen, err := h.Volume()
	if err != nil {
		return err
	}
	rows, err := en.bandRows(dev.Limits(), width)
	if err != nil {
		return err
	}
	params := TableParams(h.Table(), s)
	for y0 := 0; y0 < height; y0 += rows {
		y1 := min(y0+rows, height)
		band := pix[y0*width*4 : y1*width*4]
		if err := en.runBand(dev, vol, params, band, width, y1-y0); err != nil {
			if errors.Is(err, ErrDeviceLost) {
				en.Context.MarkLost(gen)
			}
			return err
		}
	}
	return nil
}

// runBand uploads, executes and reads back one band, retrying failed
// queue submissions up to Config.SubmitRetries times.
func (en *Engine) runBand(dev Device, vol Volume, params Params, band []float32, width, height int) error {
	img, err := dev.UploadImage(band, width, height)
	if err != nil {
		return errors.Log(err)
	}
	defer img.Release()
	for try := 0; ; try++ {
		res, err := dev.Execute(vol, img, params)
		if errors.Is(err, ErrSubmit) {
			if try < en.Config.SubmitRetries {
				slog.Warn("lut.Engine submit retry", "Device", dev.Name(), "Try", try+1, "Error", err)
				continue
			}
			return fmt.Errorf("%w: %d submit retries failed: %w", ErrDeviceLost, en.Config.SubmitRetries, err)
		}
		if err != nil {
			return errors.Log(err)
		}
		err = dev.Readback(res, band)
		res.Release()
		return errors.Log(err)
	}
}
