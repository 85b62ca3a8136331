// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lut

// Device is a compute device that can hold table volumes and apply them
// to images. Implementations must be safe for concurrent use.
//
// Errors that mean the device is gone wrap [ErrDeviceLost]. Queue
// submission failures that may succeed when retried wrap [ErrSubmit].
type Device interface {
	// Name describes the device, for logging.
	Name() string

	// Limits returns the size limits of the device.
	Limits() Limits

	// UploadVolume copies the table into a new device volume,
	// padded to RGBA.
	UploadVolume(tb *Table) (Volume, error)

	// UploadImage stages width*height normalized RGBA pixels.
	UploadImage(pix []float32, width, height int) (Image, error)

	// Execute records and submits the transform of img through vol.
	Execute(vol Volume, img Image, params Params) (Result, error)

	// Readback waits for the result and copies it into dst, which
	// holds 4 values per pixel.
	Readback(res Result, dst []float32) error

	// Release frees the device and everything it still holds.
	Release()
}

// Volume is a table held on a device. It is owned by one registry entry.
type Volume interface {
	Release()
}

// Image is an input image staged on a device for one transform.
type Image interface {
	Release()
}

// Result is the output of one transform, waiting to be read back.
type Result interface {
	Release()
}

// Params are the per-transform settings passed to [Device.Execute].
type Params struct {
	Sampler Sampler

	// HasAlpha is true when the volume alpha replaces the image alpha.
	HasAlpha bool

	Dimension int

	DomainMin [3]float32
	DomainMax [3]float32
}

// TableParams returns the params for applying tb with sampler s.
func TableParams(tb *Table, s Sampler) Params {
	return Params{Sampler: s, HasAlpha: tb.HasAlpha(), Dimension: tb.Dimension, DomainMin: tb.DomainMin, DomainMax: tb.DomainMax}
}

// Limits are the size limits of a [Device].
type Limits struct {
	// MaxDimension is the largest table dimension the device can hold.
	MaxDimension int

	// MaxImagePixels is the largest number of pixels in one
	// [Device.UploadImage] call. Larger images are split into bands
	// of rows.
	MaxImagePixels int
}

// Opener opens a device. It is called by a [Context] on first use and
// again after the device is lost.
type Opener func() (Device, error)
