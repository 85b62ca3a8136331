// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"fmt"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/lut/lut"
	"github.com/cogentcore/webgpu/wgpu"
)

// VolumeCellSize is the size in bytes of one grid point of a volume:
// 4 float32 values.
const VolumeCellSize = 16

// Volume is a read-only storage buffer holding one table, padded to
// RGBA, with red varying fastest and blue slowest.
// It implements [lut.Volume].
type Volume struct {
	// Name of the buffer, for debugging.
	Name string

	// Dimension is the number of grid points per axis.
	Dimension int

	buffer *wgpu.Buffer
}

// VolumeSize returns the size in bytes of a volume of dimension dim.
func VolumeSize(dim int) int {
	return VolumeCellSize * dim * dim * dim
}

// NewVolume creates the buffer for tb on device, holding its data.
func NewVolume(device *Device, name string, tb *lut.Table) (*Volume, error) {
	buf, err := NewStorageBuffer(device, name, tb.RGBA(), wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	return &Volume{Name: name, Dimension: tb.Dimension, buffer: buf}, nil
}

// SetFromTable writes the table data into the buffer.
func (vl *Volume) SetFromTable(device *Device, tb *lut.Table) error {
	if tb.Dimension != vl.Dimension {
		return fmt.Errorf("gpu.Volume SetFromTable %s: dimension %d != %d: %w", vl.Name, tb.Dimension, vl.Dimension, lut.ErrDimensionMismatch)
	}
	if vl.buffer == nil {
		return fmt.Errorf("gpu.Volume SetFromTable %s: no buffer: %w", vl.Name, lut.ErrInvalidArgument)
	}
	err := device.Queue.WriteBuffer(vl.buffer, 0, wgpu.ToBytes(tb.RGBA()))
	if errors.Log(err) != nil {
		return deviceError(err)
	}
	return nil
}

// Release frees the buffer.
func (vl *Volume) Release() {
	if vl.buffer == nil {
		return
	}
	vl.buffer.Release()
	vl.buffer = nil
}
