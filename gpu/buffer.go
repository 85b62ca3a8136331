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

// note: Queue.WriteBuffer is used for writing, so we only need to manage Read

// BufferMapAsyncError returns an error if the status is not success.
// A lost device wraps [lut.ErrDeviceLost].
func BufferMapAsyncError(status wgpu.BufferMapAsyncStatus) error {
	switch status {
	case wgpu.BufferMapAsyncStatusSuccess:
		return nil
	case wgpu.BufferMapAsyncStatusDeviceLost:
		return fmt.Errorf("gpu BufferMapAsync: %w", lut.ErrDeviceLost)
	}
	return fmt.Errorf("gpu BufferMapAsync was not successful: %s", status.String())
}

// BufferReadSync does a MapAsync on given buffer, waiting on the device
// until the sync is complete, and returning error if any issues.
func BufferReadSync(device *Device, size int, buffer *wgpu.Buffer) error {
	status := wgpu.BufferMapAsyncStatusUnknown
	err := buffer.MapAsync(wgpu.MapModeRead, 0, uint64(size), func(s wgpu.BufferMapAsyncStatus) {
		status = s
	})
	if errors.Log(err) != nil {
		return deviceError(err)
	}
	device.WaitDone()
	return BufferMapAsyncError(status)
}

// ReadFloats maps the buffer, copies its first len(dst) float32 values
// into dst, and unmaps it.
func ReadFloats(device *Device, buffer *wgpu.Buffer, dst []float32) error {
	size := len(dst) * 4
	if err := BufferReadSync(device, size, buffer); err != nil {
		return err
	}
	bm := buffer.GetMappedRange(0, uint(size))
	copy(wgpu.ToBytes(dst), bm)
	buffer.Unmap()
	return nil
}

// NewStorageBuffer returns a storage buffer holding the given values.
func NewStorageBuffer(device *Device, name string, values []float32, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := device.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    name,
		Contents: wgpu.ToBytes(values),
		Usage:    wgpu.BufferUsageStorage | usage,
	})
	if errors.Log(err) != nil {
		return nil, deviceError(err)
	}
	return buf, nil
}

// NewBuffer returns an uninitialized buffer of the given size in bytes.
func NewBuffer(device *Device, name string, size int, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := device.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: name,
		Size:  uint64(size),
		Usage: usage,
	})
	if errors.Log(err) != nil {
		return nil, deviceError(err)
	}
	return buf, nil
}

// deviceError wraps err with [lut.ErrDeviceLost] when it reports a lost
// device or exhausted memory.
func deviceError(err error) error {
	var werr *wgpu.Error
	if errors.As(err, &werr) {
		switch werr.Type {
		case wgpu.ErrorTypeDeviceLost, wgpu.ErrorTypeOutOfMemory:
			return fmt.Errorf("%w: %w", lut.ErrDeviceLost, err)
		}
	}
	return err
}
