// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"cogentcore.org/core/base/errors"
	"github.com/cogentcore/webgpu/wgpu"
)

// Device holds the logical device and its queue.
type Device struct {
	// logical device
	Device *wgpu.Device

	// queue for device
	Queue *wgpu.Queue
}

// NewDevice returns a new device on the given GPU.
func NewDevice(gp *GPU) (*Device, error) {
	wdev, err := gp.GPU.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "lut",
	})
	if errors.Log(err) != nil {
		return nil, err
	}
	return &Device{Device: wdev, Queue: wdev.GetQueue()}, nil
}

// WaitDone waits until the device is done with all submitted work.
func (dv *Device) WaitDone() {
	if dv.Device == nil {
		return
	}
	dv.Device.Poll(true, nil)
}

// Release releases the queue and the device.
func (dv *Device) Release() {
	if dv.Device == nil {
		return
	}
	dv.Queue.Release()
	dv.Queue = nil
	dv.Device.Release()
	dv.Device = nil
}
