// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gpu implements the [lut.Device] on WebGPU, running the
// table transform as a compute shader.
package gpu

import (
	"fmt"
	"log/slog"

	"cogentcore.org/core/base/errors"
	"github.com/cogentcore/webgpu/wgpu"
)

// Debug prints the transform parameters of every dispatch.
var Debug = false

// GPU represents the GPU hardware: the WebGPU instance and the adapter.
type GPU struct {
	// Instance represents the WebGPU system overall.
	Instance *wgpu.Instance

	// GPU is the specific GPU adapter used.
	GPU *wgpu.Adapter

	// Limits are the limits of the adapter.
	Limits wgpu.SupportedLimits
}

// Options select the adapter.
type Options struct {
	// PowerPreference is high-performance, low-power or empty.
	PowerPreference string

	// ForceFallbackAdapter requests a software adapter.
	ForceFallbackAdapter bool
}

// powerPreference returns the wgpu power preference for the option name.
func (o *Options) powerPreference() wgpu.PowerPreference {
	switch o.PowerPreference {
	case "high-performance":
		return wgpu.PowerPreferenceHighPerformance
	case "low-power":
		return wgpu.PowerPreferenceLowPower
	}
	return wgpu.PowerPreferenceUndefined
}

// NewGPU returns a new GPU for compute use, with an adapter chosen by opts.
func NewGPU(opts *Options) (*GPU, error) {
	if opts == nil {
		opts = &Options{PowerPreference: "high-performance"}
	}
	gp := &GPU{}
	gp.Instance = wgpu.CreateInstance(nil)
	ad, err := gp.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference:      opts.powerPreference(),
		ForceFallbackAdapter: opts.ForceFallbackAdapter,
	})
	if errors.Log(err) != nil {
		gp.Release()
		return nil, err
	}
	if ad == nil {
		gp.Release()
		return nil, errors.Log(fmt.Errorf("gpu.NewGPU: no adapter found"))
	}
	gp.GPU = ad
	gp.Limits = ad.GetLimits()
	slog.Debug("gpu.NewGPU", "MaxStorageBufferBindingSize", gp.Limits.Limits.MaxStorageBufferBindingSize)
	return gp, nil
}

// NoDisplayGPU returns a GPU and a compute Device without any
// connection to a display.
func NoDisplayGPU() (*GPU, *Device, error) {
	gp, err := NewGPU(nil)
	if err != nil {
		return nil, nil, err
	}
	dev, err := NewDevice(gp)
	if err != nil {
		gp.Release()
		return nil, nil, err
	}
	return gp, dev, nil
}

// Release releases the adapter and the instance.
func (gp *GPU) Release() {
	if gp.GPU != nil {
		gp.GPU.Release()
		gp.GPU = nil
	}
	if gp.Instance != nil {
		gp.Instance.Release()
		gp.Instance = nil
	}
}
