// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"fmt"
	"math"
	"unsafe"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/lut/lut"
	"github.com/cogentcore/webgpu/wgpu"
)

// WorkgroupSize is the number of threads per workgroup along x and y,
// matching @workgroup_size in the kernel.
const WorkgroupSize = 16

// KernelParams mirrors the Params uniform of the kernel.
type KernelParams struct {
	Width    uint32
	Height   uint32
	Dim      uint32
	Mode     uint32
	HasAlpha uint32
	pad0     uint32
	pad1     uint32
	pad2     uint32

	// DomainMin and DomainMax use the first 3 components.
	DomainMin [4]float32
	DomainMax [4]float32
}

// KernelParamsSize is the size in bytes of the Params uniform.
const KernelParamsSize = int(unsafe.Sizeof(KernelParams{}))

// NewKernelParams returns the uniform values for a width x height band.
func NewKernelParams(p lut.Params, width, height int) KernelParams {
	kp := KernelParams{
		Width:  uint32(width),
		Height: uint32(height),
		Dim:    uint32(p.Dimension),
		Mode:   uint32(p.Sampler),
	}
	if p.HasAlpha {
		kp.HasAlpha = 1
	}
	copy(kp.DomainMin[:], p.DomainMin[:])
	copy(kp.DomainMax[:], p.DomainMax[:])
	return kp
}

func (kp *KernelParams) String() string {
	return fmt.Sprintf("%dx%d dim: %d mode: %d alpha: %d domain: %v - %v", kp.Width, kp.Height, kp.Dim, kp.Mode, kp.HasAlpha, kp.DomainMin[:3], kp.DomainMax[:3])
}

// ComputePipeline is the table transform pipeline: the kernel module,
// its bind group layout and the pipeline itself.
type ComputePipeline struct {
	// Name of the pipeline, for debugging.
	Name string

	module   *wgpu.ShaderModule
	layout   *wgpu.BindGroupLayout
	plLayout *wgpu.PipelineLayout
	pipeline *wgpu.ComputePipeline
}

// NewComputePipeline creates the pipeline on device.
// See [NewShaderModule] for the format.
func NewComputePipeline(device *Device, name, format string) (*ComputePipeline, error) {
	pl := &ComputePipeline{Name: name}
	if err := pl.Config(device, format); err != nil {
		pl.Release()
		return nil, err
	}
	return pl, nil
}

// bindGroupLayoutEntries are the table volume, the source and
// destination pixels, and the params.
func bindGroupLayoutEntries() []wgpu.BindGroupLayoutEntry {
	entry := func(binding uint32, typ wgpu.BufferBindingType) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageCompute,
			Buffer:     wgpu.BufferBindingLayout{Type: typ},
		}
	}
	return []wgpu.BindGroupLayoutEntry{
		entry(0, wgpu.BufferBindingTypeReadOnlyStorage),
		entry(1, wgpu.BufferBindingTypeReadOnlyStorage),
		entry(2, wgpu.BufferBindingTypeStorage),
		entry(3, wgpu.BufferBindingTypeUniform),
	}
}

// Config creates the module, the layouts and the pipeline.
func (pl *ComputePipeline) Config(device *Device, format string) error {
	sh, err := NewShaderModule(device, format)
	if err != nil {
		return err
	}
	pl.module = sh
	bgl, err := device.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   pl.Name,
		Entries: bindGroupLayoutEntries(),
	})
	if errors.Log(err) != nil {
		return deviceError(err)
	}
	pl.layout = bgl
	pll, err := device.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            pl.Name,
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if errors.Log(err) != nil {
		return deviceError(err)
	}
	pl.plLayout = pll
	cp, err := device.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  pl.Name,
		Layout: pll,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     sh,
			EntryPoint: "main",
		},
	})
	if errors.Log(err) != nil {
		return deviceError(err)
	}
	pl.pipeline = cp
	return nil
}

// BindGroup binds the volume and the buffers of one dispatch.
func (pl *ComputePipeline) BindGroup(device *Device, vol *Volume, src, dst, params *wgpu.Buffer) (*wgpu.BindGroup, error) {
	buf := func(binding uint32, b *wgpu.Buffer) wgpu.BindGroupEntry {
		return wgpu.BindGroupEntry{Binding: binding, Buffer: b, Offset: 0, Size: wgpu.WholeSize}
	}
	bg, err := device.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  pl.Name,
		Layout: pl.layout,
		Entries: []wgpu.BindGroupEntry{
			buf(0, vol.buffer),
			buf(1, src),
			buf(2, dst),
			buf(3, params),
		},
	})
	if errors.Log(err) != nil {
		return nil, deviceError(err)
	}
	return bg, nil
}

// Dispatch records the compute pass over a width x height band
// into cmd.
func (pl *ComputePipeline) Dispatch(cmd *wgpu.CommandEncoder, bg *wgpu.BindGroup, width, height int) {
	ce := cmd.BeginComputePass(nil)
	ce.SetPipeline(pl.pipeline)
	ce.SetBindGroup(0, bg, nil)
	ce.DispatchWorkgroups(uint32(Warps(width, WorkgroupSize)), uint32(Warps(height, WorkgroupSize)), 1)
	ce.End()
	ce.Release()
}

// Release frees the pipeline objects.
func (pl *ComputePipeline) Release() {
	if pl.pipeline != nil {
		pl.pipeline.Release()
		pl.pipeline = nil
	}
	if pl.plLayout != nil {
		pl.plLayout.Release()
		pl.plLayout = nil
	}
	if pl.layout != nil {
		pl.layout.Release()
		pl.layout = nil
	}
	if pl.module != nil {
		pl.module.Release()
		pl.module = nil
	}
}

// Warps returns the number of warps (work goups of compute threads)
// that is sufficient to compute n elements, given specified number
// of threads per this dimension.
// It just rounds up to nearest even multiple of n divided by threads:
// Ceil(n / threads)
func Warps(n, threads int) int {
	return int(math.Ceil(float64(n) / float64(threads)))
}
