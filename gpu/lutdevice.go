// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"fmt"
	"log/slog"
	"sync"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/lut/lut"
	"github.com/cogentcore/webgpu/wgpu"
)

// LUTDevice is a [lut.Device] running the transform kernel on a GPU.
// Calls are serialized on one queue.
type LUTDevice struct {
	// Label names the device in logs.
	Label string

	gpu      *GPU
	device   *Device
	pipeline *ComputePipeline
	limits   lut.Limits

	mu       sync.Mutex
	released bool
}

// NewLUTDevice opens the adapter selected by cfg, a device on it,
// and the transform pipeline.
func NewLUTDevice(cfg lut.Config) (*LUTDevice, error) {
	gp, err := NewGPU(&Options{PowerPreference: cfg.PowerPreference, ForceFallbackAdapter: cfg.ForceFallbackAdapter})
	if err != nil {
		return nil, err
	}
	dev, err := NewDevice(gp)
	if err != nil {
		gp.Release()
		return nil, err
	}
	ld := &LUTDevice{Label: "webgpu " + cfg.ShaderFormat, gpu: gp, device: dev}
	ld.pipeline, err = NewComputePipeline(dev, "lut", cfg.ShaderFormat)
	if err != nil {
		dev.Release()
		gp.Release()
		return nil, err
	}
	ld.limits = deviceLimits(gp.Limits.Limits)
	return ld, nil
}

// deviceLimits derives the table and band limits from the largest
// storage buffer binding. Zero falls back to the WebGPU default.
func deviceLimits(wl wgpu.Limits) lut.Limits {
	size := int(wl.MaxStorageBufferBindingSize)
	if size == 0 {
		size = 128 << 20
	}
	dim := lut.MinDimension
	for VolumeSize(dim+1) <= size {
		dim++
	}
	return lut.Limits{MaxDimension: dim, MaxImagePixels: size / 16}
}

type band struct {
	src           *wgpu.Buffer
	width, height int
}

func (bd *band) Release() {
	if bd.src != nil {
		bd.src.Release()
		bd.src = nil
	}
}

type result struct {
	dst    *wgpu.Buffer
	read   *wgpu.Buffer
	params *wgpu.Buffer
	bg     *wgpu.BindGroup
	size   int
}

func (rs *result) Release() {
	if rs.bg != nil {
		rs.bg.Release()
		rs.bg = nil
	}
	for _, b := range []**wgpu.Buffer{&rs.dst, &rs.read, &rs.params} {
		if *b != nil {
			(*b).Release()
			*b = nil
		}
	}
}

func (ld *LUTDevice) Name() string { return ld.Label }

func (ld *LUTDevice) Limits() lut.Limits { return ld.limits }

// check must be called with mu held.
func (ld *LUTDevice) check() error {
	if ld.released {
		return fmt.Errorf("gpu.LUTDevice: released: %w", lut.ErrDeviceLost)
	}
	return nil
}

func (ld *LUTDevice) UploadVolume(tb *lut.Table) (lut.Volume, error) {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	if err := ld.check(); err != nil {
		return nil, err
	}
	vl, err := NewVolume(ld.device, tb.Title, tb)
	if err != nil {
		return nil, err
	}
	return vl, nil
}

func (ld *LUTDevice) UploadImage(pix []float32, width, height int) (lut.Image, error) {
	if len(pix) != 4*width*height {
		return nil, fmt.Errorf("gpu.LUTDevice UploadImage: %d values for %dx%d: %w", len(pix), width, height, lut.ErrBufferSizeMismatch)
	}
	ld.mu.Lock()
	defer ld.mu.Unlock()
	if err := ld.check(); err != nil {
		return nil, err
	}
	src, err := NewStorageBuffer(ld.device, "src", pix, wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	return &band{src: src, width: width, height: height}, nil
}

func (ld *LUTDevice) Execute(vol lut.Volume, img lut.Image, params lut.Params) (lut.Result, error) {
	vl, ok := vol.(*Volume)
	if !ok {
		return nil, fmt.Errorf("gpu.LUTDevice Execute: volume %T: %w", vol, lut.ErrInvalidArgument)
	}
	bd, ok := img.(*band)
	if !ok {
		return nil, fmt.Errorf("gpu.LUTDevice Execute: image %T: %w", img, lut.ErrInvalidArgument)
	}
	ld.mu.Lock()
	defer ld.mu.Unlock()
	if err := ld.check(); err != nil {
		return nil, err
	}
	kp := NewKernelParams(params, bd.width, bd.height)
	if Debug {
		fmt.Println("gpu.LUTDevice Execute", vl.Name, kp.String())
	}
	rs := &result{size: 16 * bd.width * bd.height}
	if err := ld.record(vl, bd, kp, rs); err != nil {
		rs.Release()
		return nil, err
	}
	return rs, nil
}

// record creates the output buffers of rs, and records and submits
// the dispatch followed by the copy into the read buffer.
func (ld *LUTDevice) record(vl *Volume, bd *band, kp KernelParams, rs *result) error {
	var err error
	rs.dst, err = NewBuffer(ld.device, "dst", rs.size, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	if err != nil {
		return err
	}
	rs.read, err = NewBuffer(ld.device, "read", rs.size, wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	rs.params, err = ld.device.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "params",
		Contents: wgpu.ToBytes([]KernelParams{kp}),
		Usage:    wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if errors.Log(err) != nil {
		return deviceError(err)
	}
	rs.bg, err = ld.pipeline.BindGroup(ld.device, vl, bd.src, rs.dst, rs.params)
	if err != nil {
		return err
	}
	cmd, err := ld.device.Device.CreateCommandEncoder(nil)
	if errors.Log(err) != nil {
		return submitError(err)
	}
	defer cmd.Release()
	ld.pipeline.Dispatch(cmd, rs.bg, bd.width, bd.height)
	cmd.CopyBufferToBuffer(rs.dst, 0, rs.read, 0, uint64(rs.size))
	cb, err := cmd.Finish(nil)
	if errors.Log(err) != nil {
		return submitError(err)
	}
	ld.device.Queue.Submit(cb)
	cb.Release()
	return nil
}

// submitError wraps err with [lut.ErrSubmit] unless it means the
// device is gone.
func submitError(err error) error {
	err = deviceError(err)
	if errors.Is(err, lut.ErrDeviceLost) {
		return err
	}
	return fmt.Errorf("gpu.LUTDevice submit: %w: %w", lut.ErrSubmit, err)
}

func (ld *LUTDevice) Readback(res lut.Result, dst []float32) error {
	rs, ok := res.(*result)
	if !ok {
		return fmt.Errorf("gpu.LUTDevice Readback: result %T: %w", res, lut.ErrInvalidArgument)
	}
	if 4*len(dst) != rs.size {
		return fmt.Errorf("gpu.LUTDevice Readback: %d values for %d bytes: %w", len(dst), rs.size, lut.ErrBufferSizeMismatch)
	}
	ld.mu.Lock()
	defer ld.mu.Unlock()
	if err := ld.check(); err != nil {
		return err
	}
	return ReadFloats(ld.device, rs.read, dst)
}

// Release waits for the queue and frees the pipeline, the device and
// the adapter. Volumes still held by a registry must be released first.
func (ld *LUTDevice) Release() {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	if ld.released {
		return
	}
	ld.released = true
	ld.device.WaitDone()
	ld.pipeline.Release()
	ld.device.Release()
	ld.gpu.Release()
	slog.Debug("gpu.LUTDevice Release", "Name", ld.Label)
}
