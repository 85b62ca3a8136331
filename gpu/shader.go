// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"embed"
	"fmt"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/lut/lut"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
)

//go:embed shaders/*.wgsl
var shaders embed.FS

// KernelSource returns the WGSL source of the table transform kernel.
func KernelSource() string {
	b, err := shaders.ReadFile("shaders/lut.wgsl")
	errors.Log(err)
	return string(b)
}

// CompileKernel compiles the kernel to SPIR-V ahead of time.
func CompileKernel() ([]byte, error) {
	opts := naga.DefaultOptions()
	opts.Debug = Debug
	code, err := naga.CompileWithOptions(KernelSource(), opts)
	if err != nil {
		return nil, fmt.Errorf("gpu.CompileKernel: %w", err)
	}
	return code, nil
}

// NewShaderModule creates the kernel module on device.
// The format is wgsl, or spirv to give the device the naga output.
func NewShaderModule(device *Device, format string) (*wgpu.ShaderModule, error) {
	desc := &wgpu.ShaderModuleDescriptor{Label: "lut.wgsl"}
	switch format {
	case "", "wgsl":
		desc.WGSLDescriptor = &wgpu.ShaderModuleWGSLDescriptor{Code: KernelSource()}
	case "spirv":
		code, err := CompileKernel()
		if errors.Log(err) != nil {
			return nil, err
		}
		desc.SPIRVDescriptor = &wgpu.ShaderModuleSPIRVDescriptor{Code: code}
	default:
		return nil, fmt.Errorf("gpu.NewShaderModule: shader format %q: %w", format, lut.ErrUnsupportedFormat)
	}
	sh, err := device.Device.CreateShaderModule(desc)
	if errors.Log(err) != nil {
		return nil, deviceError(err)
	}
	return sh, nil
}
