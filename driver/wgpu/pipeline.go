// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dispatch/driver"
)

// PipelineSlots is the number of buffer views the kernel consumes from
// its descriptor table: binding 0 reads slot 0 (read-write output),
// binding 1 reads slot 1 (read-only input).
const PipelineSlots = 2

// pipelineEntryPoint is the kernel entry point name all dispatch WGSL
// kernels export.
const pipelineEntryPoint = "main"

// compileKernel compiles WGSL source to SPIR-V words.
func compileKernel(source []byte) ([]uint32, driver.Result) {
	if len(source) == 0 {
		return nil, driver.ErrorInvalidPipelineBinary
	}
	spirvBytes, err := naga.Compile(string(source))
	if err != nil {
		driver.Logger().Error("wgpu: compile kernel", "error", err)
		return nil, driver.ErrorInvalidPipelineBinary
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, driver.Success
}

// pipeline owns the HAL pipeline and the layouts it was built with.
type pipeline struct {
	device    *device
	shader    hal.ShaderModule
	bgLayout  hal.BindGroupLayout
	plLayout  hal.PipelineLayout
	pipeline  hal.ComputePipeline
	destroyed bool
}

// newPipeline compiles the WGSL source and builds the HAL compute
// pipeline over the fixed two-binding layout.
func newPipeline(d *device, source []byte) (driver.Pipeline, driver.Result) {
	spirv, res := compileKernel(source)
	if res.IsError() {
		return nil, res
	}

	d.mu.Lock()
	halDev := d.halDev
	d.mu.Unlock()

	shader, err := halDev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "dispatch_kernel",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		driver.Logger().Error("wgpu: create shader module", "error", err)
		return nil, driver.ErrorInvalidPipelineBinary
	}

	bgLayout, err := halDev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "dispatch_bgl",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
			},
		},
	})
	if err != nil {
		halDev.DestroyShaderModule(shader)
		driver.Logger().Error("wgpu: create bind group layout", "error", err)
		return nil, driver.ErrorInitializationFailed
	}

	plLayout, err := halDev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "dispatch_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
	})
	if err != nil {
		halDev.DestroyBindGroupLayout(bgLayout)
		halDev.DestroyShaderModule(shader)
		driver.Logger().Error("wgpu: create pipeline layout", "error", err)
		return nil, driver.ErrorInitializationFailed
	}

	halPipeline, err := halDev.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "dispatch_pipeline",
		Layout: plLayout,
		Compute: hal.ComputeState{
			Module:     shader,
			EntryPoint: pipelineEntryPoint,
		},
	})
	if err != nil {
		halDev.DestroyPipelineLayout(plLayout)
		halDev.DestroyBindGroupLayout(bgLayout)
		halDev.DestroyShaderModule(shader)
		driver.Logger().Error("wgpu: create compute pipeline", "error", err)
		return nil, driver.ErrorInvalidPipelineBinary
	}

	return &pipeline{
		device:   d,
		shader:   shader,
		bgLayout: bgLayout,
		plLayout: plLayout,
		pipeline: halPipeline,
	}, driver.Success
}

// Destroy releases the pipeline and its layouts in reverse creation
// order.
func (p *pipeline) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true

	d := p.device
	d.mu.Lock()
	halDev := d.halDev
	d.mu.Unlock()
	if halDev == nil {
		return
	}
	halDev.DestroyComputePipeline(p.pipeline)
	halDev.DestroyPipelineLayout(p.plLayout)
	halDev.DestroyBindGroupLayout(p.bgLayout)
	halDev.DestroyShaderModule(p.shader)
}
