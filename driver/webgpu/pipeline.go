// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package webgpu

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gogpu/dispatch/driver"
)

// PipelineSlots is the number of buffer views the kernel consumes from
// its descriptor table: binding 0 reads slot 0 (read-write output),
// binding 1 reads slot 1 (read-only input).
const PipelineSlots = 2

// pipelineEntryPoint is the kernel entry point name all dispatch WGSL
// kernels export.
const pipelineEntryPoint = "main"

// pipeline owns the WebGPU pipeline and the layouts it was built with.
type pipeline struct {
	device    *device
	shader    *wgpu.ShaderModule
	bgLayout  *wgpu.BindGroupLayout
	plLayout  *wgpu.PipelineLayout
	pipeline  *wgpu.ComputePipeline
	destroyed bool
}

// newPipeline builds the WebGPU compute pipeline over the fixed
// two-binding layout. WGSL compilation errors surface here.
func newPipeline(d *device, source []byte) (driver.Pipeline, driver.Result) {
	d.mu.Lock()
	dev := d.wgpuDev
	d.mu.Unlock()

	shader, err := dev.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "dispatch_kernel",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: string(source)},
	})
	if err != nil {
		driver.Logger().Error("webgpu: create shader module", "error", err)
		return nil, driver.ErrorInvalidPipelineBinary
	}

	bgLayout, err := dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "dispatch_bgl",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			},
		},
	})
	if err != nil {
		shader.Release()
		driver.Logger().Error("webgpu: create bind group layout", "error", err)
		return nil, driver.ErrorInitializationFailed
	}

	plLayout, err := dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "dispatch_pl",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgLayout},
	})
	if err != nil {
		bgLayout.Release()
		shader.Release()
		driver.Logger().Error("webgpu: create pipeline layout", "error", err)
		return nil, driver.ErrorInitializationFailed
	}

	cp, err := dev.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  "dispatch_pipeline",
		Layout: plLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     shader,
			EntryPoint: pipelineEntryPoint,
		},
	})
	if err != nil {
		plLayout.Release()
		bgLayout.Release()
		shader.Release()
		driver.Logger().Error("webgpu: create compute pipeline", "error", err)
		return nil, driver.ErrorInvalidPipelineBinary
	}

	return &pipeline{
		device:   d,
		shader:   shader,
		bgLayout: bgLayout,
		plLayout: plLayout,
		pipeline: cp,
	}, driver.Success
}

// Destroy releases the pipeline and its layouts in reverse creation
// order.
func (p *pipeline) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	p.pipeline.Release()
	p.plLayout.Release()
	p.bgLayout.Release()
	p.shader.Release()
}
