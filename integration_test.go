// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dispatch

import (
	"testing"

	"github.com/gogpu/dispatch/driver"
	"github.com/gogpu/dispatch/driver/webgpu"
	"github.com/gogpu/dispatch/driver/wgpu"
)

// doubleKernelWGSL mirrors the demo kernel: out[i] = in[i] * 2 with the
// fixed binding layout (binding 0 output, binding 1 input).
const doubleKernelWGSL = `
@group(0) @binding(0) var<storage, read_write> dst: array<f32>;
@group(0) @binding(1) var<storage, read> src: array<f32>;

@compute @workgroup_size(8)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    if (i < arrayLength(&src)) {
        dst[i] = src[i] * 2.0;
    }
}
`

// TestOrchestrator_RoundTripGPU runs the full dispatch sequence on each
// real GPU driver, skipping drivers that cannot run in this process.
func TestOrchestrator_RoundTripGPU(t *testing.T) {
	for _, name := range []string{wgpu.ProviderName, webgpu.ProviderName} {
		t.Run(name, func(t *testing.T) {
			p := driver.Get(name)
			if p == nil || !p.Available() {
				t.Skipf("driver %q not available", name)
			}

			cfg := DefaultConfig()
			cfg.DriverName = name
			cfg.PipelineBinary = []byte(doubleKernelWGSL)

			orc, err := NewOrchestrator(cfg)
			if err != nil {
				t.Fatalf("NewOrchestrator() error = %v", err)
			}

			input := make([]float32, cfg.ItemCount)
			for i := range input {
				input[i] = float32(i)
			}

			output, err := orc.Run(input)
			if err != nil {
				t.Fatalf("Run() error = %v (state %v)", err, orc.State())
			}
			for i, v := range output {
				if want := input[i] * 2; v != want {
					t.Errorf("output[%d] = %v, want %v", i, v, want)
				}
			}
		})
	}
}
