// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/dispatch/driver"
)

// KernelBlobMagic tags a pipeline binary the soft driver accepts. The blob
// is the magic followed by a built-in kernel name.
const KernelBlobMagic = "SPK1"

// KernelBlob returns the pipeline binary selecting the named built-in
// kernel.
func KernelBlob(name string) []byte {
	return append([]byte(KernelBlobMagic), name...)
}

// kernelView is one buffer view resolved from the descriptor table at
// dispatch time.
type kernelView struct {
	data []byte
}

// kernel is a built-in compute kernel. slots is the number of descriptor
// table entries the kernel consumes; run receives them in table order.
type kernel struct {
	name      string
	localSize uint32
	slots     int
	run       func(views []kernelView, invocations uint32) driver.Result
}

// builtinKernels maps blob kernel names to implementations.
//
// KernelDoubleF32 mirrors the reference compute shader ABI: local size 8,
// a read-only f32 input buffer and a read-write f32 output buffer. The
// descriptor table feeds the output view through slot 0 and the input view
// through slot 1 (the kernel's second declared buffer reads slot 0).
var builtinKernels = map[string]*kernel{
	KernelDoubleF32: {
		name:      KernelDoubleF32,
		localSize: 8,
		slots:     2,
		run:       runDoubleF32,
	},
}

// KernelDoubleF32 doubles every 32-bit float of the input buffer into the
// output buffer.
const KernelDoubleF32 = "double_f32"

// parseKernelBlob resolves a pipeline binary to a built-in kernel.
func parseKernelBlob(blob []byte) (*kernel, driver.Result) {
	if len(blob) <= len(KernelBlobMagic) || string(blob[:len(KernelBlobMagic)]) != KernelBlobMagic {
		return nil, driver.ErrorInvalidPipelineBinary
	}
	k, ok := builtinKernels[string(blob[len(KernelBlobMagic):])]
	if !ok {
		return nil, driver.ErrorInvalidPipelineBinary
	}
	return k, driver.Success
}

// runDoubleF32 executes out[i] = in[i] * 2 for every invocation. Slot 0 is
// the output view, slot 1 the input view. Invocations beyond either view's
// extent write nothing.
func runDoubleF32(views []kernelView, invocations uint32) driver.Result {
	if len(views) != 2 {
		return driver.ErrorInvalidValue
	}
	out, in := views[0].data, views[1].data

	for i := uint32(0); i < invocations; i++ {
		off := int(i) * 4
		if off+4 > len(in) || off+4 > len(out) {
			break
		}
		v := math.Float32frombits(binary.LittleEndian.Uint32(in[off:]))
		binary.LittleEndian.PutUint32(out[off:], math.Float32bits(v*2))
	}
	return driver.Success
}

// pipeline is a constructed soft compute pipeline.
type pipeline struct {
	device    *device
	kernel    *kernel
	destroyed bool
}

// Destroy tears down the pipeline.
func (p *pipeline) Destroy() { p.destroyed = true }
