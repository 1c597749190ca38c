// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dispatch

import (
	"fmt"

	"github.com/gogpu/dispatch/driver"
)

// PipelineResource owns a compute pipeline built from an externally
// supplied binary blob. The blob's binding layout is the kernel compiler's
// contract; mismatches surface as a driver-reported creation failure or an
// undefined dispatch outcome, never as a validation error here.
type PipelineResource struct {
	handle *driver.Handle[driver.Pipeline]
}

// NewPipelineResource constructs the pipeline through the two-phase
// protocol.
func NewPipelineResource(device driver.Device, binary []byte) (*PipelineResource, error) {
	if len(binary) == 0 {
		return nil, ErrNoPipelineBinary
	}

	info := driver.ComputePipelineCreateInfo{PipelineBinary: binary}
	handle, err := driver.NewHandle(
		func() (uint64, driver.Result) { return device.ComputePipelineSize(info) },
		func(storage []byte) (driver.Pipeline, driver.Result) {
			return device.CreateComputePipeline(info, storage)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	slogger().Info("pipeline initialized", "binarySize", len(binary))
	return &PipelineResource{handle: handle}, nil
}

// Pipeline returns the driver pipeline object.
func (p *PipelineResource) Pipeline() driver.Pipeline { return p.handle.Object() }

// Close releases the pipeline. Safe to call more than once.
func (p *PipelineResource) Close() {
	if p == nil {
		return
	}
	p.handle.Destroy()
}
