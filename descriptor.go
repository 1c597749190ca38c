// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dispatch

import (
	"fmt"

	"github.com/gogpu/dispatch/driver"
)

// DescriptorTable is a small GPU-resident buffer holding the two raw
// buffer-view descriptors the kernel consumes. It is created after the
// data buffers so their virtual addresses are known.
type DescriptorTable struct {
	buffer *GpuMemoryBuffer
}

// BuildDescriptorTable allocates the table and writes the input and
// output buffer views into it.
//
// Slot order is fixed by the compiled kernel's ABI, not by declaration
// order: slot 0 holds the view the kernel's second declared buffer reads
// (the read-write output), slot 1 the first (the read-only input). The
// order must match the kernel binary exactly.
func BuildDescriptorTable(device driver.Device, input, output *GpuMemoryBuffer) (*DescriptorTable, error) {
	props, res := device.Properties()
	if res.IsError() {
		return nil, drvCall("query device properties", res)
	}
	descriptorSize := uint64(props.SrdSizes.BufferView)

	buffer, err := AllocateBuffer(device, 2*descriptorSize, driver.GpuHeapGartUswc)
	if err != nil {
		return nil, fmt.Errorf("allocate descriptor table: %w", err)
	}

	if err := writeTable(device, buffer, input, output); err != nil {
		buffer.Close()
		return nil, err
	}

	slogger().Debug("descriptor table built",
		"gpuAddr", fmt.Sprintf("%#x", buffer.GpuVirtAddr()),
		"descriptorSize", descriptorSize)
	return &DescriptorTable{buffer: buffer}, nil
}

// writeTable maps the table and writes both descriptors, unmapping along
// every exit path.
func writeTable(device driver.Device, table *GpuMemoryBuffer, input, output *GpuMemoryBuffer) (err error) {
	data, err := table.Map()
	if err != nil {
		return fmt.Errorf("map descriptor table: %w", err)
	}
	defer func() {
		if uerr := table.Unmap(); uerr != nil && err == nil {
			err = uerr
		}
	}()

	views := []driver.BufferViewInfo{
		{GpuAddr: output.GpuVirtAddr(), Range: output.Size(), Stride: 0, Format: driver.FormatUntyped},
		{GpuAddr: input.GpuVirtAddr(), Range: input.Size(), Stride: 0, Format: driver.FormatUntyped},
	}
	return drvCall("write buffer view descriptors", device.WriteBufferViewDescriptors(data, views))
}

// GpuVirtAddr returns the table's device virtual address. Its low 32 bits
// go into the kernel's user-data register 0.
func (t *DescriptorTable) GpuVirtAddr() uint64 { return t.buffer.GpuVirtAddr() }

// Close releases the table's memory. Safe to call more than once.
func (t *DescriptorTable) Close() {
	if t == nil {
		return
	}
	t.buffer.Close()
}
