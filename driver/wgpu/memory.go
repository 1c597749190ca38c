// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dispatch/driver"
)

// memory is one device allocation with a host shadow. Map pulls the
// device contents into the shadow through a staging copy; Unmap pushes
// the shadow back to the device.
type memory struct {
	device *device
	buffer hal.Buffer
	shadow []byte
	va     uint64
	heap   driver.GpuHeap

	mapped    bool
	destroyed bool
}

func (m *memory) Size() uint64        { return uint64(len(m.shadow)) }
func (m *memory) GpuVirtAddr() uint64 { return m.va }

// Map refreshes the shadow from the device and returns it. Map does not
// nest.
func (m *memory) Map() ([]byte, driver.Result) {
	if m.destroyed || m.mapped {
		return nil, driver.ErrorMapFailed
	}
	if res := m.readback(); res.IsError() {
		return nil, res
	}
	m.mapped = true
	return m.shadow, driver.Success
}

// Unmap pushes the shadow to the device and invalidates the mapping.
func (m *memory) Unmap() driver.Result {
	if m.destroyed || !m.mapped {
		return driver.ErrorMapFailed
	}
	m.mapped = false
	m.device.halQueue.WriteBuffer(m.buffer, 0, m.shadow)
	return driver.Success
}

// Destroy releases the HAL buffer and the virtual address.
func (m *memory) Destroy() {
	if m.destroyed {
		return
	}
	m.destroyed = true
	m.device.releaseMemory(m.va)
	d := m.device
	d.mu.Lock()
	halDev := d.halDev
	d.mu.Unlock()
	if halDev != nil {
		halDev.DestroyBuffer(m.buffer)
	}
}

// readback copies the device buffer into the shadow through a MapRead
// staging buffer, draining the device so the copy completes before the
// staging memory is mapped.
func (m *memory) readback() driver.Result {
	d := m.device
	d.mu.Lock()
	halDev, halQueue := d.halDev, d.halQueue
	d.mu.Unlock()
	if halDev == nil {
		return driver.ErrorDeviceLost
	}

	staging, err := halDev.CreateBuffer(&hal.BufferDescriptor{
		Label: "dispatch_staging",
		Size:  uint64(len(m.shadow)),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		driver.Logger().Error("wgpu: create staging buffer", "error", err)
		return driver.ErrorOutOfMemory
	}
	defer halDev.DestroyBuffer(staging)

	encoder, err := halDev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "dispatch_readback"})
	if err != nil {
		return driver.ErrorUnknown
	}
	if err := encoder.BeginEncoding("readback"); err != nil {
		return driver.ErrorUnknown
	}
	encoder.CopyBufferToBuffer(m.buffer, staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: uint64(len(m.shadow))},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return driver.ErrorUnknown
	}
	defer halDev.FreeCommandBuffer(cmdBuf)

	if _, err := halQueue.Submit([]hal.CommandBuffer{cmdBuf}); err != nil {
		driver.Logger().Error("wgpu: submit readback", "error", err)
		return driver.ErrorDeviceLost
	}
	if err := halDev.WaitIdle(); err != nil {
		driver.Logger().Error("wgpu: wait readback", "error", err)
		return driver.ErrorDeviceLost
	}

	mapping, err := halDev.MapBuffer(staging, 0, uint64(len(m.shadow)))
	if err != nil {
		driver.Logger().Error("wgpu: map staging buffer", "error", err)
		return driver.ErrorMapFailed
	}
	copy(m.shadow, unsafe.Slice((*byte)(mapping.Ptr), len(m.shadow)))
	if err := halDev.UnmapBuffer(staging); err != nil {
		driver.Logger().Error("wgpu: unmap staging buffer", "error", err)
		return driver.ErrorMapFailed
	}
	return driver.Success
}
