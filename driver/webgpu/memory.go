// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package webgpu

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gogpu/dispatch/driver"
)

// memory is one device allocation with a host shadow. Map pulls the
// device contents into the shadow through a staging copy; Unmap pushes
// the shadow back to the device.
type memory struct {
	device *device
	buffer *wgpu.Buffer
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
	m.device.wgpuQueue.WriteBuffer(m.buffer, 0, m.shadow)
	return driver.Success
}

// Destroy releases the WebGPU buffer and the virtual address.
func (m *memory) Destroy() {
	if m.destroyed {
		return
	}
	m.destroyed = true
	m.device.releaseMemory(m.va)
	m.buffer.Release()
}

// readback copies the device buffer into the shadow through a MapRead
// staging buffer, polling the device until the map resolves.
func (m *memory) readback() driver.Result {
	d := m.device
	d.mu.Lock()
	dev, q := d.wgpuDev, d.wgpuQueue
	d.mu.Unlock()
	if dev == nil {
		return driver.ErrorDeviceLost
	}
	size := uint64(len(m.shadow))

	staging, err := dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "dispatch_staging",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		driver.Logger().Error("webgpu: create staging buffer", "error", err)
		return driver.ErrorOutOfMemory
	}
	defer staging.Release()

	encoder, err := dev.CreateCommandEncoder(nil)
	if err != nil {
		return driver.ErrorUnknown
	}
	defer encoder.Release()
	encoder.CopyBufferToBuffer(m.buffer, 0, staging, 0, size)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return driver.ErrorUnknown
	}
	defer cmd.Release()
	q.Submit(cmd)

	var status wgpu.BufferMapAsyncStatus
	err = staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	})
	if err != nil {
		driver.Logger().Error("webgpu: map staging buffer", "error", err)
		return driver.ErrorMapFailed
	}
	// Blocking poll drives the callback to completion.
	dev.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		driver.Logger().Error("webgpu: staging map failed", "status", status)
		return driver.ErrorMapFailed
	}
	defer staging.Unmap()

	copy(m.shadow, staging.GetMappedRange(0, uint(size)))
	return driver.Success
}
