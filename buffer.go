// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dispatch

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/dispatch/driver"
)

// GpuMemoryBuffer owns a device-resident, host-mappable memory region.
// The device virtual address is immutable once created; map and unmap
// calls must pair and do not nest.
type GpuMemoryBuffer struct {
	handle  *driver.Handle[driver.GpuMemory]
	size    uint64
	gpuAddr uint64
	mapped  bool
}

// AllocateBuffer allocates device memory of the given byte size through
// the two-phase protocol.
func AllocateBuffer(device driver.Device, size uint64, heap driver.GpuHeap) (*GpuMemoryBuffer, error) {
	info := driver.MemoryCreateInfo{
		Size:    size,
		Heap:    heap,
		VaRange: driver.VaRangeDefault,
	}
	handle, err := driver.NewHandle(
		func() (uint64, driver.Result) { return device.MemorySize(info) },
		func(storage []byte) (driver.GpuMemory, driver.Result) {
			return device.CreateMemory(info, storage)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("allocate memory: %w", err)
	}

	mem := handle.Object()
	b := &GpuMemoryBuffer{
		handle:  handle,
		size:    mem.Size(),
		gpuAddr: mem.GpuVirtAddr(),
	}
	slogger().Debug("buffer allocated", "size", b.size, "gpuAddr", fmt.Sprintf("%#x", b.gpuAddr))
	return b, nil
}

// Size returns the allocation size in bytes.
func (b *GpuMemoryBuffer) Size() uint64 { return b.size }

// GpuVirtAddr returns the buffer's device virtual address.
func (b *GpuMemoryBuffer) GpuVirtAddr() uint64 { return b.gpuAddr }

// Map returns the host-visible contents of the buffer.
func (b *GpuMemoryBuffer) Map() ([]byte, error) {
	if b.mapped {
		return nil, ErrBufferAlreadyMapped
	}
	data, res := b.handle.Object().Map()
	if res.IsError() {
		return nil, drvCall("map", res)
	}
	b.mapped = true
	return data, nil
}

// Unmap invalidates the pointer returned by Map and makes host writes
// visible to the device.
func (b *GpuMemoryBuffer) Unmap() error {
	if !b.mapped {
		return ErrBufferNotMapped
	}
	b.mapped = false
	return drvCall("unmap", b.handle.Object().Unmap())
}

// WriteFloat32s maps the buffer, writes vals as little-endian 32-bit
// floats from offset zero, and unmaps along every exit path.
func (b *GpuMemoryBuffer) WriteFloat32s(vals []float32) (err error) {
	data, err := b.Map()
	if err != nil {
		return err
	}
	defer func() {
		if uerr := b.Unmap(); uerr != nil && err == nil {
			err = uerr
		}
	}()

	if uint64(len(vals))*4 > b.size {
		return fmt.Errorf("write of %d floats exceeds buffer size %d", len(vals), b.size)
	}
	for i, v := range vals {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return nil
}

// ReadFloat32s maps the buffer, reads count little-endian 32-bit floats
// from offset zero, and unmaps along every exit path.
func (b *GpuMemoryBuffer) ReadFloat32s(count int) (vals []float32, err error) {
	data, err := b.Map()
	if err != nil {
		return nil, err
	}
	defer func() {
		if uerr := b.Unmap(); uerr != nil && err == nil {
			err = uerr
			vals = nil
		}
	}()

	if uint64(count)*4 > b.size {
		return nil, fmt.Errorf("read of %d floats exceeds buffer size %d", count, b.size)
	}
	vals = make([]float32, count)
	for i := range vals {
		vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vals, nil
}

// Close releases the memory object. Safe to call more than once.
func (b *GpuMemoryBuffer) Close() {
	if b == nil {
		return
	}
	b.handle.Destroy()
}
