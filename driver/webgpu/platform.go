// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package webgpu

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gogpu/dispatch/driver"
)

// platform owns the WebGPU instance and the single requested adapter.
type platform struct {
	instance  *wgpu.Instance
	devices   []*device
	destroyed bool
}

// EnumerateDevices requests the default adapter and wraps it. WebGPU
// exposes one adapter per request; the device list has at most one
// entry. The device is not opened here; opening happens at Finalize.
func (p *platform) EnumerateDevices() ([]driver.Device, driver.Result) {
	if p.destroyed {
		return nil, driver.ErrorInvalidValue
	}
	if p.devices == nil {
		adapter, err := p.instance.RequestAdapter(&wgpu.RequestAdapterOptions{})
		if err != nil || adapter == nil {
			driver.Logger().Error("webgpu: request adapter", "error", err)
			return nil, driver.Success // no devices, not a failure
		}
		p.devices = []*device{newDevice(p, adapter)}
	}

	devs := make([]driver.Device, len(p.devices))
	for i, d := range p.devices {
		devs[i] = d
	}
	return devs, driver.Success
}

// Destroy tears down opened devices, the adapter and the instance.
func (p *platform) Destroy() {
	if p.destroyed {
		return
	}
	for _, d := range p.devices {
		d.close()
	}
	p.devices = nil
	p.instance.Release()
	p.destroyed = true
}

// Virtual-address layout of the emulated address space. WebGPU exposes
// no device virtual addresses, so the driver assigns its own; they stay
// below 4 GiB so the low 32 bits in a user-data register identify an
// allocation unambiguously.
const (
	vaBase      = 0x8000_0000
	vaAlignment = 0x100
	vaLimit     = 0xFFFF_0000
)

// device wraps one WebGPU adapter. The WebGPU device and queue exist
// only between Finalize and close.
type device struct {
	platform *platform
	adapter  *wgpu.Adapter
	props    driver.DeviceProperties

	mu        sync.Mutex
	committed bool
	finalized bool
	wgpuDev   *wgpu.Device
	wgpuQueue *wgpu.Queue
	nextVA    uint64
	memories  map[uint64]*memory
}

func newDevice(p *platform, adapter *wgpu.Adapter) *device {
	d := &device{
		platform: p,
		adapter:  adapter,
		nextVA:   vaBase,
		memories: make(map[uint64]*memory),
	}
	info := adapter.GetInfo()
	d.props = driver.DeviceProperties{
		GpuName:            info.Name,
		MaxUserDataEntries: 16,
		SrdSizes:           driver.SrdSizes{BufferView: driver.BufferViewRecordSize},
	}
	d.props.EngineProperties[driver.EngineTypeUniversal] = driver.EngineProperties{
		EngineCount:  1,
		QueueSupport: driver.SupportQueueTypeUniversal | driver.SupportQueueTypeCompute,
	}
	// WebGPU exposes a single queue; compute submissions share it.
	d.props.EngineProperties[driver.EngineTypeCompute] = driver.EngineProperties{
		EngineCount:  1,
		QueueSupport: driver.SupportQueueTypeCompute,
	}
	return d
}

// Properties returns the device capability report.
func (d *device) Properties() (driver.DeviceProperties, driver.Result) {
	return d.props, driver.Success
}

// CommitSettingsAndInit arms Finalize. WebGPU reads no settings files.
func (d *device) CommitSettingsAndInit() driver.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.committed {
		return driver.ErrorInvalidValue
	}
	d.committed = true
	return driver.Success
}

// Finalize requests the WebGPU device. Must follow CommitSettingsAndInit
// and may run only once.
func (d *device) Finalize(info driver.FinalizeInfo) driver.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.committed || d.finalized {
		return driver.ErrorInvalidValue
	}
	for t := driver.EngineType(0); t < driver.EngineTypeCount; t++ {
		if info.RequestedEngineCounts[t] > d.props.EngineProperties[t].EngineCount {
			return driver.ErrorUnsupported
		}
	}

	dev, err := d.adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "dispatch"})
	if err != nil {
		driver.Logger().Error("webgpu: request device", "adapter", d.props.GpuName, "error", err)
		return driver.ErrorInitializationFailed
	}
	d.wgpuDev = dev
	d.wgpuQueue = dev.GetQueue()
	d.finalized = true
	return driver.Success
}

func (d *device) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.wgpuQueue != nil {
		d.wgpuQueue.Release()
		d.wgpuQueue = nil
	}
	if d.wgpuDev != nil {
		d.wgpuDev.Release()
		d.wgpuDev = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
}

// ready reports whether resource creation is legal yet.
func (d *device) ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.finalized
}

// QueueSize reports queue backing-storage size.
func (d *device) QueueSize(info driver.QueueCreateInfo) (uint64, driver.Result) {
	if res := d.validateQueueInfo(info); res.IsError() {
		return 0, res
	}
	return queueStorageSize, driver.Success
}

// CreateQueue constructs a queue wrapper over the WebGPU queue.
func (d *device) CreateQueue(info driver.QueueCreateInfo, storage []byte) (driver.Queue, driver.Result) {
	if !d.ready() {
		return nil, driver.ErrorInvalidValue
	}
	if res := d.validateQueueInfo(info); res.IsError() {
		return nil, res
	}
	if uint64(len(storage)) < queueStorageSize {
		return nil, driver.ErrorInvalidValue
	}
	return &queue{device: d, info: info}, driver.Success
}

func (d *device) validateQueueInfo(info driver.QueueCreateInfo) driver.Result {
	if info.EngineType < 0 || info.EngineType >= driver.EngineTypeCount {
		return driver.ErrorInvalidValue
	}
	engine := d.props.EngineProperties[info.EngineType]
	if info.EngineIndex >= engine.EngineCount {
		return driver.ErrorInvalidValue
	}
	if !engine.QueueSupport.Supports(info.QueueType) {
		return driver.ErrorUnsupported
	}
	return driver.Success
}

// CmdAllocatorSize reports allocator backing-storage size.
func (d *device) CmdAllocatorSize(info driver.CmdAllocatorCreateInfo) (uint64, driver.Result) {
	for _, pool := range info.AllocInfo {
		if pool.AllocSize == 0 || pool.SuballocSize == 0 || pool.SuballocSize > pool.AllocSize {
			return 0, driver.ErrorInvalidValue
		}
	}
	return allocatorStorageSize, driver.Success
}

// CreateCmdAllocator constructs a command allocator. WebGPU allocates
// command memory per encoder, so the pools only gate validation.
func (d *device) CreateCmdAllocator(info driver.CmdAllocatorCreateInfo, storage []byte) (driver.CmdAllocator, driver.Result) {
	if !d.ready() {
		return nil, driver.ErrorInvalidValue
	}
	if _, res := d.CmdAllocatorSize(info); res.IsError() {
		return nil, res
	}
	if uint64(len(storage)) < allocatorStorageSize {
		return nil, driver.ErrorInvalidValue
	}
	return &cmdAllocator{device: d, info: info}, driver.Success
}

// CmdBufferSize reports command buffer backing-storage size.
func (d *device) CmdBufferSize(info driver.CmdBufferCreateInfo) (uint64, driver.Result) {
	if info.CmdAllocator == nil {
		return 0, driver.ErrorInvalidValue
	}
	return cmdBufferStorageSize, driver.Success
}

// CreateCmdBuffer constructs a command buffer bound to an allocator.
func (d *device) CreateCmdBuffer(info driver.CmdBufferCreateInfo, storage []byte) (driver.CmdBuffer, driver.Result) {
	if !d.ready() {
		return nil, driver.ErrorInvalidValue
	}
	alloc, ok := info.CmdAllocator.(*cmdAllocator)
	if !ok || alloc.device != d || alloc.destroyed {
		return nil, driver.ErrorInvalidValue
	}
	if uint64(len(storage)) < cmdBufferStorageSize {
		return nil, driver.ErrorInvalidValue
	}
	return &cmdBuffer{device: d, allocator: alloc, state: cmdBufferStateInitial}, driver.Success
}

// ComputePipelineSize reports pipeline backing-storage size. WGSL is
// compiled by the implementation at create time, so only emptiness is
// checkable in the size-query phase.
func (d *device) ComputePipelineSize(info driver.ComputePipelineCreateInfo) (uint64, driver.Result) {
	if len(info.PipelineBinary) == 0 {
		return 0, driver.ErrorInvalidPipelineBinary
	}
	return pipelineStorageSize, driver.Success
}

// CreateComputePipeline builds the WebGPU pipeline from WGSL source with
// the fixed two-binding layout.
func (d *device) CreateComputePipeline(info driver.ComputePipelineCreateInfo, storage []byte) (driver.Pipeline, driver.Result) {
	if !d.ready() {
		return nil, driver.ErrorInvalidValue
	}
	if len(info.PipelineBinary) == 0 {
		return nil, driver.ErrorInvalidPipelineBinary
	}
	if uint64(len(storage)) < pipelineStorageSize {
		return nil, driver.ErrorInvalidValue
	}
	return newPipeline(d, info.PipelineBinary)
}

// MemorySize reports memory object backing-storage size. This covers the
// wrapper, not the allocation it manages.
func (d *device) MemorySize(info driver.MemoryCreateInfo) (uint64, driver.Result) {
	if info.Size == 0 {
		return 0, driver.ErrorInvalidValue
	}
	return memoryStorageSize, driver.Success
}

// CreateMemory allocates a WebGPU storage buffer with a host shadow and
// assigns its emulated virtual address.
func (d *device) CreateMemory(info driver.MemoryCreateInfo, storage []byte) (driver.GpuMemory, driver.Result) {
	if !d.ready() {
		return nil, driver.ErrorInvalidValue
	}
	if info.Size == 0 {
		return nil, driver.ErrorInvalidValue
	}
	if uint64(len(storage)) < memoryStorageSize {
		return nil, driver.ErrorInvalidValue
	}

	d.mu.Lock()
	dev := d.wgpuDev
	d.mu.Unlock()

	buf, err := dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "dispatch_storage",
		Size:  info.Size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		driver.Logger().Error("webgpu: create buffer", "size", info.Size, "error", err)
		return nil, driver.ErrorOutOfMemory
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	va := d.nextVA
	span := (info.Size + vaAlignment - 1) &^ uint64(vaAlignment-1)
	if va+span > vaLimit {
		buf.Release()
		return nil, driver.ErrorOutOfMemory
	}
	d.nextVA = va + span

	m := &memory{
		device: d,
		buffer: buf,
		shadow: make([]byte, info.Size),
		va:     va,
		heap:   info.Heap,
	}
	d.memories[va] = m
	return m, driver.Success
}

// WriteBufferViewDescriptors encodes buffer-view records into dst.
func (d *device) WriteBufferViewDescriptors(dst []byte, views []driver.BufferViewInfo) driver.Result {
	need := len(views) * driver.BufferViewRecordSize
	if len(dst) < need {
		return driver.ErrorInvalidValue
	}
	for i, v := range views {
		if res := driver.EncodeBufferView(dst[i*driver.BufferViewRecordSize:], v); res.IsError() {
			return res
		}
	}
	return driver.Success
}

// memoryAt resolves the allocation containing [va, va+size).
func (d *device) memoryAt(va, size uint64) (*memory, driver.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for base, m := range d.memories {
		if va >= base && va+size <= base+uint64(len(m.shadow)) {
			return m, driver.Success
		}
	}
	return nil, driver.ErrorInvalidValue
}

// memoryByLow32 resolves an allocation from the low 32 bits of its
// virtual address, the form a user-data register carries.
func (d *device) memoryByLow32(addr uint32) (*memory, driver.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for base, m := range d.memories {
		if uint32(base) == addr {
			return m, driver.Success
		}
	}
	return nil, driver.ErrorInvalidValue
}

// releaseMemory removes a destroyed allocation from the address map.
func (d *device) releaseMemory(va uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.memories, va)
}
