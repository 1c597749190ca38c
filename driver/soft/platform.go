// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"sync"

	"github.com/gogpu/dispatch/driver"
)

// platform is the soft driver's root object.
type platform struct {
	settingsPath string
	devices      []*device
	destroyed    bool
}

// Destroy tears down the platform and its devices.
func (p *platform) Destroy() {
	if p.destroyed {
		return
	}
	p.devices = nil
	p.destroyed = true
}

// EnumerateDevices returns the platform's devices.
func (p *platform) EnumerateDevices() ([]driver.Device, driver.Result) {
	if p.destroyed {
		return nil, driver.ErrorInvalidValue
	}
	devs := make([]driver.Device, len(p.devices))
	for i, d := range p.devices {
		devs[i] = d
	}
	return devs, driver.Success
}

// Virtual-address layout of the soft device. Addresses stay below 4 GiB so
// the low 32 bits written into a user-data register identify an allocation
// unambiguously.
const (
	vaBase      = 0x1000_0000
	vaAlignment = 0x100
	vaLimit     = 0xFFFF_0000
)

// device is the soft driver's single virtual GPU.
type device struct {
	platform *platform
	props    driver.DeviceProperties

	mu        sync.Mutex
	committed bool
	finalized bool
	nextVA    uint64
	memories  map[uint64]*memory
}

func newDevice(p *platform) *device {
	d := &device{
		platform: p,
		nextVA:   vaBase,
		memories: make(map[uint64]*memory),
	}
	d.props = driver.DeviceProperties{
		GpuName:            "Soft Virtual GPU",
		MaxUserDataEntries: 16,
		Flags:              driver.DevicePropertiesFlags{SupportHsaAbi: true},
		SrdSizes:           driver.SrdSizes{BufferView: driver.BufferViewRecordSize},
	}
	d.props.EngineProperties[driver.EngineTypeUniversal] = driver.EngineProperties{
		EngineCount:  1,
		QueueSupport: driver.SupportQueueTypeUniversal | driver.SupportQueueTypeCompute,
	}
	d.props.EngineProperties[driver.EngineTypeCompute] = driver.EngineProperties{
		EngineCount:  4,
		QueueSupport: driver.SupportQueueTypeCompute,
	}
	d.props.EngineProperties[driver.EngineTypeDma] = driver.EngineProperties{
		EngineCount:  2,
		QueueSupport: driver.SupportQueueTypeDma,
	}
	return d
}

// Properties returns the device capability report.
func (d *device) Properties() (driver.DeviceProperties, driver.Result) {
	return d.props, driver.Success
}

// CommitSettingsAndInit commits settings overrides. The soft device has no
// settings to read; the call only arms Finalize.
func (d *device) CommitSettingsAndInit() driver.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.committed {
		return driver.ErrorInvalidValue
	}
	d.committed = true
	return driver.Success
}

// Finalize commits the engine configuration. Must follow
// CommitSettingsAndInit and may run only once.
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
	d.finalized = true
	return driver.Success
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

// CreateQueue constructs a queue for one engine.
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
	return cmdAllocatorStorageSize, driver.Success
}

// CreateCmdAllocator constructs a command allocator.
func (d *device) CreateCmdAllocator(info driver.CmdAllocatorCreateInfo, storage []byte) (driver.CmdAllocator, driver.Result) {
	if !d.ready() {
		return nil, driver.ErrorInvalidValue
	}
	if _, res := d.CmdAllocatorSize(info); res.IsError() {
		return nil, res
	}
	if uint64(len(storage)) < cmdAllocatorStorageSize {
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
	if !ok || alloc.device != d {
		return nil, driver.ErrorInvalidValue
	}
	if alloc.destroyed {
		return nil, driver.ErrorInvalidValue
	}
	if uint64(len(storage)) < cmdBufferStorageSize {
		return nil, driver.ErrorInvalidValue
	}
	return &cmdBuffer{device: d, allocator: alloc, state: cmdBufferStateInitial}, driver.Success
}

// ComputePipelineSize reports pipeline backing-storage size. The blob is
// validated here so an unknown kernel fails in the size-query phase.
func (d *device) ComputePipelineSize(info driver.ComputePipelineCreateInfo) (uint64, driver.Result) {
	if _, res := parseKernelBlob(info.PipelineBinary); res.IsError() {
		return 0, res
	}
	return pipelineStorageSize, driver.Success
}

// CreateComputePipeline constructs a pipeline from a kernel blob.
func (d *device) CreateComputePipeline(info driver.ComputePipelineCreateInfo, storage []byte) (driver.Pipeline, driver.Result) {
	if !d.ready() {
		return nil, driver.ErrorInvalidValue
	}
	k, res := parseKernelBlob(info.PipelineBinary)
	if res.IsError() {
		return nil, res
	}
	if uint64(len(storage)) < pipelineStorageSize {
		return nil, driver.ErrorInvalidValue
	}
	return &pipeline{device: d, kernel: k}, driver.Success
}

// MemorySize reports memory object backing-storage size. This covers the
// object itself, not the allocation it manages.
func (d *device) MemorySize(info driver.MemoryCreateInfo) (uint64, driver.Result) {
	if info.Size == 0 {
		return 0, driver.ErrorInvalidValue
	}
	return memoryStorageSize, driver.Success
}

// CreateMemory constructs a memory object and assigns its virtual address.
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
	defer d.mu.Unlock()

	va := d.nextVA
	span := (info.Size + vaAlignment - 1) &^ uint64(vaAlignment-1)
	if va+span > vaLimit {
		return nil, driver.ErrorOutOfMemory
	}
	d.nextVA = va + span

	m := &memory{
		device: d,
		data:   make([]byte, info.Size),
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

// memoryAt resolves the allocation containing [va, va+size). Returns the
// allocation and the offset of va within it.
func (d *device) memoryAt(va, size uint64) (*memory, uint64, driver.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for base, m := range d.memories {
		end := base + uint64(len(m.data))
		if va >= base && va+size <= end {
			return m, va - base, driver.Success
		}
	}
	return nil, 0, driver.ErrorInvalidValue
}

// memoryByLow32 resolves an allocation from the low 32 bits of its virtual
// address, the form a user-data register carries.
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
