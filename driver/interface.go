// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

// Object is implemented by every driver object. Destroy tears the object
// down inside the driver; it does not release the backing storage the
// object was constructed in (Handle owns that).
type Object interface {
	Destroy()
}

// Platform is the root driver object. It owns device enumeration; the
// devices it returns stay owned by the platform and are torn down with it.
type Platform interface {
	Object

	// EnumerateDevices returns the attached devices in a stable order.
	// An empty slice with Success means no devices are present.
	EnumerateDevices() ([]Device, Result)
}

// Device is one enumerated GPU. Queue, allocator, command buffer, pipeline
// and memory construction all follow the two-phase protocol: the *Size
// method reports the backing storage required for the given create info,
// and the Create* method constructs the object into caller-supplied
// storage of exactly that size.
//
// CommitSettingsAndInit and Finalize must both succeed, in that order,
// before any Create* call is legal.
type Device interface {
	// Properties returns the device capability report.
	Properties() (DeviceProperties, Result)

	// CommitSettingsAndInit commits settings overrides and performs late
	// device initialization.
	CommitSettingsAndInit() Result

	// Finalize commits the requested engine configuration. Must be called
	// exactly once per device.
	Finalize(info FinalizeInfo) Result

	QueueSize(info QueueCreateInfo) (uint64, Result)
	CreateQueue(info QueueCreateInfo, storage []byte) (Queue, Result)

	CmdAllocatorSize(info CmdAllocatorCreateInfo) (uint64, Result)
	CreateCmdAllocator(info CmdAllocatorCreateInfo, storage []byte) (CmdAllocator, Result)

	CmdBufferSize(info CmdBufferCreateInfo) (uint64, Result)
	CreateCmdBuffer(info CmdBufferCreateInfo, storage []byte) (CmdBuffer, Result)

	ComputePipelineSize(info ComputePipelineCreateInfo) (uint64, Result)
	CreateComputePipeline(info ComputePipelineCreateInfo, storage []byte) (Pipeline, Result)

	MemorySize(info MemoryCreateInfo) (uint64, Result)
	CreateMemory(info MemoryCreateInfo, storage []byte) (GpuMemory, Result)

	// WriteBufferViewDescriptors encodes one hardware buffer-view
	// descriptor per view into dst. dst must hold at least
	// len(views) * SrdSizes.BufferView bytes.
	WriteBufferViewDescriptors(dst []byte, views []BufferViewInfo) Result
}

// Queue accepts command buffer submissions for one engine.
type Queue interface {
	Object

	// Submit enqueues the command buffers of one sub-queue submission.
	Submit(info SubmitInfo) Result

	// WaitIdle blocks until all previously submitted work has finished
	// executing on the device.
	WaitIdle() Result
}

// CmdAllocator backs command buffer recording with its three fixed pools.
type CmdAllocator interface {
	Object
}

// CmdBuffer records a command stream. The recording state machine is
// Begin, zero or more recording calls, End; a buffer may only be submitted
// after End.
type CmdBuffer interface {
	Object

	// Begin opens the buffer for recording, discarding prior contents.
	Begin() Result

	// BindPipeline binds a pipeline at the compute bind point.
	BindPipeline(p Pipeline) Result

	// SetUserData writes values into the user-data registers starting at
	// firstEntry.
	SetUserData(firstEntry uint32, data []uint32) Result

	// Dispatch records one compute dispatch of x*y*z workgroups.
	Dispatch(x, y, z uint32) Result

	// End closes the buffer for recording.
	End() Result

	// Reset returns the buffer to its initial state, discarding recorded
	// contents. Illegal while recording.
	Reset() Result
}

// Pipeline is a constructed compute pipeline.
type Pipeline interface {
	Object
}

// GpuMemory is a device memory object with a fixed virtual address.
type GpuMemory interface {
	Object

	// Size returns the allocation size in bytes.
	Size() uint64

	// GpuVirtAddr returns the device virtual address. The address is
	// immutable for the lifetime of the object.
	GpuVirtAddr() uint64

	// Map returns host-visible contents of the allocation. Map fails if
	// the memory is already mapped.
	Map() ([]byte, Result)

	// Unmap invalidates the slice returned by Map and makes prior host
	// writes visible to the device.
	Unmap() Result
}
