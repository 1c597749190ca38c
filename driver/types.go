// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import "fmt"

// EngineType identifies a class of hardware execution engine.
type EngineType int

const (
	// EngineTypeUniversal engines execute graphics and compute work.
	EngineTypeUniversal EngineType = iota
	// EngineTypeCompute engines execute compute work only.
	EngineTypeCompute
	// EngineTypeDma engines execute transfer work only.
	EngineTypeDma

	// EngineTypeCount is the number of engine types.
	EngineTypeCount
)

// String returns the name of the engine type.
func (t EngineType) String() string {
	switch t {
	case EngineTypeUniversal:
		return "Universal"
	case EngineTypeCompute:
		return "Compute"
	case EngineTypeDma:
		return "Dma"
	default:
		return fmt.Sprintf("EngineType(%d)", int(t))
	}
}

// QueueType identifies the kind of work a queue accepts.
type QueueType int

const (
	// QueueTypeUniversal accepts graphics and compute submissions.
	QueueTypeUniversal QueueType = iota
	// QueueTypeCompute accepts compute submissions.
	QueueTypeCompute
	// QueueTypeDma accepts transfer submissions.
	QueueTypeDma
)

// String returns the name of the queue type.
func (t QueueType) String() string {
	switch t {
	case QueueTypeUniversal:
		return "Universal"
	case QueueTypeCompute:
		return "Compute"
	case QueueTypeDma:
		return "Dma"
	default:
		return fmt.Sprintf("QueueType(%d)", int(t))
	}
}

// QueueSupportFlags is a bitmask of queue types an engine supports.
type QueueSupportFlags uint32

const (
	// SupportQueueTypeUniversal marks support for universal queues.
	SupportQueueTypeUniversal QueueSupportFlags = 1 << iota
	// SupportQueueTypeCompute marks support for compute queues.
	SupportQueueTypeCompute
	// SupportQueueTypeDma marks support for DMA queues.
	SupportQueueTypeDma
)

// Supports reports whether the flag set includes support for t.
func (f QueueSupportFlags) Supports(t QueueType) bool {
	switch t {
	case QueueTypeUniversal:
		return f&SupportQueueTypeUniversal != 0
	case QueueTypeCompute:
		return f&SupportQueueTypeCompute != 0
	case QueueTypeDma:
		return f&SupportQueueTypeDma != 0
	default:
		return false
	}
}

// GpuHeap identifies a memory heap class.
type GpuHeap int

const (
	// GpuHeapLocal is device-local memory visible to the host.
	GpuHeapLocal GpuHeap = iota
	// GpuHeapInvisible is device-local memory invisible to the host.
	GpuHeapInvisible
	// GpuHeapGartUswc is host memory, write-combined, GPU-readable.
	GpuHeapGartUswc
	// GpuHeapGartCacheable is host memory, cacheable, GPU-readable.
	GpuHeapGartCacheable
)

// String returns the name of the heap.
func (h GpuHeap) String() string {
	switch h {
	case GpuHeapLocal:
		return "Local"
	case GpuHeapInvisible:
		return "Invisible"
	case GpuHeapGartUswc:
		return "GartUswc"
	case GpuHeapGartCacheable:
		return "GartCacheable"
	default:
		return fmt.Sprintf("GpuHeap(%d)", int(h))
	}
}

// Command allocator pool indices. Every allocator carries exactly these
// three pools.
const (
	// CommandDataAlloc is the pool backing recorded command streams.
	CommandDataAlloc = iota
	// EmbeddedDataAlloc is the pool backing small inline data.
	EmbeddedDataAlloc
	// GpuScratchMemAlloc is the pool backing device-only scratch memory.
	GpuScratchMemAlloc

	// AllocPoolCount is the number of allocator pools.
	AllocPoolCount
)

// AllocPoolInfo sizes one command allocator pool.
type AllocPoolInfo struct {
	// AllocHeap is the heap backing the pool.
	AllocHeap GpuHeap
	// AllocSize is the total pool size in bytes.
	AllocSize uint64
	// SuballocSize is the suballocation granularity in bytes.
	SuballocSize uint64
}

// VaRange selects the virtual-address range a memory object is placed in.
type VaRange int

const (
	// VaRangeDefault places the allocation in the default range.
	VaRangeDefault VaRange = iota
)

// BufferViewFormat selects the element format of a buffer view.
type BufferViewFormat int

const (
	// FormatUntyped views the range as raw bytes with no element format.
	FormatUntyped BufferViewFormat = iota
)

// PlatformCreateInfo parameterizes platform construction.
type PlatformCreateInfo struct {
	// SettingsPath is the filesystem path the driver reads vendor
	// settings overrides from.
	SettingsPath string
}

// QueueCreateInfo parameterizes queue construction.
type QueueCreateInfo struct {
	QueueType   QueueType
	EngineType  EngineType
	EngineIndex uint32
}

// CmdAllocatorCreateInfo parameterizes command allocator construction.
type CmdAllocatorCreateInfo struct {
	AllocInfo [AllocPoolCount]AllocPoolInfo
}

// CmdBufferCreateInfo parameterizes command buffer construction. The
// allocator must outlive the command buffer.
type CmdBufferCreateInfo struct {
	CmdAllocator CmdAllocator
	QueueType    QueueType
	EngineType   EngineType
}

// ComputePipelineCreateInfo parameterizes compute pipeline construction.
// The binary's content and binding layout are an external contract between
// the kernel compiler and the driver; the core does not inspect it.
type ComputePipelineCreateInfo struct {
	PipelineBinary []byte
}

// MemoryCreateInfo parameterizes GPU memory construction.
type MemoryCreateInfo struct {
	Size    uint64
	Heap    GpuHeap
	VaRange VaRange
}

// FinalizeInfo parameterizes device finalization.
type FinalizeInfo struct {
	// RequestedEngineCounts is the number of engines to bring up per
	// engine type.
	RequestedEngineCounts [EngineTypeCount]uint32
}

// SubmitInfo describes a single sub-queue submission.
type SubmitInfo struct {
	CmdBuffers []CmdBuffer
}

// BufferViewInfo describes one buffer view written into a descriptor table.
type BufferViewInfo struct {
	// GpuAddr is the device virtual address of the viewed range.
	GpuAddr uint64
	// Range is the length of the viewed range in bytes.
	Range uint64
	// Stride is the element stride in bytes; zero means densely packed.
	Stride uint64
	// Format is the element format of the view.
	Format BufferViewFormat
}

// EngineProperties describes one engine type on a device.
type EngineProperties struct {
	// EngineCount is the number of engines of this type.
	EngineCount uint32
	// QueueSupport is the set of queue types these engines accept.
	QueueSupport QueueSupportFlags
}

// SrdSizes reports the sizes of hardware descriptor records.
type SrdSizes struct {
	// BufferView is the size in bytes of one buffer-view descriptor.
	BufferView uint32
}

// DevicePropertiesFlags holds boolean device capabilities.
type DevicePropertiesFlags struct {
	// SupportHsaAbi reports whether the device accepts HSA ABI pipelines.
	SupportHsaAbi bool
}

// DeviceProperties is the structured capability report of a device.
type DeviceProperties struct {
	GpuName            string
	EngineProperties   [EngineTypeCount]EngineProperties
	MaxUserDataEntries uint32
	Flags              DevicePropertiesFlags
	SrdSizes           SrdSizes
}

// String returns a one-line capability summary, matching the fields a
// device report logs during enumeration.
func (p DeviceProperties) String() string {
	return fmt.Sprintf(
		"%s (universal=%d compute=%d dma=%d userdata=%d hsa=%t srd.bufferView=%d)",
		p.GpuName,
		p.EngineProperties[EngineTypeUniversal].EngineCount,
		p.EngineProperties[EngineTypeCompute].EngineCount,
		p.EngineProperties[EngineTypeDma].EngineCount,
		p.MaxUserDataEntries,
		p.Flags.SupportHsaAbi,
		p.SrdSizes.BufferView,
	)
}
