// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dispatch

import "github.com/gogpu/dispatch/driver"

// Defaults for the reference dispatch scenario.
const (
	// DefaultSettingsPath is where the driver reads vendor settings
	// overrides from.
	DefaultSettingsPath = "/etc/amd"

	// DefaultItemCount is the reference scenario's element count.
	DefaultItemCount = 16

	// DefaultLocalGroupSize is the kernel's invocations per workgroup
	// along X. Fixed by the compiled kernel, not by this package.
	DefaultLocalGroupSize = 8
)

// PoolConfig sizes one command allocator pool.
type PoolConfig struct {
	Heap         driver.GpuHeap
	AllocSize    uint64
	SuballocSize uint64
}

// Config parameterizes an Orchestrator run. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	// DriverName selects a registered driver. Empty selects the best
	// available driver by registry priority.
	DriverName string

	// SettingsPath is passed to the driver at platform creation.
	SettingsPath string

	// CommandDataPool, EmbeddedDataPool and GpuScratchPool size the three
	// command allocator pools. Command and embedded pools must live in a
	// host-visible heap since the host builds command streams there;
	// scratch is device-only working memory the host never touches.
	CommandDataPool  PoolConfig
	EmbeddedDataPool PoolConfig
	GpuScratchPool   PoolConfig

	// RequestedComputeEngines is the engine count requested at device
	// finalization.
	RequestedComputeEngines uint32

	// PipelineBinary is the externally produced kernel blob. Its content
	// and binding layout are a contract between the kernel compiler and
	// the selected driver.
	PipelineBinary []byte

	// ItemCount is the number of 4-byte float elements in the reference
	// scenario. Must be a multiple of LocalGroupSize or trailing items
	// are silently dropped from execution.
	ItemCount uint32

	// LocalGroupSize is the kernel's workgroup size along X.
	LocalGroupSize uint32
}

// DefaultConfig returns the reference configuration: the allocator pool
// table used by production command allocators, one compute engine, and the
// 16-element doubling scenario.
func DefaultConfig() Config {
	return Config{
		SettingsPath: DefaultSettingsPath,
		CommandDataPool: PoolConfig{
			Heap:         driver.GpuHeapGartUswc,
			AllocSize:    2097152,
			SuballocSize: 65536,
		},
		EmbeddedDataPool: PoolConfig{
			Heap:         driver.GpuHeapGartUswc,
			AllocSize:    131072,
			SuballocSize: 16384,
		},
		GpuScratchPool: PoolConfig{
			Heap:         driver.GpuHeapInvisible,
			AllocSize:    131072,
			SuballocSize: 16384,
		},
		RequestedComputeEngines: 1,
		ItemCount:               DefaultItemCount,
		LocalGroupSize:          DefaultLocalGroupSize,
	}
}

// allocatorCreateInfo converts the pool configuration to the driver's
// create info.
func (c *Config) allocatorCreateInfo() driver.CmdAllocatorCreateInfo {
	var info driver.CmdAllocatorCreateInfo
	info.AllocInfo[driver.CommandDataAlloc] = driver.AllocPoolInfo{
		AllocHeap:    c.CommandDataPool.Heap,
		AllocSize:    c.CommandDataPool.AllocSize,
		SuballocSize: c.CommandDataPool.SuballocSize,
	}
	info.AllocInfo[driver.EmbeddedDataAlloc] = driver.AllocPoolInfo{
		AllocHeap:    c.EmbeddedDataPool.Heap,
		AllocSize:    c.EmbeddedDataPool.AllocSize,
		SuballocSize: c.EmbeddedDataPool.SuballocSize,
	}
	info.AllocInfo[driver.GpuScratchMemAlloc] = driver.AllocPoolInfo{
		AllocHeap:    c.GpuScratchPool.Heap,
		AllocSize:    c.GpuScratchPool.AllocSize,
		SuballocSize: c.GpuScratchPool.SuballocSize,
	}
	return info
}
