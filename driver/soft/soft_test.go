// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gogpu/dispatch/driver"
)

// newTestDevice walks the platform bring-up and returns a finalized device.
func newTestDevice(t *testing.T) driver.Device {
	t.Helper()

	p := NewProvider()
	size, res := p.PlatformSize(driver.PlatformCreateInfo{SettingsPath: "/etc/amd"})
	if res.IsError() {
		t.Fatalf("PlatformSize() = %v", res)
	}
	plat, res := p.CreatePlatform(driver.PlatformCreateInfo{SettingsPath: "/etc/amd"}, make([]byte, size))
	if res.IsError() {
		t.Fatalf("CreatePlatform() = %v", res)
	}
	t.Cleanup(plat.Destroy)

	devs, res := plat.EnumerateDevices()
	if res.IsError() || len(devs) == 0 {
		t.Fatalf("EnumerateDevices() = %d devices, %v", len(devs), res)
	}
	dev := devs[0]

	if res := dev.CommitSettingsAndInit(); res.IsError() {
		t.Fatalf("CommitSettingsAndInit() = %v", res)
	}
	var fin driver.FinalizeInfo
	fin.RequestedEngineCounts[driver.EngineTypeCompute] = 1
	if res := dev.Finalize(fin); res.IsError() {
		t.Fatalf("Finalize() = %v", res)
	}
	return dev
}

// createMemory allocates device memory through the two-phase protocol.
func createMemory(t *testing.T, dev driver.Device, size uint64) driver.GpuMemory {
	t.Helper()
	info := driver.MemoryCreateInfo{Size: size, Heap: driver.GpuHeapGartUswc}
	objSize, res := dev.MemorySize(info)
	if res.IsError() {
		t.Fatalf("MemorySize() = %v", res)
	}
	mem, res := dev.CreateMemory(info, make([]byte, objSize))
	if res.IsError() {
		t.Fatalf("CreateMemory() = %v", res)
	}
	t.Cleanup(mem.Destroy)
	return mem
}

func TestSoft_EndToEndDoubleF32(t *testing.T) {
	dev := newTestDevice(t)

	queueInfo := driver.QueueCreateInfo{
		QueueType:  driver.QueueTypeCompute,
		EngineType: driver.EngineTypeCompute,
	}
	qSize, res := dev.QueueSize(queueInfo)
	if res.IsError() {
		t.Fatalf("QueueSize() = %v", res)
	}
	q, res := dev.CreateQueue(queueInfo, make([]byte, qSize))
	if res.IsError() {
		t.Fatalf("CreateQueue() = %v", res)
	}
	defer q.Destroy()

	allocInfo := driver.CmdAllocatorCreateInfo{}
	allocInfo.AllocInfo[driver.CommandDataAlloc] = driver.AllocPoolInfo{
		AllocHeap: driver.GpuHeapGartUswc, AllocSize: 2097152, SuballocSize: 65536,
	}
	allocInfo.AllocInfo[driver.EmbeddedDataAlloc] = driver.AllocPoolInfo{
		AllocHeap: driver.GpuHeapGartUswc, AllocSize: 131072, SuballocSize: 16384,
	}
	allocInfo.AllocInfo[driver.GpuScratchMemAlloc] = driver.AllocPoolInfo{
		AllocHeap: driver.GpuHeapInvisible, AllocSize: 131072, SuballocSize: 16384,
	}
	aSize, res := dev.CmdAllocatorSize(allocInfo)
	if res.IsError() {
		t.Fatalf("CmdAllocatorSize() = %v", res)
	}
	alloc, res := dev.CreateCmdAllocator(allocInfo, make([]byte, aSize))
	if res.IsError() {
		t.Fatalf("CreateCmdAllocator() = %v", res)
	}
	defer alloc.Destroy()

	cbInfo := driver.CmdBufferCreateInfo{
		CmdAllocator: alloc,
		QueueType:    driver.QueueTypeCompute,
		EngineType:   driver.EngineTypeCompute,
	}
	cbSize, res := dev.CmdBufferSize(cbInfo)
	if res.IsError() {
		t.Fatalf("CmdBufferSize() = %v", res)
	}
	cb, res := dev.CreateCmdBuffer(cbInfo, make([]byte, cbSize))
	if res.IsError() {
		t.Fatalf("CreateCmdBuffer() = %v", res)
	}
	defer cb.Destroy()

	pipeInfo := driver.ComputePipelineCreateInfo{PipelineBinary: KernelBlob(KernelDoubleF32)}
	pSize, res := dev.ComputePipelineSize(pipeInfo)
	if res.IsError() {
		t.Fatalf("ComputePipelineSize() = %v", res)
	}
	pipe, res := dev.CreateComputePipeline(pipeInfo, make([]byte, pSize))
	if res.IsError() {
		t.Fatalf("CreateComputePipeline() = %v", res)
	}
	defer pipe.Destroy()

	const itemCount = 16
	const bufSize = itemCount * 4
	input := createMemory(t, dev, bufSize)
	output := createMemory(t, dev, bufSize)

	// Write input[i] = i.
	data, res := input.Map()
	if res.IsError() {
		t.Fatalf("input.Map() = %v", res)
	}
	for i := 0; i < itemCount; i++ {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(float32(i)))
	}
	if res := input.Unmap(); res.IsError() {
		t.Fatalf("input.Unmap() = %v", res)
	}

	// Descriptor table: slot 0 feeds the kernel's output view, slot 1 the
	// input view.
	table := createMemory(t, dev, 2*driver.BufferViewRecordSize)
	tdata, res := table.Map()
	if res.IsError() {
		t.Fatalf("table.Map() = %v", res)
	}
	res = dev.WriteBufferViewDescriptors(tdata, []driver.BufferViewInfo{
		{GpuAddr: output.GpuVirtAddr(), Range: bufSize, Format: driver.FormatUntyped},
		{GpuAddr: input.GpuVirtAddr(), Range: bufSize, Format: driver.FormatUntyped},
	})
	if res.IsError() {
		t.Fatalf("WriteBufferViewDescriptors() = %v", res)
	}
	if res := table.Unmap(); res.IsError() {
		t.Fatalf("table.Unmap() = %v", res)
	}

	// Record, submit, wait.
	if res := cb.Begin(); res.IsError() {
		t.Fatalf("Begin() = %v", res)
	}
	if res := cb.BindPipeline(pipe); res.IsError() {
		t.Fatalf("BindPipeline() = %v", res)
	}
	if res := cb.SetUserData(0, []uint32{uint32(table.GpuVirtAddr())}); res.IsError() {
		t.Fatalf("SetUserData() = %v", res)
	}
	if res := cb.Dispatch(itemCount/8, 1, 1); res.IsError() {
		t.Fatalf("Dispatch() = %v", res)
	}
	if res := cb.End(); res.IsError() {
		t.Fatalf("End() = %v", res)
	}
	if res := q.Submit(driver.SubmitInfo{CmdBuffers: []driver.CmdBuffer{cb}}); res.IsError() {
		t.Fatalf("Submit() = %v", res)
	}
	if res := q.WaitIdle(); res.IsError() {
		t.Fatalf("WaitIdle() = %v", res)
	}

	// Read back and verify out[i] = i * 2.
	odata, res := output.Map()
	if res.IsError() {
		t.Fatalf("output.Map() = %v", res)
	}
	defer output.Unmap()
	for i := 0; i < itemCount; i++ {
		got := math.Float32frombits(binary.LittleEndian.Uint32(odata[i*4:]))
		want := float32(i) * 2
		if got != want {
			t.Errorf("output[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestSoft_FinalizeOrdering(t *testing.T) {
	p := NewProvider()
	size, _ := p.PlatformSize(driver.PlatformCreateInfo{})
	plat, res := p.CreatePlatform(driver.PlatformCreateInfo{}, make([]byte, size))
	if res.IsError() {
		t.Fatalf("CreatePlatform() = %v", res)
	}
	defer plat.Destroy()
	devs, _ := plat.EnumerateDevices()
	dev := devs[0]

	// Finalize before CommitSettingsAndInit must fail.
	if res := dev.Finalize(driver.FinalizeInfo{}); !res.IsError() {
		t.Error("Finalize() before CommitSettingsAndInit succeeded")
	}

	// Resource creation before finalize must fail.
	info := driver.QueueCreateInfo{QueueType: driver.QueueTypeCompute, EngineType: driver.EngineTypeCompute}
	if _, res := dev.CreateQueue(info, make([]byte, queueStorageSize)); !res.IsError() {
		t.Error("CreateQueue() before Finalize succeeded")
	}

	if res := dev.CommitSettingsAndInit(); res.IsError() {
		t.Fatalf("CommitSettingsAndInit() = %v", res)
	}
	if res := dev.Finalize(driver.FinalizeInfo{}); res.IsError() {
		t.Fatalf("Finalize() = %v", res)
	}

	// Second finalize must fail.
	if res := dev.Finalize(driver.FinalizeInfo{}); !res.IsError() {
		t.Error("second Finalize() succeeded")
	}
}

func TestSoft_QueueValidation(t *testing.T) {
	dev := newTestDevice(t)

	tests := []struct {
		name string
		info driver.QueueCreateInfo
		want driver.Result
	}{
		{
			name: "engine index out of range",
			info: driver.QueueCreateInfo{
				QueueType: driver.QueueTypeCompute, EngineType: driver.EngineTypeCompute, EngineIndex: 99,
			},
			want: driver.ErrorInvalidValue,
		},
		{
			name: "queue type unsupported by engine",
			info: driver.QueueCreateInfo{
				QueueType: driver.QueueTypeUniversal, EngineType: driver.EngineTypeDma,
			},
			want: driver.ErrorUnsupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, res := dev.QueueSize(tt.info); res != tt.want {
				t.Errorf("QueueSize() = %v, want %v", res, tt.want)
			}
		})
	}
}

func TestSoft_MapUnmapPairing(t *testing.T) {
	dev := newTestDevice(t)
	mem := createMemory(t, dev, 64)

	if _, res := mem.Map(); res.IsError() {
		t.Fatalf("Map() = %v", res)
	}
	if _, res := mem.Map(); res != driver.ErrorMapFailed {
		t.Errorf("second Map() = %v, want ErrorMapFailed", res)
	}
	if res := mem.Unmap(); res.IsError() {
		t.Fatalf("Unmap() = %v", res)
	}
	if res := mem.Unmap(); res != driver.ErrorMapFailed {
		t.Errorf("second Unmap() = %v, want ErrorMapFailed", res)
	}
}

func TestSoft_PipelineBlobRejected(t *testing.T) {
	dev := newTestDevice(t)

	tests := []struct {
		name string
		blob []byte
	}{
		{"empty blob", nil},
		{"bad magic", []byte("ELF\x7fwhatever")},
		{"unknown kernel", KernelBlob("no_such_kernel")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := driver.ComputePipelineCreateInfo{PipelineBinary: tt.blob}
			if _, res := dev.ComputePipelineSize(info); res != driver.ErrorInvalidPipelineBinary {
				t.Errorf("ComputePipelineSize() = %v, want ErrorInvalidPipelineBinary", res)
			}
		})
	}
}

func TestSoft_RecordingStateMachine(t *testing.T) {
	dev := newTestDevice(t)

	allocInfo := driver.CmdAllocatorCreateInfo{}
	for i := range allocInfo.AllocInfo {
		allocInfo.AllocInfo[i] = driver.AllocPoolInfo{
			AllocHeap: driver.GpuHeapGartUswc, AllocSize: 65536, SuballocSize: 16384,
		}
	}
	alloc, res := dev.CreateCmdAllocator(allocInfo, make([]byte, cmdAllocatorStorageSize))
	if res.IsError() {
		t.Fatalf("CreateCmdAllocator() = %v", res)
	}
	defer alloc.Destroy()

	cbInfo := driver.CmdBufferCreateInfo{CmdAllocator: alloc, QueueType: driver.QueueTypeCompute, EngineType: driver.EngineTypeCompute}
	cb, res := dev.CreateCmdBuffer(cbInfo, make([]byte, cmdBufferStorageSize))
	if res.IsError() {
		t.Fatalf("CreateCmdBuffer() = %v", res)
	}
	defer cb.Destroy()

	// Recording before Begin must fail.
	if res := cb.Dispatch(1, 1, 1); !res.IsError() {
		t.Error("Dispatch() before Begin succeeded")
	}

	if res := cb.Begin(); res.IsError() {
		t.Fatalf("Begin() = %v", res)
	}
	if res := cb.End(); res.IsError() {
		t.Fatalf("End() = %v", res)
	}

	// Recording after End must fail.
	if res := cb.Dispatch(1, 1, 1); !res.IsError() {
		t.Error("Dispatch() after End succeeded")
	}

	// Begin again resets and re-records.
	if res := cb.Begin(); res.IsError() {
		t.Fatalf("second Begin() = %v", res)
	}

	// Reset mid-recording must fail.
	if res := cb.Reset(); !res.IsError() {
		t.Error("Reset() while recording succeeded")
	}
	if res := cb.End(); res.IsError() {
		t.Fatalf("second End() = %v", res)
	}

	// Reset after End returns the buffer to its initial state.
	if res := cb.Reset(); res.IsError() {
		t.Fatalf("Reset() = %v", res)
	}
	if res := cb.Dispatch(1, 1, 1); !res.IsError() {
		t.Error("Dispatch() after Reset succeeded")
	}
}
