// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dispatch/driver"
)

// cmdAllocator backs command buffer recording. Commands are recorded on
// the Go heap and replayed through a HAL encoder at submit; the
// allocator only tracks the dependency that command buffers must not
// outlive it.
type cmdAllocator struct {
	device    *device
	info      driver.CmdAllocatorCreateInfo
	destroyed bool
}

// Destroy tears down the allocator.
func (a *cmdAllocator) Destroy() { a.destroyed = true }

// cmdBufferState tracks the recording state machine.
type cmdBufferState int

const (
	cmdBufferStateInitial cmdBufferState = iota
	cmdBufferStateRecording
	cmdBufferStateExecutable
)

// String returns the state name.
func (s cmdBufferState) String() string {
	switch s {
	case cmdBufferStateInitial:
		return "Initial"
	case cmdBufferStateRecording:
		return "Recording"
	case cmdBufferStateExecutable:
		return "Executable"
	default:
		return fmt.Sprintf("cmdBufferState(%d)", int(s))
	}
}

// cmdOp is the opcode of one recorded command.
type cmdOp int

const (
	opBindPipeline cmdOp = iota
	opSetUserData
	opDispatch
)

// command is one recorded command.
type command struct {
	op cmdOp

	pipeline *pipeline

	userDataFirst uint32
	userData      []uint32

	groupsX, groupsY, groupsZ uint32
}

// cmdBuffer records a command stream for replay through a HAL encoder at
// submit.
type cmdBuffer struct {
	device    *device
	allocator *cmdAllocator
	state     cmdBufferState
	commands  []command
	destroyed bool
}

// Destroy tears down the command buffer.
func (c *cmdBuffer) Destroy() {
	c.commands = nil
	c.destroyed = true
}

// Begin opens the buffer for recording, discarding prior contents.
func (c *cmdBuffer) Begin() driver.Result {
	if c.destroyed || c.allocator.destroyed || c.state == cmdBufferStateRecording {
		return driver.ErrorInvalidValue
	}
	c.commands = c.commands[:0]
	c.state = cmdBufferStateRecording
	return driver.Success
}

func (c *cmdBuffer) recording() driver.Result {
	if c.destroyed || c.state != cmdBufferStateRecording {
		return driver.ErrorInvalidValue
	}
	return driver.Success
}

// BindPipeline records a compute pipeline bind.
func (c *cmdBuffer) BindPipeline(p driver.Pipeline) driver.Result {
	if res := c.recording(); res.IsError() {
		return res
	}
	wp, ok := p.(*pipeline)
	if !ok || wp.device != c.device {
		return driver.ErrorInvalidValue
	}
	c.commands = append(c.commands, command{op: opBindPipeline, pipeline: wp})
	return driver.Success
}

// SetUserData records user-data register writes.
func (c *cmdBuffer) SetUserData(firstEntry uint32, data []uint32) driver.Result {
	if res := c.recording(); res.IsError() {
		return res
	}
	if firstEntry+uint32(len(data)) > c.device.props.MaxUserDataEntries {
		return driver.ErrorInvalidValue
	}
	cp := make([]uint32, len(data))
	copy(cp, data)
	c.commands = append(c.commands, command{op: opSetUserData, userDataFirst: firstEntry, userData: cp})
	return driver.Success
}

// Dispatch records one compute dispatch.
func (c *cmdBuffer) Dispatch(x, y, z uint32) driver.Result {
	if res := c.recording(); res.IsError() {
		return res
	}
	if x == 0 || y == 0 || z == 0 {
		return driver.ErrorInvalidValue
	}
	c.commands = append(c.commands, command{op: opDispatch, groupsX: x, groupsY: y, groupsZ: z})
	return driver.Success
}

// End closes the buffer for recording.
func (c *cmdBuffer) End() driver.Result {
	if res := c.recording(); res.IsError() {
		return res
	}
	c.state = cmdBufferStateExecutable
	return driver.Success
}

// Reset discards recorded contents and returns the buffer to its initial
// state. Illegal while recording.
func (c *cmdBuffer) Reset() driver.Result {
	if c.destroyed || c.state == cmdBufferStateRecording {
		return driver.ErrorInvalidValue
	}
	c.commands = c.commands[:0]
	c.state = cmdBufferStateInitial
	return driver.Success
}

// queue replays recorded command streams through the HAL queue. The HAL
// tracks completion behind its submission indices; Submit drains the
// device before returning so command and descriptor memory are safe to
// touch again.
type queue struct {
	device    *device
	info      driver.QueueCreateInfo
	destroyed bool
}

// Destroy tears down the queue.
func (q *queue) Destroy() { q.destroyed = true }

// Submit replays one sub-queue submission.
func (q *queue) Submit(info driver.SubmitInfo) driver.Result {
	if q.destroyed {
		return driver.ErrorInvalidValue
	}
	for _, cb := range info.CmdBuffers {
		wc, ok := cb.(*cmdBuffer)
		if !ok || wc.device != q.device {
			return driver.ErrorInvalidValue
		}
		if wc.state != cmdBufferStateExecutable {
			return driver.ErrorInvalidValue
		}
		if res := q.execute(wc); res.IsError() {
			return res
		}
	}
	return driver.Success
}

// WaitIdle blocks until all submitted work has completed on the device.
func (q *queue) WaitIdle() driver.Result {
	if q.destroyed {
		return driver.ErrorInvalidValue
	}
	d := q.device
	d.mu.Lock()
	halDev := d.halDev
	d.mu.Unlock()
	if halDev == nil {
		return driver.ErrorDeviceLost
	}
	if err := halDev.WaitIdle(); err != nil {
		driver.Logger().Error("wgpu: wait idle", "error", err)
		return driver.ErrorDeviceLost
	}
	return driver.Success
}

// execute interprets a recorded command stream and replays the dispatches
// through one HAL encoder and a fenced submit.
func (q *queue) execute(cb *cmdBuffer) driver.Result {
	var (
		bound    *pipeline
		userData [16]uint32
	)

	for _, cmd := range cb.commands {
		switch cmd.op {
		case opBindPipeline:
			bound = cmd.pipeline

		case opSetUserData:
			copy(userData[cmd.userDataFirst:], cmd.userData)

		case opDispatch:
			if bound == nil {
				return driver.ErrorInvalidValue
			}
			res := q.dispatch(bound, userData, cmd.groupsX, cmd.groupsY, cmd.groupsZ)
			if res.IsError() {
				return res
			}

		default:
			return driver.ErrorUnknown
		}
	}
	return driver.Success
}

// dispatch resolves the descriptor table from user-data register 0,
// synthesizes the bind group the kernel layout expects (binding n reads
// slot n) and runs one compute pass to completion.
func (q *queue) dispatch(p *pipeline, userData [16]uint32, x, y, z uint32) driver.Result {
	d := q.device

	tableMem, res := d.memoryByLow32(userData[0])
	if res.IsError() {
		return res
	}
	const recordSize = driver.BufferViewRecordSize
	if len(tableMem.shadow) < PipelineSlots*recordSize {
		return driver.ErrorInvalidValue
	}

	entries := make([]gputypes.BindGroupEntry, PipelineSlots)
	for i := range entries {
		view, res := driver.DecodeBufferView(tableMem.shadow[i*recordSize:])
		if res.IsError() {
			return res
		}
		mem, res := d.memoryAt(view.GpuAddr, view.Range)
		if res.IsError() {
			return res
		}
		entries[i] = gputypes.BindGroupEntry{
			Binding: uint32(i),
			Resource: gputypes.BufferBinding{
				Buffer: mem.buffer.NativeHandle(),
				Offset: view.GpuAddr - mem.va,
				Size:   view.Range,
			},
		}
	}

	d.mu.Lock()
	halDev, halQueue := d.halDev, d.halQueue
	d.mu.Unlock()
	if halDev == nil {
		return driver.ErrorDeviceLost
	}

	bg, err := halDev.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "dispatch_bg",
		Layout:  p.bgLayout,
		Entries: entries,
	})
	if err != nil {
		driver.Logger().Error("wgpu: create bind group", "error", err)
		return driver.ErrorUnknown
	}
	defer halDev.DestroyBindGroup(bg)

	encoder, err := halDev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "dispatch_encoder"})
	if err != nil {
		return driver.ErrorUnknown
	}
	if err := encoder.BeginEncoding("dispatch"); err != nil {
		return driver.ErrorUnknown
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "dispatch_pass"})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(x, y, z)
	pass.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return driver.ErrorUnknown
	}
	defer halDev.FreeCommandBuffer(cmdBuf)

	if _, err := halQueue.Submit([]hal.CommandBuffer{cmdBuf}); err != nil {
		driver.Logger().Error("wgpu: submit dispatch", "error", err)
		return driver.ErrorDeviceLost
	}
	if err := halDev.WaitIdle(); err != nil {
		driver.Logger().Error("wgpu: wait dispatch", "error", err)
		return driver.ErrorDeviceLost
	}

	driver.Logger().Debug("wgpu: dispatch", "groups", [3]uint32{x, y, z})
	return driver.Success
}
