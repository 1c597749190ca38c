// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"fmt"

	"github.com/gogpu/dispatch/driver"
)

// cmdAllocator backs command buffer recording. The soft driver records
// commands on the Go heap; the allocator only tracks the dependency that
// command buffers must not outlive it.
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
	// cmdBufferStateInitial means the buffer has never begun recording.
	cmdBufferStateInitial cmdBufferState = iota
	// cmdBufferStateRecording means Begin has been called.
	cmdBufferStateRecording
	// cmdBufferStateExecutable means End has been called.
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

// cmdBuffer records a command stream for later execution at submit.
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

// recording returns a failure code unless the buffer is open for recording.
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
	sp, ok := p.(*pipeline)
	if !ok || sp.device != c.device {
		return driver.ErrorInvalidValue
	}
	c.commands = append(c.commands, command{op: opBindPipeline, pipeline: sp})
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

// queue executes command buffers. Execution happens synchronously inside
// Submit; WaitIdle has nothing left to wait on.
type queue struct {
	device    *device
	info      driver.QueueCreateInfo
	destroyed bool
}

// Destroy tears down the queue.
func (q *queue) Destroy() { q.destroyed = true }

// Submit executes one sub-queue submission.
func (q *queue) Submit(info driver.SubmitInfo) driver.Result {
	if q.destroyed {
		return driver.ErrorInvalidValue
	}
	for _, cb := range info.CmdBuffers {
		sc, ok := cb.(*cmdBuffer)
		if !ok || sc.device != q.device {
			return driver.ErrorInvalidValue
		}
		if sc.state != cmdBufferStateExecutable {
			return driver.ErrorInvalidValue
		}
		if res := q.execute(sc); res.IsError() {
			return res
		}
	}
	return driver.Success
}

// WaitIdle blocks until submitted work completes. Soft execution is
// synchronous, so the queue is already idle.
func (q *queue) WaitIdle() driver.Result {
	if q.destroyed {
		return driver.ErrorInvalidValue
	}
	return driver.Success
}

// execute interprets a recorded command stream.
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
			res := q.dispatch(bound, userData, cmd.groupsX*cmd.groupsY*cmd.groupsZ)
			if res.IsError() {
				return res
			}

		default:
			return driver.ErrorUnknown
		}
	}
	return driver.Success
}

// dispatch resolves the descriptor table from user-data register 0 and
// runs the bound kernel over groups*localSize invocations.
func (q *queue) dispatch(p *pipeline, userData [16]uint32, groups uint32) driver.Result {
	tableMem, res := q.device.memoryByLow32(userData[0])
	if res.IsError() {
		return res
	}

	const recordSize = driver.BufferViewRecordSize
	if len(tableMem.data) < p.kernel.slots*recordSize {
		return driver.ErrorInvalidValue
	}

	views := make([]kernelView, p.kernel.slots)
	for i := range views {
		view, res := driver.DecodeBufferView(tableMem.data[i*recordSize:])
		if res.IsError() {
			return res
		}
		mem, off, res := q.device.memoryAt(view.GpuAddr, view.Range)
		if res.IsError() {
			return res
		}
		views[i] = kernelView{data: mem.data[off : off+view.Range]}
	}

	invocations := groups * p.kernel.localSize
	driver.Logger().Debug("soft: dispatch",
		"kernel", p.kernel.name,
		"groups", groups,
		"invocations", invocations)
	return p.kernel.run(views, invocations)
}
