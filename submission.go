// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dispatch

import (
	"fmt"

	"github.com/gogpu/dispatch/driver"
)

// SubmissionContext owns the queue, command allocator and command buffer
// of one dispatch sequence. The command buffer depends on the allocator;
// Close releases the three in reverse creation order.
type SubmissionContext struct {
	queue     *driver.Handle[driver.Queue]
	allocator *driver.Handle[driver.CmdAllocator]
	cmdBuffer *driver.Handle[driver.CmdBuffer]
}

// NewSubmissionContext creates the queue, allocator and command buffer on
// a finalized device. On failure the already-constructed prefix is
// released before returning.
func NewSubmissionContext(device driver.Device, cfg *Config) (*SubmissionContext, error) {
	c := &SubmissionContext{}
	if err := c.createQueue(device); err != nil {
		return nil, err
	}
	if err := c.createAllocator(device, cfg); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.createCmdBuffer(device); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// createQueue creates the compute queue on engine index 0.
func (c *SubmissionContext) createQueue(device driver.Device) error {
	info := driver.QueueCreateInfo{
		QueueType:   driver.QueueTypeCompute,
		EngineType:  driver.EngineTypeCompute,
		EngineIndex: 0,
	}
	queue, err := driver.NewHandle(
		func() (uint64, driver.Result) { return device.QueueSize(info) },
		func(storage []byte) (driver.Queue, driver.Result) {
			return device.CreateQueue(info, storage)
		},
	)
	if err != nil {
		return fmt.Errorf("create queue: %w", err)
	}
	c.queue = queue
	slogger().Info("compute queue initialized")
	return nil
}

// createAllocator creates the command allocator with the configured pools.
func (c *SubmissionContext) createAllocator(device driver.Device, cfg *Config) error {
	info := cfg.allocatorCreateInfo()
	allocator, err := driver.NewHandle(
		func() (uint64, driver.Result) { return device.CmdAllocatorSize(info) },
		func(storage []byte) (driver.CmdAllocator, driver.Result) {
			return device.CreateCmdAllocator(info, storage)
		},
	)
	if err != nil {
		return fmt.Errorf("create command allocator: %w", err)
	}
	c.allocator = allocator
	slogger().Info("command allocator initialized")
	return nil
}

// createCmdBuffer creates the command buffer bound to the allocator.
func (c *SubmissionContext) createCmdBuffer(device driver.Device) error {
	info := driver.CmdBufferCreateInfo{
		CmdAllocator: c.allocator.Object(),
		QueueType:    driver.QueueTypeCompute,
		EngineType:   driver.EngineTypeCompute,
	}
	cmdBuffer, err := driver.NewHandle(
		func() (uint64, driver.Result) { return device.CmdBufferSize(info) },
		func(storage []byte) (driver.CmdBuffer, driver.Result) {
			return device.CreateCmdBuffer(info, storage)
		},
	)
	if err != nil {
		return fmt.Errorf("create command buffer: %w", err)
	}
	c.cmdBuffer = cmdBuffer
	slogger().Info("command buffer initialized")
	return nil
}

// CmdBuffer returns the command buffer for recording.
func (c *SubmissionContext) CmdBuffer() driver.CmdBuffer {
	return c.cmdBuffer.Object()
}

// Submit enqueues the command buffer in a single sub-queue submission.
func (c *SubmissionContext) Submit() error {
	info := driver.SubmitInfo{CmdBuffers: []driver.CmdBuffer{c.cmdBuffer.Object()}}
	return drvCall("submit", c.queue.Object().Submit(info))
}

// WaitIdle blocks until all work submitted to the queue has completed.
// This is the only synchronization primitive in the design; there is no
// per-submission fence tracking.
func (c *SubmissionContext) WaitIdle() error {
	return drvCall("wait idle", c.queue.Object().WaitIdle())
}

// Close releases the command buffer, allocator and queue, in that order.
// The command buffer must go before its allocator. Safe to call more than
// once and on a partially constructed context.
func (c *SubmissionContext) Close() {
	if c == nil {
		return
	}
	c.cmdBuffer.Destroy()
	c.allocator.Destroy()
	c.queue.Destroy()
}
