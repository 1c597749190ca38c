// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dispatch

import (
	"fmt"

	"github.com/gogpu/dispatch/driver"
)

// State is the orchestrator's position in its single linear path.
type State int

const (
	// StateIdle means no run is in progress.
	StateIdle State = iota
	// StatePlatformReady means the platform exists and a device is selected.
	StatePlatformReady
	// StateDeviceReady means the device is finalized.
	StateDeviceReady
	// StateQueueReady means the compute queue exists.
	StateQueueReady
	// StateAllocatorReady means the command allocator exists.
	StateAllocatorReady
	// StateCmdBufferReady means the command buffer exists.
	StateCmdBufferReady
	// StatePipelineReady means the compute pipeline exists.
	StatePipelineReady
	// StateBuffersAllocated means input and output buffers exist.
	StateBuffersAllocated
	// StateDataWritten means input data is visible to the device.
	StateDataWritten
	// StateTableBuilt means the descriptor table is populated.
	StateTableBuilt
	// StateRecorded means the command stream is closed for recording.
	StateRecorded
	// StateSubmitted means the command buffer is on the queue.
	StateSubmitted
	// StateCompleted means the queue drained and results were read back.
	StateCompleted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePlatformReady:
		return "PlatformReady"
	case StateDeviceReady:
		return "DeviceReady"
	case StateQueueReady:
		return "QueueReady"
	case StateAllocatorReady:
		return "AllocatorReady"
	case StateCmdBufferReady:
		return "CmdBufferReady"
	case StatePipelineReady:
		return "PipelineReady"
	case StateBuffersAllocated:
		return "BuffersAllocated"
	case StateDataWritten:
		return "DataWritten"
	case StateTableBuilt:
		return "TableBuilt"
	case StateRecorded:
		return "Recorded"
	case StateSubmitted:
		return "Submitted"
	case StateCompleted:
		return "Completed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Orchestrator sequences one compute dispatch end to end: resource
// creation in strict dependency order, command recording, submission, a
// blocking queue-idle wait, and readback. Any step's failure halts the
// machine; resources already constructed release themselves in reverse
// order. The orchestrator is single-threaded and never overlaps
// submission with readback.
type Orchestrator struct {
	cfg      Config
	provider driver.Provider
	state    State
}

// NewOrchestrator resolves the configured driver and validates the
// configuration.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if len(cfg.PipelineBinary) == 0 {
		return nil, ErrNoPipelineBinary
	}
	if cfg.LocalGroupSize == 0 {
		cfg.LocalGroupSize = DefaultLocalGroupSize
	}

	var provider driver.Provider
	if cfg.DriverName != "" {
		provider = driver.Get(cfg.DriverName)
	} else {
		provider = driver.Default()
	}
	if provider == nil {
		return nil, fmt.Errorf("%w (requested %q, registered %v)",
			ErrNoDriver, cfg.DriverName, driver.Available())
	}

	return &Orchestrator{cfg: cfg, provider: provider, state: StateIdle}, nil
}

// State returns the state reached by the most recent Run.
func (o *Orchestrator) State() State { return o.state }

// Driver returns the resolved driver provider.
func (o *Orchestrator) Driver() driver.Provider { return o.provider }

// Run executes the full dispatch sequence over the input and returns the
// kernel's output, one float per input element. Input length should be a
// multiple of the configured local group size; trailing elements beyond
// the last full workgroup are not executed.
func (o *Orchestrator) Run(input []float32) ([]float32, error) {
	o.state = StateIdle

	session, err := NewDeviceSession(o.provider, o.cfg.SettingsPath)
	if err != nil {
		return nil, err
	}
	defer session.Close()
	o.state = StatePlatformReady

	// The capability gate precedes queue creation: a device with no
	// compute engine, or one whose compute engine rejects compute
	// queues, fails here and nothing past the platform is constructed.
	if err := checkComputeCapability(session.Properties()); err != nil {
		return nil, err
	}

	if err := session.Finalize(o.cfg.RequestedComputeEngines); err != nil {
		return nil, err
	}
	o.state = StateDeviceReady
	device := session.Device()

	ctx := &SubmissionContext{}
	defer ctx.Close()
	if err := ctx.createQueue(device); err != nil {
		return nil, err
	}
	o.state = StateQueueReady
	if err := ctx.createAllocator(device, &o.cfg); err != nil {
		return nil, err
	}
	o.state = StateAllocatorReady
	if err := ctx.createCmdBuffer(device); err != nil {
		return nil, err
	}
	o.state = StateCmdBufferReady

	pipeline, err := NewPipelineResource(device, o.cfg.PipelineBinary)
	if err != nil {
		return nil, err
	}
	defer pipeline.Close()
	o.state = StatePipelineReady

	bufSize := uint64(len(input)) * 4
	inputBuf, err := AllocateBuffer(device, bufSize, driver.GpuHeapGartUswc)
	if err != nil {
		return nil, err
	}
	defer inputBuf.Close()

	outputBuf, err := AllocateBuffer(device, bufSize, driver.GpuHeapGartUswc)
	if err != nil {
		return nil, err
	}
	defer outputBuf.Close()
	o.state = StateBuffersAllocated

	if err := inputBuf.WriteFloat32s(input); err != nil {
		return nil, err
	}
	o.state = StateDataWritten

	table, err := BuildDescriptorTable(device, inputBuf, outputBuf)
	if err != nil {
		return nil, err
	}
	defer table.Close()
	o.state = StateTableBuilt

	if err := o.record(ctx.CmdBuffer(), pipeline, table, uint32(len(input))); err != nil {
		return nil, err
	}
	o.state = StateRecorded

	if err := ctx.Submit(); err != nil {
		return nil, err
	}
	o.state = StateSubmitted

	if err := ctx.WaitIdle(); err != nil {
		return nil, err
	}

	output, err := outputBuf.ReadFloat32s(len(input))
	if err != nil {
		return nil, err
	}
	o.state = StateCompleted
	slogger().Info("dispatch completed", "items", len(input))
	return output, nil
}

// record writes the command stream: bind the pipeline, pass the table
// address through user-data register 0, dispatch itemCount/localGroupSize
// workgroups along X.
func (o *Orchestrator) record(cb driver.CmdBuffer, pipeline *PipelineResource, table *DescriptorTable, itemCount uint32) error {
	if err := drvCall("begin command buffer", cb.Begin()); err != nil {
		return err
	}
	if err := drvCall("bind pipeline", cb.BindPipeline(pipeline.Pipeline())); err != nil {
		return err
	}

	// The kernel ABI reserves user-data register 0 for the low 32 bits
	// of the descriptor table's virtual address.
	tableAddr := uint32(table.GpuVirtAddr())
	if err := drvCall("set user data", cb.SetUserData(0, []uint32{tableAddr})); err != nil {
		return err
	}

	// Items beyond the last full workgroup are dropped; an input shorter
	// than one workgroup leaves nothing to execute.
	groups := itemCount / o.cfg.LocalGroupSize
	if groups > 0 {
		if err := drvCall("dispatch", cb.Dispatch(groups, 1, 1)); err != nil {
			return err
		}
	}
	slogger().Debug("dispatch recorded", "workgroups", groups, "localGroupSize", o.cfg.LocalGroupSize)

	return drvCall("end command buffer", cb.End())
}
