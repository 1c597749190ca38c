// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dispatch

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/gogpu/dispatch/driver"
)

// =============================================================================
// Mock driver for orchestrator tests
// =============================================================================

// mockCounters tracks construction/teardown balance across every driver
// object the mock hands out.
type mockCounters struct {
	constructed atomic.Int32
	destroyed   atomic.Int32

	queuesCreated atomic.Int32
	lastDispatch  [3]uint32
	lastUserData  []uint32
}

// mockProvider is a fail-injecting driver.Provider. failAt names the step
// whose driver call reports a failure; everything before it succeeds.
type mockProvider struct {
	counters *mockCounters

	failAt         string
	deviceCount    int
	computeEngines uint32
	queueSupport   driver.QueueSupportFlags
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		counters:       &mockCounters{},
		deviceCount:    1,
		computeEngines: 1,
		queueSupport:   driver.SupportQueueTypeCompute,
	}
}

func (p *mockProvider) Name() string    { return "mock" }
func (p *mockProvider) Available() bool { return true }

func (p *mockProvider) PlatformSize(driver.PlatformCreateInfo) (uint64, driver.Result) {
	if p.failAt == "platformSize" {
		return 0, driver.ErrorInitializationFailed
	}
	return 64, driver.Success
}

func (p *mockProvider) CreatePlatform(info driver.PlatformCreateInfo, storage []byte) (driver.Platform, driver.Result) {
	if p.failAt == "createPlatform" {
		return nil, driver.ErrorInitializationFailed
	}
	p.counters.constructed.Add(1)
	return &mockPlatform{
		mockObject: mockObject{counters: p.counters},
		provider:   p,
	}, driver.Success
}

// mockObject counts its teardown.
type mockObject struct {
	counters  *mockCounters
	destroyed bool
}

func (o *mockObject) Destroy() {
	if o.destroyed {
		panic("mock object destroyed twice")
	}
	o.destroyed = true
	o.counters.destroyed.Add(1)
}

type mockPlatform struct {
	mockObject
	provider *mockProvider
}

func (m *mockPlatform) EnumerateDevices() ([]driver.Device, driver.Result) {
	if m.provider.failAt == "enumerate" {
		return nil, driver.ErrorDeviceLost
	}
	devs := make([]driver.Device, m.provider.deviceCount)
	for i := range devs {
		devs[i] = &mockDevice{provider: m.provider}
	}
	return devs, driver.Success
}

type mockDevice struct {
	provider *mockProvider
	memCount int
}

func (d *mockDevice) newObject(step string) (mockObject, driver.Result) {
	if d.provider.failAt == step {
		return mockObject{}, driver.ErrorOutOfMemory
	}
	d.provider.counters.constructed.Add(1)
	return mockObject{counters: d.provider.counters}, driver.Success
}

func (d *mockDevice) Properties() (driver.DeviceProperties, driver.Result) {
	if d.provider.failAt == "properties" {
		return driver.DeviceProperties{}, driver.ErrorUnknown
	}
	props := driver.DeviceProperties{
		GpuName:            "Mock GPU",
		MaxUserDataEntries: 16,
		SrdSizes:           driver.SrdSizes{BufferView: driver.BufferViewRecordSize},
	}
	props.EngineProperties[driver.EngineTypeCompute] = driver.EngineProperties{
		EngineCount:  d.provider.computeEngines,
		QueueSupport: d.provider.queueSupport,
	}
	return props, driver.Success
}

func (d *mockDevice) CommitSettingsAndInit() driver.Result {
	if d.provider.failAt == "commit" {
		return driver.ErrorInitializationFailed
	}
	return driver.Success
}

func (d *mockDevice) Finalize(driver.FinalizeInfo) driver.Result {
	if d.provider.failAt == "finalize" {
		return driver.ErrorInitializationFailed
	}
	return driver.Success
}

func (d *mockDevice) QueueSize(driver.QueueCreateInfo) (uint64, driver.Result) {
	if d.provider.failAt == "queueSize" {
		return 0, driver.ErrorUnsupported
	}
	return 64, driver.Success
}

func (d *mockDevice) CreateQueue(info driver.QueueCreateInfo, storage []byte) (driver.Queue, driver.Result) {
	obj, res := d.newObject("createQueue")
	if res.IsError() {
		return nil, res
	}
	d.provider.counters.queuesCreated.Add(1)
	return &mockQueue{mockObject: obj, provider: d.provider}, driver.Success
}

func (d *mockDevice) CmdAllocatorSize(driver.CmdAllocatorCreateInfo) (uint64, driver.Result) {
	return 64, driver.Success
}

func (d *mockDevice) CreateCmdAllocator(info driver.CmdAllocatorCreateInfo, storage []byte) (driver.CmdAllocator, driver.Result) {
	obj, res := d.newObject("createAllocator")
	if res.IsError() {
		return nil, res
	}
	return &mockAllocator{obj}, driver.Success
}

func (d *mockDevice) CmdBufferSize(driver.CmdBufferCreateInfo) (uint64, driver.Result) {
	return 64, driver.Success
}

func (d *mockDevice) CreateCmdBuffer(info driver.CmdBufferCreateInfo, storage []byte) (driver.CmdBuffer, driver.Result) {
	obj, res := d.newObject("createCmdBuffer")
	if res.IsError() {
		return nil, res
	}
	return &mockCmdBuffer{mockObject: obj, provider: d.provider}, driver.Success
}

func (d *mockDevice) ComputePipelineSize(driver.ComputePipelineCreateInfo) (uint64, driver.Result) {
	return 64, driver.Success
}

func (d *mockDevice) CreateComputePipeline(info driver.ComputePipelineCreateInfo, storage []byte) (driver.Pipeline, driver.Result) {
	obj, res := d.newObject("createPipeline")
	if res.IsError() {
		return nil, res
	}
	return &mockPipeline{obj}, driver.Success
}

func (d *mockDevice) MemorySize(driver.MemoryCreateInfo) (uint64, driver.Result) {
	return 64, driver.Success
}

func (d *mockDevice) CreateMemory(info driver.MemoryCreateInfo, storage []byte) (driver.GpuMemory, driver.Result) {
	d.memCount++
	step := "createMemory"
	switch d.memCount {
	case 2:
		step = "createMemory2"
	case 3:
		step = "createMemory3"
	}
	if d.provider.failAt == step {
		return nil, driver.ErrorOutOfMemory
	}
	d.provider.counters.constructed.Add(1)
	return &mockMemory{
		mockObject: mockObject{counters: d.provider.counters},
		provider:   d.provider,
		data:       make([]byte, info.Size),
		va:         uint64(0x2000_0000 + d.memCount*0x1000),
	}, driver.Success
}

func (d *mockDevice) WriteBufferViewDescriptors(dst []byte, views []driver.BufferViewInfo) driver.Result {
	if d.provider.failAt == "writeDescriptors" {
		return driver.ErrorInvalidValue
	}
	for i, v := range views {
		if res := driver.EncodeBufferView(dst[i*driver.BufferViewRecordSize:], v); res.IsError() {
			return res
		}
	}
	return driver.Success
}

type mockQueue struct {
	mockObject
	provider *mockProvider
}

func (q *mockQueue) Submit(driver.SubmitInfo) driver.Result {
	if q.provider.failAt == "submit" {
		return driver.ErrorDeviceLost
	}
	return driver.Success
}

func (q *mockQueue) WaitIdle() driver.Result {
	if q.provider.failAt == "wait" {
		return driver.ErrorDeviceLost
	}
	return driver.Success
}

type mockAllocator struct{ mockObject }
type mockPipeline struct{ mockObject }

type mockCmdBuffer struct {
	mockObject
	provider *mockProvider
}

func (c *mockCmdBuffer) Begin() driver.Result { return driver.Success }

func (c *mockCmdBuffer) BindPipeline(driver.Pipeline) driver.Result { return driver.Success }

func (c *mockCmdBuffer) SetUserData(first uint32, data []uint32) driver.Result {
	c.provider.counters.lastUserData = append([]uint32(nil), data...)
	return driver.Success
}

func (c *mockCmdBuffer) Dispatch(x, y, z uint32) driver.Result {
	c.provider.counters.lastDispatch = [3]uint32{x, y, z}
	return driver.Success
}

func (c *mockCmdBuffer) End() driver.Result { return driver.Success }

func (c *mockCmdBuffer) Reset() driver.Result { return driver.Success }

type mockMemory struct {
	mockObject
	provider *mockProvider
	data     []byte
	va       uint64
	mapped   bool
}

func (m *mockMemory) Size() uint64        { return uint64(len(m.data)) }
func (m *mockMemory) GpuVirtAddr() uint64 { return m.va }

func (m *mockMemory) Map() ([]byte, driver.Result) {
	if m.provider.failAt == "map" || m.mapped {
		return nil, driver.ErrorMapFailed
	}
	m.mapped = true
	return m.data, driver.Success
}

func (m *mockMemory) Unmap() driver.Result {
	if !m.mapped {
		return driver.ErrorMapFailed
	}
	m.mapped = false
	return driver.Success
}

// =============================================================================
// Orchestrator tests
// =============================================================================

// runMock builds an orchestrator over the given mock and runs the
// 16-element scenario.
func runMock(t *testing.T, p *mockProvider) ([]float32, error) {
	t.Helper()
	driver.Register(p)
	t.Cleanup(func() { driver.Unregister("mock") })

	cfg := DefaultConfig()
	cfg.DriverName = "mock"
	cfg.PipelineBinary = []byte("mock-kernel")

	orc, err := NewOrchestrator(cfg)
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	input := make([]float32, 16)
	for i := range input {
		input[i] = float32(i)
	}
	return orc.Run(input)
}

func TestOrchestrator_FailFastNoDevices(t *testing.T) {
	p := newMockProvider()
	p.deviceCount = 0

	_, err := runMock(t, p)
	if !errors.Is(err, ErrNoDevices) {
		t.Fatalf("Run() error = %v, want ErrNoDevices", err)
	}

	// Only the platform was ever constructed, and it was released.
	if got := p.counters.constructed.Load(); got != 1 {
		t.Errorf("constructed = %d, want 1 (platform only)", got)
	}
	if c, d := p.counters.constructed.Load(), p.counters.destroyed.Load(); c != d {
		t.Errorf("constructed = %d, destroyed = %d, want balance", c, d)
	}
}

func TestOrchestrator_CapabilityGating(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*mockProvider)
		wantErr error
	}{
		{
			name:    "no compute engines",
			mutate:  func(p *mockProvider) { p.computeEngines = 0 },
			wantErr: ErrNoComputeEngine,
		},
		{
			name:    "compute queue unsupported",
			mutate:  func(p *mockProvider) { p.queueSupport = driver.SupportQueueTypeDma },
			wantErr: ErrQueueTypeUnsupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newMockProvider()
			tt.mutate(p)

			_, err := runMock(t, p)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if got := p.counters.queuesCreated.Load(); got != 0 {
				t.Errorf("queues created = %d, want 0 (gate precedes queue creation)", got)
			}
			if c, d := p.counters.constructed.Load(), p.counters.destroyed.Load(); c != d {
				t.Errorf("constructed = %d, destroyed = %d, want balance", c, d)
			}
		})
	}
}

func TestOrchestrator_FailureUnwindBalance(t *testing.T) {
	// Inject a failure at every step of the chain; whatever was
	// constructed before the failure must be destroyed on the way out.
	steps := []string{
		"platformSize", "createPlatform", "enumerate", "properties",
		"commit", "finalize",
		"queueSize", "createQueue", "createAllocator", "createCmdBuffer",
		"createPipeline", "createMemory", "createMemory2", "createMemory3",
		"writeDescriptors", "map", "submit", "wait",
	}

	for _, step := range steps {
		t.Run(step, func(t *testing.T) {
			p := newMockProvider()
			p.failAt = step

			_, err := runMock(t, p)
			if err == nil {
				t.Fatalf("Run() succeeded with failure injected at %q", step)
			}
			if c, d := p.counters.constructed.Load(), p.counters.destroyed.Load(); c != d {
				t.Errorf("constructed = %d, destroyed = %d, want balance", c, d)
			}
		})
	}
}

func TestOrchestrator_WorkgroupComputation(t *testing.T) {
	p := newMockProvider()
	if _, err := runMock(t, p); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := [3]uint32{2, 1, 1} // 16 items / local group size 8
	if p.counters.lastDispatch != want {
		t.Errorf("dispatch = %v, want %v", p.counters.lastDispatch, want)
	}
}

func TestOrchestrator_SubGroupInputSkipsDispatch(t *testing.T) {
	p := newMockProvider()
	driver.Register(p)
	t.Cleanup(func() { driver.Unregister("mock") })

	cfg := DefaultConfig()
	cfg.DriverName = "mock"
	cfg.PipelineBinary = []byte("mock-kernel")
	cfg.ItemCount = 4

	orc, err := NewOrchestrator(cfg)
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	// Four items fill no complete workgroup: all items are dropped, so no
	// dispatch is recorded and the run still completes cleanly.
	output, err := orc.Run(make([]float32, 4))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(output) != 4 {
		t.Fatalf("len(output) = %d, want 4", len(output))
	}
	if p.counters.lastDispatch != [3]uint32{} {
		t.Errorf("dispatch = %v, want none recorded", p.counters.lastDispatch)
	}
	if orc.State() != StateCompleted {
		t.Errorf("State() = %v, want Completed", orc.State())
	}
	if c, d := p.counters.constructed.Load(), p.counters.destroyed.Load(); c != d {
		t.Errorf("constructed = %d, destroyed = %d, want balance", c, d)
	}
}

func TestOrchestrator_UserDataCarriesTableAddress(t *testing.T) {
	p := newMockProvider()
	if _, err := runMock(t, p); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(p.counters.lastUserData) != 1 {
		t.Fatalf("user data entries = %d, want 1", len(p.counters.lastUserData))
	}
	// The third mock allocation is the descriptor table.
	wantAddr := uint32(0x2000_0000 + 3*0x1000)
	if p.counters.lastUserData[0] != wantAddr {
		t.Errorf("user data[0] = %#x, want %#x", p.counters.lastUserData[0], wantAddr)
	}
}

func TestOrchestrator_CompletedStateAndBalance(t *testing.T) {
	p := newMockProvider()
	driver.Register(p)
	t.Cleanup(func() { driver.Unregister("mock") })

	cfg := DefaultConfig()
	cfg.DriverName = "mock"
	cfg.PipelineBinary = []byte("mock-kernel")
	orc, err := NewOrchestrator(cfg)
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	input := make([]float32, 16)
	if _, err := orc.Run(input); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if orc.State() != StateCompleted {
		t.Errorf("State() = %v, want Completed", orc.State())
	}
	if c, d := p.counters.constructed.Load(), p.counters.destroyed.Load(); c != d {
		t.Errorf("constructed = %d, destroyed = %d, want balance", c, d)
	}
}

func TestNewOrchestrator_Validation(t *testing.T) {
	t.Run("empty pipeline binary", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DriverName = "mock"
		if _, err := NewOrchestrator(cfg); !errors.Is(err, ErrNoPipelineBinary) {
			t.Errorf("NewOrchestrator() error = %v, want ErrNoPipelineBinary", err)
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DriverName = "no-such-driver"
		cfg.PipelineBinary = []byte("blob")
		if _, err := NewOrchestrator(cfg); !errors.Is(err, ErrNoDriver) {
			t.Errorf("NewOrchestrator() error = %v, want ErrNoDriver", err)
		}
	})
}
