// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dispatch

import (
	"fmt"

	"github.com/gogpu/dispatch/driver"
)

// DeviceSession owns a driver platform and a reference to one selected
// device. The device itself is owned by the platform; its lifetime ends
// when the session closes.
type DeviceSession struct {
	provider  driver.Provider
	platform  *driver.Handle[driver.Platform]
	device    driver.Device
	props     driver.DeviceProperties
	finalized bool
}

// NewDeviceSession creates the driver platform, enumerates devices and
// selects the first one. Selection policy is first-available; no scoring
// or capability filtering happens here.
//
// Returns ErrNoDevices when enumeration yields an empty sequence; the
// platform is released before returning.
func NewDeviceSession(provider driver.Provider, settingsPath string) (*DeviceSession, error) {
	info := driver.PlatformCreateInfo{SettingsPath: settingsPath}

	platform, err := driver.NewHandle(
		func() (uint64, driver.Result) { return provider.PlatformSize(info) },
		func(storage []byte) (driver.Platform, driver.Result) {
			return provider.CreatePlatform(info, storage)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("create platform: %w", err)
	}
	slogger().Info("platform initialized", "driver", provider.Name())

	devices, res := platform.Object().EnumerateDevices()
	if res.IsError() {
		platform.Destroy()
		return nil, drvCall("enumerate devices", res)
	}
	if len(devices) == 0 {
		platform.Destroy()
		return nil, ErrNoDevices
	}

	// Report every enumerated device the way the platform sees them.
	for i, dev := range devices {
		props, res := dev.Properties()
		if res.IsError() {
			platform.Destroy()
			return nil, drvCall("query device properties", res)
		}
		slogger().Info("device enumerated", "index", i, "properties", props.String())
	}

	device := devices[0]
	props, res := device.Properties()
	if res.IsError() {
		platform.Destroy()
		return nil, drvCall("query device properties", res)
	}
	slogger().Info("device selected", "gpu", props.GpuName)

	return &DeviceSession{
		provider: provider,
		platform: platform,
		device:   device,
		props:    props,
	}, nil
}

// Device returns the selected device. Resource creation on it is legal
// only after Finalize.
func (s *DeviceSession) Device() driver.Device { return s.device }

// Properties returns the selected device's capability report.
func (s *DeviceSession) Properties() driver.DeviceProperties { return s.props }

// Finalized reports whether the session has been finalized.
func (s *DeviceSession) Finalized() bool { return s.finalized }

// Finalize commits settings and finalizes the device for the requested
// number of compute engines. Must be called exactly once.
func (s *DeviceSession) Finalize(requestedComputeEngines uint32) error {
	if s.finalized {
		return ErrSessionFinalized
	}

	if res := s.device.CommitSettingsAndInit(); res.IsError() {
		return drvCall("commit settings", res)
	}

	var info driver.FinalizeInfo
	info.RequestedEngineCounts[driver.EngineTypeCompute] = requestedComputeEngines
	if res := s.device.Finalize(info); res.IsError() {
		return drvCall("finalize device", res)
	}

	s.finalized = true
	slogger().Info("device initialized", "computeEngines", requestedComputeEngines)
	return nil
}

// Close releases the platform and with it the enumerated devices. Safe to
// call more than once.
func (s *DeviceSession) Close() {
	if s == nil {
		return
	}
	s.platform.Destroy()
	s.device = nil
}

// checkComputeCapability gates compute queue creation on the device's
// engine report.
func checkComputeCapability(props driver.DeviceProperties) error {
	engine := props.EngineProperties[driver.EngineTypeCompute]
	if engine.EngineCount == 0 {
		return ErrNoComputeEngine
	}
	if !engine.QueueSupport.Supports(driver.QueueTypeCompute) {
		return ErrQueueTypeUnsupported
	}
	return nil
}
