// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dispatch/driver"
)

// ProviderName is the registry name of this driver.
const ProviderName = "wgpu"

func init() {
	driver.Register(provider{})
}

type provider struct{}

// NewProvider returns the wgpu driver provider. Importing the package
// registers the same provider; this exists for explicit wiring.
func NewProvider() driver.Provider { return provider{} }

func (provider) Name() string { return ProviderName }

// Available reports whether a Vulkan backend can be reached in this
// process. No instance is created.
func (provider) Available() bool {
	_, ok := hal.GetBackend(gputypes.BackendVulkan)
	return ok
}

func (provider) PlatformSize(driver.PlatformCreateInfo) (uint64, driver.Result) {
	return platformStorageSize, driver.Success
}

func (provider) CreatePlatform(info driver.PlatformCreateInfo, storage []byte) (driver.Platform, driver.Result) {
	if uint64(len(storage)) < platformStorageSize {
		return nil, driver.ErrorInvalidValue
	}

	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, driver.ErrorUnavailable
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		driver.Logger().Error("wgpu: create instance", "error", err)
		return nil, driver.ErrorInitializationFailed
	}

	driver.Logger().Debug("wgpu: platform created", "settingsPath", info.SettingsPath)
	return &platform{instance: instance}, driver.Success
}

// Nominal storage sizes for the two-phase construction protocol. The
// HAL owns the real allocations; the caller-supplied storage only backs
// the wrapper objects.
const (
	platformStorageSize  = 512
	queueStorageSize     = 256
	allocatorStorageSize = 1024
	cmdBufferStorageSize = 4096
	pipelineStorageSize  = 512
	memoryStorageSize    = 256
)
