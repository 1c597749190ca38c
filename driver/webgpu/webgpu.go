// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package webgpu

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gogpu/dispatch/driver"
)

// ProviderName is the registry name of this driver.
const ProviderName = "webgpu"

func init() {
	driver.Register(provider{})
}

type provider struct{}

// NewProvider returns the webgpu driver provider. Importing the package
// registers the same provider; this exists for explicit wiring.
func NewProvider() driver.Provider { return provider{} }

func (provider) Name() string { return ProviderName }

// Available reports whether a WebGPU adapter can be requested in this
// process.
func (provider) Available() bool {
	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return false
	}
	defer instance.Release()
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{})
	if err != nil || adapter == nil {
		return false
	}
	adapter.Release()
	return true
}

func (provider) PlatformSize(driver.PlatformCreateInfo) (uint64, driver.Result) {
	return platformStorageSize, driver.Success
}

func (provider) CreatePlatform(info driver.PlatformCreateInfo, storage []byte) (driver.Platform, driver.Result) {
	if uint64(len(storage)) < platformStorageSize {
		return nil, driver.ErrorInvalidValue
	}
	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return nil, driver.ErrorInitializationFailed
	}
	driver.Logger().Debug("webgpu: platform created", "settingsPath", info.SettingsPath)
	return &platform{instance: instance}, driver.Success
}

// Nominal storage sizes for the two-phase construction protocol. The
// bindings own the real allocations; the caller-supplied storage only
// backs the wrapper objects.
const (
	platformStorageSize  = 512
	queueStorageSize     = 256
	allocatorStorageSize = 1024
	cmdBufferStorageSize = 4096
	pipelineStorageSize  = 512
	memoryStorageSize    = 256
)
