// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"github.com/gogpu/dispatch/driver"
)

// ProviderName is the registry identifier of the soft driver.
const ProviderName = "soft"

// Nominal backing-storage sizes reported by the two-phase size queries.
// Soft objects live on the Go heap; the storage region only carries the
// protocol's ownership contract.
const (
	platformStorageSize     = 512
	queueStorageSize        = 256
	cmdAllocatorStorageSize = 1024
	cmdBufferStorageSize    = 4096
	pipelineStorageSize     = 256
	memoryStorageSize       = 128
)

// provider implements driver.Provider.
type provider struct{}

// init registers the soft driver on package import.
func init() {
	driver.Register(provider{})
}

// NewProvider returns the soft driver provider. Most callers use the
// registry instead.
func NewProvider() driver.Provider { return provider{} }

// Name returns the registry identifier.
func (provider) Name() string { return ProviderName }

// Available reports true: the soft driver runs anywhere.
func (provider) Available() bool { return true }

// PlatformSize reports the platform backing-storage size.
func (provider) PlatformSize(driver.PlatformCreateInfo) (uint64, driver.Result) {
	return platformStorageSize, driver.Success
}

// CreatePlatform constructs the soft platform with its single virtual
// device.
func (provider) CreatePlatform(info driver.PlatformCreateInfo, storage []byte) (driver.Platform, driver.Result) {
	if uint64(len(storage)) < platformStorageSize {
		return nil, driver.ErrorInvalidValue
	}
	p := &platform{settingsPath: info.SettingsPath}
	p.devices = []*device{newDevice(p)}
	driver.Logger().Debug("soft: platform created", "settingsPath", info.SettingsPath)
	return p, driver.Success
}
