// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import "sync"

// Provider exposes one driver implementation to the registry. The platform
// is the provider's root object; everything else hangs off it.
type Provider interface {
	// Name returns the driver identifier (e.g. "soft", "wgpu").
	Name() string

	// Available reports whether the driver can run in this process
	// without constructing a platform.
	Available() bool

	// PlatformSize reports the backing storage a platform requires.
	PlatformSize(info PlatformCreateInfo) (uint64, Result)

	// CreatePlatform constructs the platform into caller-supplied storage.
	CreatePlatform(info PlatformCreateInfo, storage []byte) (Platform, Result)
}

var (
	registryMu sync.RWMutex
	providers  = make(map[string]Provider)

	// Priority order for default driver selection (first available wins).
	// GPU drivers outrank the software fallback.
	providerPriority = []string{"wgpu", "webgpu", "soft"}
)

// Register registers a driver provider under its name. Drivers call this
// from init() on package import; a provider registered under an existing
// name replaces it.
func Register(p Provider) {
	registryMu.Lock()
	defer registryMu.Unlock()
	providers[p.Name()] = p
}

// Unregister removes a provider from the registry. Useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(providers, name)
}

// Available returns the names of all registered providers.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	return names
}

// Get returns the provider registered under name, or nil.
func Get(name string) Provider {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return providers[name]
}

// Default returns the best available provider by priority order, falling
// back to any registered provider, or nil if none are registered.
func Default() Provider {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range providerPriority {
		if p, ok := providers[name]; ok && p.Available() {
			return p
		}
	}
	for _, p := range providers {
		if p.Available() {
			return p
		}
	}
	return nil
}
