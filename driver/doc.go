// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package driver defines the contract between the dispatch core and a GPU
// driver abstraction layer.
//
// A driver exposes its objects (platform, device, queue, command allocator,
// command buffer, pipeline, memory) behind interfaces, and constructs every
// object through a two-phase protocol: the caller first queries the required
// backing-storage size, then asks the driver to construct the object into
// caller-supplied storage of exactly that size. Handle wraps the protocol
// and owns the result.
//
// Concrete drivers live in sub-packages (soft, wgpu, webgpu) and register
// themselves with the provider registry on import. Callers normally select
// a driver via Default or Get rather than importing a driver directly.
package driver
