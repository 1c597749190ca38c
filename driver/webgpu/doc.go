// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package webgpu implements the dispatch driver contract on top of the
// cogentcore WebGPU bindings. Kernels are WGSL source consumed directly;
// buffers live in device memory with a host shadow that maps through a
// staging copy and unmaps through a queue write.
//
// Importing this package registers the driver under the name "webgpu".
package webgpu
