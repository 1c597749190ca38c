// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu implements the dispatch driver contract on top of the
// gogpu wgpu HAL. Pipelines are created from WGSL source compiled to
// SPIR-V through naga; buffers live in real device memory with a host
// shadow that maps and unmaps through staging copies.
//
// Importing this package registers the driver under the name "wgpu".
package wgpu
