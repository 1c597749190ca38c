// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package soft implements the driver contract on the CPU.
//
// The soft driver exposes a single virtual device whose queues execute
// command buffers synchronously at submit time. Pipelines are built-in
// kernels selected by a magic-tagged binary blob (see KernelBlob); memory
// objects are plain host allocations with synthetic device virtual
// addresses. The driver exists as the always-available fallback and as the
// reference device for tests.
//
// Importing the package registers it with the driver registry under the
// name "soft".
package soft
