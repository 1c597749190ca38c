// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package dispatch initializes a GPU compute device through a low-level
// driver abstraction layer, uploads data, dispatches a single compute
// kernel, and reads the results back.
//
// The package orchestrates a strict dependency chain of driver resources:
// platform, device, queue, command allocator, command buffer, pipeline,
// data buffers and a descriptor table. Every driver object is owned by a
// generic two-phase construction handle (driver.Handle); any failure along
// the chain aborts the run and unwinds exactly the resources constructed
// so far, in reverse creation order.
//
// Driver implementations register themselves on import:
//
//	import (
//	    "github.com/gogpu/dispatch"
//	    "github.com/gogpu/dispatch/driver/soft"
//	)
//
//	cfg := dispatch.DefaultConfig()
//	cfg.PipelineBinary = soft.KernelBlob(soft.KernelDoubleF32)
//
//	orc, err := dispatch.NewOrchestrator(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := orc.Run(input)
package dispatch
