// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command dispatchdemo runs one compute dispatch end to end: it doubles
// a float buffer on the selected driver and prints the readback.
package main

import (
	_ "embed"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/dispatch"
	"github.com/gogpu/dispatch/driver"
	"github.com/gogpu/dispatch/driver/soft"
	_ "github.com/gogpu/dispatch/driver/webgpu"
	_ "github.com/gogpu/dispatch/driver/wgpu"
)

//go:embed kernels/double_f32.wgsl
var doubleF32WGSL []byte

func main() {
	var (
		driverName = flag.String("driver", "", "driver to use (wgpu, webgpu, soft; empty = best available)")
		items      = flag.Int("items", dispatch.DefaultItemCount, "number of float elements to process")
		verbose    = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		dispatch.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	cfg := dispatch.DefaultConfig()
	cfg.DriverName = *driverName
	cfg.ItemCount = uint32(*items)
	cfg.PipelineBinary = kernelFor(*driverName)

	orc, err := dispatch.NewOrchestrator(cfg)
	if err != nil {
		log.Fatalf("Failed to create orchestrator: %v", err)
	}
	log.Printf("Using driver %q", orc.Driver().Name())

	input := make([]float32, *items)
	for i := range input {
		input[i] = float32(i)
	}

	output, err := orc.Run(input)
	if err != nil {
		log.Fatalf("Dispatch failed in state %v: %v", orc.State(), err)
	}

	for i, v := range output {
		fmt.Printf("out[%2d] = %6.1f\n", i, v)
	}
	log.Printf("Processed %d elements", len(output))
}

// kernelFor selects the doubling kernel in the form the driver consumes:
// the soft driver takes a named kernel blob, the GPU drivers take WGSL
// source.
func kernelFor(driverName string) []byte {
	if driverName == "" {
		if p := driver.Default(); p != nil {
			driverName = p.Name()
		}
	}
	if driverName == soft.ProviderName {
		return soft.KernelBlob(soft.KernelDoubleF32)
	}
	return doubleF32WGSL
}
