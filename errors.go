// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dispatch

import (
	"errors"

	"github.com/gogpu/dispatch/driver"
)

// Errors reported by the dispatch core. Driver-originated failures are
// reported as *DriverError and can be inspected with errors.As.
var (
	// ErrNoDriver is returned when no driver provider is registered or
	// the requested driver name is unknown.
	ErrNoDriver = errors.New("dispatch: no driver available")

	// ErrNoDevices is returned when device enumeration yields an empty
	// sequence.
	ErrNoDevices = errors.New("dispatch: platform has no devices")

	// ErrNoComputeEngine is returned when the selected device reports
	// zero compute engines.
	ErrNoComputeEngine = errors.New("dispatch: device has no compute engines")

	// ErrQueueTypeUnsupported is returned when the device's compute
	// engine does not support the compute queue type.
	ErrQueueTypeUnsupported = errors.New("dispatch: compute engine does not support compute queues")

	// ErrNoPipelineBinary is returned when the configuration carries an
	// empty pipeline binary.
	ErrNoPipelineBinary = errors.New("dispatch: pipeline binary is empty")

	// ErrSessionFinalized is returned when Finalize is called more than
	// once on a device session.
	ErrSessionFinalized = errors.New("dispatch: device session already finalized")

	// ErrBufferAlreadyMapped is returned when mapping a mapped buffer.
	ErrBufferAlreadyMapped = errors.New("dispatch: buffer is already mapped")

	// ErrBufferNotMapped is returned when unmapping an unmapped buffer.
	ErrBufferNotMapped = errors.New("dispatch: buffer is not mapped")
)

// DriverError carries the failing operation and the driver result code of
// a rejected driver call.
type DriverError = driver.Error

// drvCall converts a driver result into an error, nil on success.
func drvCall(op string, res driver.Result) error {
	if res.IsError() {
		return driver.Errf(op, res)
	}
	return nil
}
