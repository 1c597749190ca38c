// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import "fmt"

// Result is a driver status code. Success is the zero value; every other
// code reports a failure. Drivers return Result from every operation,
// including both phases of the construction protocol.
type Result int32

const (
	// Success indicates the operation completed.
	Success Result = iota

	// ErrorUnknown is an unclassified driver failure.
	ErrorUnknown

	// ErrorOutOfMemory indicates the driver could not allocate host or
	// device memory for the operation.
	ErrorOutOfMemory

	// ErrorInvalidValue indicates a create-info or argument the driver
	// rejected.
	ErrorInvalidValue

	// ErrorUnavailable indicates the requested capability does not exist
	// on this platform (no backend, no adapter).
	ErrorUnavailable

	// ErrorInitializationFailed indicates device or platform bring-up
	// failed below the abstraction layer.
	ErrorInitializationFailed

	// ErrorUnsupported indicates a valid request the device cannot serve.
	ErrorUnsupported

	// ErrorInvalidPipelineBinary indicates the pipeline blob was rejected.
	ErrorInvalidPipelineBinary

	// ErrorDeviceLost indicates the device stopped responding.
	ErrorDeviceLost

	// ErrorMapFailed indicates a memory map or unmap request was denied.
	ErrorMapFailed
)

// IsError reports whether r is a failure code.
func (r Result) IsError() bool { return r != Success }

// String returns the name of the result code.
func (r Result) String() string {
	switch r {
	case Success:
		return "Success"
	case ErrorUnknown:
		return "ErrorUnknown"
	case ErrorOutOfMemory:
		return "ErrorOutOfMemory"
	case ErrorInvalidValue:
		return "ErrorInvalidValue"
	case ErrorUnavailable:
		return "ErrorUnavailable"
	case ErrorInitializationFailed:
		return "ErrorInitializationFailed"
	case ErrorUnsupported:
		return "ErrorUnsupported"
	case ErrorInvalidPipelineBinary:
		return "ErrorInvalidPipelineBinary"
	case ErrorDeviceLost:
		return "ErrorDeviceLost"
	case ErrorMapFailed:
		return "ErrorMapFailed"
	default:
		return fmt.Sprintf("Result(%d)", int32(r))
	}
}

// Error is the error form of a failed driver call. Op names the operation
// that failed in the driver's own vocabulary ("create queue", "map").
type Error struct {
	Op   string
	Code Result
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("driver: %s: %s", e.Op, e.Code)
}

// Errf returns an *Error for a failed operation.
func Errf(op string, code Result) *Error {
	return &Error{Op: op, Code: code}
}
