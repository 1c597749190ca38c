// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import "unsafe"

// StorageAlignment is the alignment of every backing storage allocation.
// 16 bytes satisfies all object kinds in the abstraction layer.
const StorageAlignment = 16

// SizeFunc reports the backing storage size an object requires, or a
// failure code.
type SizeFunc func() (uint64, Result)

// ConstructFunc constructs an object into caller-supplied storage and
// returns it, or a failure code. On failure no partial object may be
// retained by the driver.
type ConstructFunc[T Object] func(storage []byte) (T, Result)

// Handle owns exactly one driver object together with the backing storage
// it was constructed in. A handle has at most one owner: Move transfers
// ownership and empties the source, and Destroy tears the object down and
// releases the storage exactly once. Copying a Handle value is not
// supported; handles are passed by pointer.
type Handle[T Object] struct {
	obj     T
	storage []byte
	valid   bool
}

// NewHandle runs the two-phase construction protocol: query the required
// size, allocate aligned backing storage, construct into it. A failure in
// either phase is returned as a *Error and no storage is retained.
func NewHandle[T Object](sizeFn SizeFunc, construct ConstructFunc[T]) (*Handle[T], error) {
	size, res := sizeFn()
	if res.IsError() {
		return nil, Errf("query object size", res)
	}

	storage := alignedAlloc(size)
	obj, res := construct(storage)
	if res.IsError() {
		// The storage reference is dropped here; nothing partial survives.
		return nil, Errf("construct object", res)
	}

	return &Handle[T]{obj: obj, storage: storage, valid: true}, nil
}

// Object returns the owned object. The result is only meaningful while
// the handle is valid.
func (h *Handle[T]) Object() T {
	var zero T
	if h == nil || !h.valid {
		return zero
	}
	return h.obj
}

// Valid reports whether the handle currently owns an object.
func (h *Handle[T]) Valid() bool {
	return h != nil && h.valid
}

// Move transfers ownership into a new handle and empties h. Destroying an
// emptied handle is a no-op.
func (h *Handle[T]) Move() *Handle[T] {
	if h == nil || !h.valid {
		return &Handle[T]{}
	}
	moved := &Handle[T]{obj: h.obj, storage: h.storage, valid: true}
	var zero T
	h.obj = zero
	h.storage = nil
	h.valid = false
	return moved
}

// Destroy tears down the owned object, then releases its backing storage,
// in that order. Destroy on an empty or already-destroyed handle is a
// no-op; an object is never torn down twice.
func (h *Handle[T]) Destroy() {
	if h == nil || !h.valid {
		return
	}
	h.obj.Destroy()
	var zero T
	h.obj = zero
	h.storage = nil
	h.valid = false
}

// alignedAlloc returns a size-byte slice whose base address is aligned to
// StorageAlignment.
func alignedAlloc(size uint64) []byte {
	if size == 0 {
		return nil
	}
	buf := make([]byte, size+StorageAlignment-1)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	off := (StorageAlignment - base%StorageAlignment) % StorageAlignment
	return buf[off : off+uintptr(size) : off+uintptr(size)]
}
